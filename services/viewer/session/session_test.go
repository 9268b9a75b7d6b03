// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/plot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fakes
// =============================================================================

func fp(v float64) *float64 { return &v }

type fakeFetcher struct {
	mu      sync.Mutex
	batches [][]datatypes.CurveSample
	err     error
	calls   atomic.Int32
	queries []datatypes.SampleQuery

	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchSamples(ctx context.Context, q datatypes.SampleQuery) ([]datatypes.CurveSample, error) {
	n := int(f.calls.Add(1)) - 1
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	if n >= len(f.batches) {
		n = len(f.batches) - 1
	}
	return f.batches[n], nil
}

type fakeInterpreter struct {
	mu       sync.Mutex
	result   *datatypes.InterpretationResult
	err      error
	calls    atomic.Int32
	release  chan struct{}
	last     datatypes.InterpretRequest
	requests []datatypes.InterpretRequest
}

func (f *fakeInterpreter) Interpret(ctx context.Context, req datatypes.InterpretRequest) (*datatypes.InterpretationResult, error) {
	f.mu.Lock()
	f.last = req
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeChatter struct {
	mu      sync.Mutex
	got     datatypes.ChatRequest
	calls   atomic.Int32
	release chan struct{}
}

func (f *fakeChatter) Chat(ctx context.Context, req datatypes.ChatRequest) (*datatypes.ChatResponse, error) {
	f.mu.Lock()
	f.got = req
	f.mu.Unlock()
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return &datatypes.ChatResponse{Reply: "echo: " + req.Message}, nil
}

func grBatch(values ...float64) []datatypes.CurveSample {
	out := make([]datatypes.CurveSample, len(values))
	for i, v := range values {
		out[i] = datatypes.CurveSample{Depth: float64(1000 + i), Values: map[string]*float64{"GR": fp(v)}}
	}
	return out
}

func newWithGR(t *testing.T) *Session {
	t.Helper()
	s := New("test")
	s.SelectWell("W-1")
	_, err := s.ToggleCurve("GR")
	require.NoError(t, err)
	return s
}

// =============================================================================
// Selection Tests
// =============================================================================

func TestToggleCurve_RequiresWell(t *testing.T) {
	s := New("test")
	_, err := s.ToggleCurve("GR")
	assert.ErrorIs(t, err, ErrNoWell)
}

func TestToggleCurve_RejectsIndexCurves(t *testing.T) {
	s := New("test")
	s.SelectWell("W-1")
	for _, name := range []string{"Depth", "DEPTH", "time", ""} {
		_, err := s.ToggleCurve(name)
		assert.ErrorIs(t, err, ErrNotSelectable, name)
	}
	assert.Empty(t, s.Selection())
}

func TestToggleCurve_CapsAtThree(t *testing.T) {
	s := New("test")
	s.SelectWell("W-1")
	for _, c := range []string{"GR", "RHOB", "NPHI"} {
		selected, err := s.ToggleCurve(c)
		require.NoError(t, err)
		assert.True(t, selected)
	}

	gen := s.Tag().Generation
	selected, err := s.ToggleCurve("DT")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{"GR", "RHOB", "NPHI"}, s.Selection())
	assert.Equal(t, gen, s.Tag().Generation, "no-op toggle must not invalidate in-flight calls")

	selected, err = s.ToggleCurve("RHOB")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{"GR", "NPHI"}, s.Selection())
}

func TestSetDepthRange(t *testing.T) {
	s := New("test")
	assert.ErrorIs(t, s.SetDepthRange(DepthRange{}), ErrNoWell)

	s.SelectWell("W-1")
	assert.ErrorIs(t, s.SetDepthRange(DepthRange{Top: fp(2000), Bottom: fp(1000)}), ErrInvalidDepthRange)
	require.NoError(t, s.SetDepthRange(DepthRange{Top: fp(1000), Bottom: fp(2000)}))
	require.NoError(t, s.SetDepthRange(DepthRange{Top: fp(-5)}))

	st := s.State()
	require.NotNil(t, st.Depth.Top)
	assert.Equal(t, -5.0, *st.Depth.Top)
	assert.Nil(t, st.Depth.Bottom)
}

func TestSelectWell_ResetsEverything(t *testing.T) {
	s := newWithGR(t)
	require.NoError(t, s.SetDepthRange(DepthRange{Top: fp(1)}))
	_, err := s.Load(context.Background(), &fakeFetcher{batches: [][]datatypes.CurveSample{grBatch(5, 15)}})
	require.NoError(t, err)
	require.NoError(t, s.ApplyInterpretation(s.Tag(), &datatypes.InterpretationResult{}))

	s.SelectWell("W-2")

	st := s.State()
	assert.Equal(t, "W-2", st.Well)
	assert.Empty(t, st.Selection)
	assert.Nil(t, st.Depth.Top)
	assert.Zero(t, st.SampleCount)
	assert.Empty(t, st.AxisRanges)
	assert.False(t, st.Interpreted)
	assert.Equal(t, datatypes.SummaryPlaceholder, st.Summary)
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoad_FirstBatchFixesAxisRange(t *testing.T) {
	s := newWithGR(t)
	fetcher := &fakeFetcher{batches: [][]datatypes.CurveSample{
		grBatch(5, 10, 15),
		grBatch(100, -3),
	}}

	first, err := s.Load(context.Background(), fetcher)
	require.NoError(t, err)
	require.NotNil(t, first.Chart)
	assert.Equal(t, []string{"GR"}, first.RangesCached)
	require.NotNil(t, first.Chart.Axes[0].Range)
	assert.Equal(t, [2]float64{5, 15}, *first.Chart.Axes[0].Range)
	assert.True(t, first.Chart.Axes[0].FixedRange)

	second, err := s.Load(context.Background(), fetcher)
	require.NoError(t, err)
	assert.Empty(t, second.RangesCached)
	assert.Equal(t, [2]float64{5, 15}, *second.Chart.Axes[0].Range)
	assert.Equal(t, plot.AxisRange{CurveName: "GR", Min: 5, Max: 15}, s.State().AxisRanges["GR"])
}

func TestLoad_PassesSelectionAndDepth(t *testing.T) {
	s := newWithGR(t)
	_, err := s.ToggleCurve("RHOB")
	require.NoError(t, err)
	require.NoError(t, s.SetDepthRange(DepthRange{Top: fp(1000), Bottom: fp(1200)}))

	fetcher := &fakeFetcher{batches: [][]datatypes.CurveSample{grBatch(1)}}
	_, err = s.Load(context.Background(), fetcher)
	require.NoError(t, err)

	require.Len(t, fetcher.queries, 1)
	q := fetcher.queries[0]
	assert.Equal(t, "W-1", q.Well)
	assert.Equal(t, []string{"GR", "RHOB"}, q.Curves)
	assert.Equal(t, 1000.0, *q.Top)
	assert.Equal(t, 1200.0, *q.Bottom)
}

func TestLoad_EmptySelectionSkipsFetch(t *testing.T) {
	s := New("test")
	s.SelectWell("W-1")
	fetcher := &fakeFetcher{}

	res, err := s.Load(context.Background(), fetcher)
	require.NoError(t, err)
	assert.Nil(t, res.Chart)
	assert.Zero(t, fetcher.calls.Load())
}

func TestLoad_NoWell(t *testing.T) {
	_, err := New("test").Load(context.Background(), &fakeFetcher{})
	assert.ErrorIs(t, err, ErrNoWell)
}

func TestLoad_FetchErrorLeavesStateUnchanged(t *testing.T) {
	s := newWithGR(t)
	_, err := s.Load(context.Background(), &fakeFetcher{batches: [][]datatypes.CurveSample{grBatch(5, 15)}})
	require.NoError(t, err)

	boom := errors.New("well service down")
	_, err = s.Load(context.Background(), &fakeFetcher{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, s.State().SampleCount)
}

func TestLoad_StaleResponseAfterSelectionChange(t *testing.T) {
	s := newWithGR(t)
	fetcher := &fakeFetcher{
		batches: [][]datatypes.CurveSample{grBatch(5, 15)},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), fetcher)
		done <- err
	}()

	<-fetcher.started
	_, err := s.ToggleCurve("RHOB")
	require.NoError(t, err)
	close(fetcher.release)

	assert.ErrorIs(t, <-done, ErrStaleResponse)
	st := s.State()
	assert.Zero(t, st.SampleCount)
	assert.Empty(t, st.AxisRanges, "a discarded batch must not seed the range cache")
}

func TestLoad_StaleResponseAfterWellChange(t *testing.T) {
	s := newWithGR(t)
	fetcher := &fakeFetcher{
		batches: [][]datatypes.CurveSample{grBatch(5, 15)},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), fetcher)
		done <- err
	}()

	<-fetcher.started
	s.SelectWell("W-2")
	close(fetcher.release)

	assert.ErrorIs(t, <-done, ErrStaleResponse)
	assert.Equal(t, "W-2", s.Well())
	assert.Zero(t, s.State().SampleCount)
}

func TestLoad_ConcurrentCallsShareOneFetch(t *testing.T) {
	s := newWithGR(t)
	fetcher := &fakeFetcher{
		batches: [][]datatypes.CurveSample{grBatch(5, 15)},
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Load(context.Background(), fetcher)
		}(i)
		if i == 0 {
			<-fetcher.started
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestLoad_SelectionChangeBetweenLoadsFetchesAgain(t *testing.T) {
	s := newWithGR(t)
	both := []datatypes.CurveSample{
		{Depth: 1000, Values: map[string]*float64{"GR": fp(5), "RHOB": fp(2.3)}},
		{Depth: 1001, Values: map[string]*float64{"GR": fp(15), "RHOB": fp(2.5)}},
	}
	fetcher := &fakeFetcher{
		batches: [][]datatypes.CurveSample{grBatch(5, 15), both},
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}

	first := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), fetcher)
		first <- err
	}()
	<-fetcher.started

	_, err := s.ToggleCurve("RHOB")
	require.NoError(t, err)

	second := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), fetcher)
		second <- err
	}()
	<-fetcher.started
	close(fetcher.release)

	assert.ErrorIs(t, <-first, ErrStaleResponse)
	require.NoError(t, <-second)
	assert.Equal(t, int32(2), fetcher.calls.Load())

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	require.Len(t, fetcher.queries, 2)
	assert.Equal(t, []string{"GR", "RHOB"}, fetcher.queries[1].Curves)
	assert.Equal(t, 2, s.State().SampleCount)
}

func TestLoad_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	s := newWithGR(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawCancel bool
	fetcher := fetchFunc(func(ctx context.Context, q datatypes.SampleQuery) ([]datatypes.CurveSample, error) {
		sawCancel = ctx.Err() != nil
		return grBatch(1, 2), nil
	})
	_, err := s.Load(ctx, fetcher)
	require.NoError(t, err)
	assert.False(t, sawCancel)
}

type fetchFunc func(ctx context.Context, q datatypes.SampleQuery) ([]datatypes.CurveSample, error)

func (f fetchFunc) FetchSamples(ctx context.Context, q datatypes.SampleQuery) ([]datatypes.CurveSample, error) {
	return f(ctx, q)
}

// =============================================================================
// Interpret Tests
// =============================================================================

func TestInterpret_AppliesResult(t *testing.T) {
	s := newWithGR(t)
	_, err := s.Load(context.Background(), &fakeFetcher{batches: [][]datatypes.CurveSample{grBatch(5, 15, 10)}})
	require.NoError(t, err)

	summary := "Shale-rich interval."
	interp := &fakeInterpreter{result: &datatypes.InterpretationResult{
		Stats: map[string]datatypes.CurveStats{"GR": {SpikeDepths: []float64{1001}}},
		CleanedCurves: map[string]datatypes.CleanedCurve{
			"GR": {Depths: []float64{1000, 1001}, Values: []*float64{fp(5), fp(10)}},
		},
		Summary: &summary,
	}}

	out, err := s.Interpret(context.Background(), interp)
	require.NoError(t, err)
	assert.Equal(t, summary, out.Summary)
	require.NotNil(t, out.Chart)
	assert.Len(t, out.Chart.Traces, 2, "line plus spike markers")
	require.NotNil(t, out.Cleaned)
	assert.Len(t, out.Cleaned.Traces, 1)
	assert.Equal(t, "W-1", interp.last.Well)
	assert.Equal(t, []string{"GR"}, interp.last.Curves)
}

func TestInterpret_PartialResult(t *testing.T) {
	s := newWithGR(t)
	_, err := s.Load(context.Background(), &fakeFetcher{batches: [][]datatypes.CurveSample{grBatch(5)}})
	require.NoError(t, err)

	out, err := s.Interpret(context.Background(), &fakeInterpreter{result: &datatypes.InterpretationResult{}})
	require.NoError(t, err)
	assert.Equal(t, datatypes.SummaryPlaceholder, out.Summary)
	assert.Nil(t, out.Cleaned)
	require.NotNil(t, out.Chart)
	assert.Len(t, out.Chart.Traces, 1)
}

func TestInterpret_StaleAfterWellChange(t *testing.T) {
	s := newWithGR(t)
	interp := &fakeInterpreter{result: &datatypes.InterpretationResult{}, release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := s.Interpret(context.Background(), interp)
		done <- err
	}()

	require.Eventually(t, func() bool { return interp.calls.Load() == 1 }, time.Second, time.Millisecond)
	s.SelectWell("W-2")
	close(interp.release)

	assert.ErrorIs(t, <-done, ErrStaleResponse)
	assert.False(t, s.State().Interpreted)
}

func TestInterpret_SelectionChangeBetweenCallsAsksAgain(t *testing.T) {
	s := newWithGR(t)
	_, err := s.ToggleCurve("RHOB")
	require.NoError(t, err)
	_, err = s.Load(context.Background(), &fakeFetcher{batches: [][]datatypes.CurveSample{{
		{Depth: 1000, Values: map[string]*float64{"GR": fp(5), "RHOB": fp(2.3)}},
	}}})
	require.NoError(t, err)

	interp := &fakeInterpreter{result: &datatypes.InterpretationResult{}, release: make(chan struct{})}
	first := make(chan error, 1)
	go func() {
		_, err := s.Interpret(context.Background(), interp)
		first <- err
	}()
	require.Eventually(t, func() bool { return interp.calls.Load() == 1 }, time.Second, time.Millisecond)

	_, err = s.ToggleCurve("RHOB")
	require.NoError(t, err)

	type outcome struct {
		out InterpretOutcome
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		out, err := s.Interpret(context.Background(), interp)
		second <- outcome{out, err}
	}()
	require.Eventually(t, func() bool { return interp.calls.Load() == 2 }, time.Second, time.Millisecond)
	close(interp.release)

	assert.ErrorIs(t, <-first, ErrStaleResponse)
	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.out.Chart)
	assert.True(t, s.State().Interpreted)

	interp.mu.Lock()
	defer interp.mu.Unlock()
	require.Len(t, interp.requests, 2)
	assert.Equal(t, []string{"GR"}, interp.requests[1].Curves)
}

func TestInterpret_Error(t *testing.T) {
	s := newWithGR(t)
	boom := errors.New("ai service down")
	_, err := s.Interpret(context.Background(), &fakeInterpreter{err: boom})
	assert.ErrorIs(t, err, boom)
}

// =============================================================================
// Chart, Chat and Subscription Tests
// =============================================================================

func TestChart_NothingSelected(t *testing.T) {
	s := New("test")
	s.SelectWell("W-1")
	chart, err := s.Chart()
	require.NoError(t, err)
	assert.Nil(t, chart)

	cleaned, err := s.CleanedChart()
	require.NoError(t, err)
	assert.Nil(t, cleaned)
}

func TestChat_IncludesWell(t *testing.T) {
	s := newWithGR(t)
	chatter := &fakeChatter{}
	reply, err := s.Chat(context.Background(), chatter, "what is GR?")
	require.NoError(t, err)
	assert.Equal(t, "echo: what is GR?", reply)
	assert.Equal(t, "W-1", chatter.got.Well)
}

func TestChat_ConcurrentSameMessageSharesOneRequest(t *testing.T) {
	s := newWithGR(t)
	chatter := &fakeChatter{release: make(chan struct{})}

	var wg sync.WaitGroup
	replies := make([]string, 3)
	errs := make([]error, 3)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i], errs[i] = s.Chat(context.Background(), chatter, "what is GR?")
		}(i)
		if i == 0 {
			require.Eventually(t, func() bool { return chatter.calls.Load() == 1 }, time.Second, time.Millisecond)
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(chatter.release)
	wg.Wait()

	for i := range replies {
		assert.NoError(t, errs[i])
		assert.Equal(t, "echo: what is GR?", replies[i])
	}
	assert.Equal(t, int32(1), chatter.calls.Load())
}

func TestChat_DifferentMessagesAreSentSeparately(t *testing.T) {
	s := newWithGR(t)
	chatter := &fakeChatter{}
	_, err := s.Chat(context.Background(), chatter, "what is GR?")
	require.NoError(t, err)
	_, err = s.Chat(context.Background(), chatter, "what is RHOB?")
	require.NoError(t, err)
	assert.Equal(t, int32(2), chatter.calls.Load())
}

func TestSubscribe_ReceivesChartUpdates(t *testing.T) {
	s := New("test")
	updates, cancel := s.Subscribe()
	defer cancel()

	s.SelectWell("W-1")
	_, err := s.ToggleCurve("GR")
	require.NoError(t, err)
	_, err = s.ApplySamples(s.Tag(), grBatch(1, 2))
	require.NoError(t, err)

	var last *plot.ChartSpec
	for {
		select {
		case u := <-updates:
			if u.Kind == UpdateChart {
				last = u.Chart
			}
			continue
		default:
		}
		break
	}
	require.NotNil(t, last)
	assert.Len(t, last.Traces, 1)
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	s := New("test")
	updates, cancel := s.Subscribe()
	cancel()
	cancel()

	_, open := <-updates
	assert.False(t, open)
	s.SelectWell("W-1")
}
