// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the per-operator viewing state.
//
// # Description
//
// A Session holds the selected well, the curve selection, the depth bounds,
// the loaded sample batch, the axis range cache and the latest
// interpretation. Choosing another well discards all of it.
//
// External calls are funnelled through the session so that:
//
//   - only one load and one interpretation per session is in flight; a
//     second request while one is pending joins it instead of issuing a
//     new call,
//   - every call is tagged with the generation it was issued for, and a
//     response whose generation no longer matches is dropped with
//     ErrStaleResponse.
//
// # Thread Safety
//
// Session and Registry are safe for concurrent use. The chart pipeline runs
// under the session lock and never blocks on I/O.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/plot"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrNoWell is returned when an action needs a selected well.
	ErrNoWell = errors.New("no well selected")
	// ErrNotSelectable is returned for index curves such as Depth and Time.
	ErrNotSelectable = errors.New("curve is not selectable")
	// ErrInvalidDepthRange is returned when top lies below bottom.
	ErrInvalidDepthRange = errors.New("invalid depth range")
	// ErrStaleResponse is returned when a response arrives after the
	// session moved on. It is not an operator-facing error.
	ErrStaleResponse = errors.New("stale response discarded")
)

// =============================================================================
// Collaborators
// =============================================================================

// SampleFetcher loads curve samples from the well service.
type SampleFetcher interface {
	FetchSamples(ctx context.Context, q datatypes.SampleQuery) ([]datatypes.CurveSample, error)
}

// Interpreter asks the AI service to interpret curves.
type Interpreter interface {
	Interpret(ctx context.Context, req datatypes.InterpretRequest) (*datatypes.InterpretationResult, error)
}

// Chatter exchanges one chat turn.
type Chatter interface {
	Chat(ctx context.Context, req datatypes.ChatRequest) (*datatypes.ChatResponse, error)
}

// =============================================================================
// Types
// =============================================================================

// DepthRange bounds the samples requested from the well service.
// A nil bound is open.
type DepthRange struct {
	Top    *float64 `json:"top,omitempty"`
	Bottom *float64 `json:"bottom,omitempty"`
}

// Validate rejects a top deeper than the bottom.
func (d DepthRange) Validate() error {
	if d.Top != nil && d.Bottom != nil && *d.Top > *d.Bottom {
		return fmt.Errorf("%w: top %g is below bottom %g", ErrInvalidDepthRange, *d.Top, *d.Bottom)
	}
	return nil
}

// Tag identifies the session state an external call was issued for.
type Tag struct {
	Generation uint64
	Well       string
}

// State is a read-only view of a session for API clients.
type State struct {
	ID           string                    `json:"session_id"`
	Well         string                    `json:"well"`
	Selection    []string                  `json:"selection"`
	Depth        DepthRange                `json:"depth"`
	SampleCount  int                       `json:"sample_count"`
	AxisRanges   map[string]plot.AxisRange `json:"axis_ranges"`
	Interpreted  bool                      `json:"interpreted"`
	Summary      string                    `json:"summary"`
	CreatedAt    time.Time                 `json:"created_at"`
	LastActivity time.Time                 `json:"last_activity"`
}

// LoadResult is what a successful load produced.
type LoadResult struct {
	Chart        *plot.ChartSpec
	RangesCached []string
}

// InterpretOutcome is what a successful interpretation produced.
type InterpretOutcome struct {
	Summary string
	Chart   *plot.ChartSpec
	Cleaned *plot.ChartSpec
}

// UpdateKind labels a pushed Update.
type UpdateKind string

const (
	UpdateChart   UpdateKind = "chart"
	UpdateCleaned UpdateKind = "cleaned"
)

// Update is pushed to subscribers whenever a chart is rebuilt. Chart is nil
// when there is nothing to render.
type Update struct {
	Kind  UpdateKind      `json:"kind"`
	Chart *plot.ChartSpec `json:"chart"`
}

// =============================================================================
// Session
// =============================================================================

// Session is the viewing state of one operator.
type Session struct {
	id        string
	createdAt time.Time
	charts    *plot.Builder
	cleaned   *plot.Builder
	flight    singleflight.Group

	mu           sync.Mutex
	well         string
	generation   uint64
	selection    datatypes.Selection
	depth        DepthRange
	samples      []datatypes.CurveSample
	ranges       *plot.AxisRangeCache
	interp       *datatypes.InterpretationResult
	lastActivity time.Time
	subscribers  map[int]chan Update
	nextSub      int
}

// New returns an empty session with the standard chart layouts.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		createdAt:    now,
		charts:       plot.NewCurveChartBuilder(),
		cleaned:      plot.NewCleanedChartBuilder(),
		ranges:       plot.NewAxisRangeCache(),
		lastActivity: now,
		subscribers:  make(map[int]chan Update),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Well returns the selected well, or "" when none is selected.
func (s *Session) Well() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.well
}

// Tag returns the identity of the current state, for tagging a request.
func (s *Session) Tag() Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Tag{Generation: s.generation, Well: s.well}
}

// SelectWell switches to well and discards everything tied to the previous
// one: samples, cached ranges, selection, depth bounds and interpretation.
// Selecting "" leaves the session without a well.
func (s *Session) SelectWell(well string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.well = well
	s.generation++
	s.selection = datatypes.Selection{}
	s.depth = DepthRange{}
	s.samples = nil
	s.ranges = plot.NewAxisRangeCache()
	s.interp = nil
	s.touchLocked()
	s.notifyLocked()
}

// ToggleCurve adds curve to the selection, or removes it if present.
//
// Adding a fourth curve is a no-op, not an error. It returns whether curve
// is selected afterwards.
func (s *Session) ToggleCurve(curve string) (bool, error) {
	if !datatypes.IsSelectable(curve) {
		return false, fmt.Errorf("%w: %q", ErrNotSelectable, curve)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.well == "" {
		return false, ErrNoWell
	}

	before := s.selection.Key()
	selected := s.selection.Toggle(curve)
	if s.selection.Key() != before {
		s.generation++
		s.touchLocked()
		s.notifyLocked()
	}
	return selected, nil
}

// SetDepthRange changes the depth bounds used by the next load.
func (s *Session) SetDepthRange(d DepthRange) error {
	if err := d.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.well == "" {
		return ErrNoWell
	}
	s.depth = DepthRange{Top: copyFloat(d.Top), Bottom: copyFloat(d.Bottom)}
	s.generation++
	s.touchLocked()
	return nil
}

// Selection returns the selected curve names in order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Names()
}

// State returns a snapshot of the session for API clients.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:           s.id,
		Well:         s.well,
		Selection:    s.selection.Names(),
		Depth:        DepthRange{Top: copyFloat(s.depth.Top), Bottom: copyFloat(s.depth.Bottom)},
		SampleCount:  len(s.samples),
		AxisRanges:   s.ranges.Snapshot(),
		Interpreted:  s.interp != nil,
		Summary:      s.interp.SummaryText(),
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}

// =============================================================================
// Applying Responses
// =============================================================================

// ApplySamples replaces the sample store with a batch fetched under tag.
//
// # Description
//
// The batch is dropped with ErrStaleResponse when the session changed since
// tag was taken. Otherwise every selected curve without a cached range gets
// one computed from this batch, if the batch has numeric readings for it.
//
// # Outputs
//
//   - []string: Curves whose range was cached by this batch.
//   - error: ErrStaleResponse, or nil.
func (s *Session) ApplySamples(tag Tag, samples []datatypes.CurveSample) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag.Generation != s.generation {
		return nil, ErrStaleResponse
	}

	s.samples = samples
	var cached []string
	for _, curve := range s.selection.Names() {
		if _, ok := s.ranges.Lookup(curve); ok {
			continue
		}
		if _, ok := s.ranges.GetOrCompute(curve, samples); ok {
			cached = append(cached, curve)
		}
	}
	s.touchLocked()
	s.notifyLocked()
	return cached, nil
}

// ApplyInterpretation replaces the interpretation with one fetched under tag.
func (s *Session) ApplyInterpretation(tag Tag, result *datatypes.InterpretationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag.Generation != s.generation {
		return ErrStaleResponse
	}
	if result == nil {
		result = &datatypes.InterpretationResult{}
	}
	s.interp = result
	s.touchLocked()
	s.notifyLocked()
	return nil
}

// =============================================================================
// Charts
// =============================================================================

// Chart builds the multi-track curve chart from the current state.
//
// It returns a nil spec, and no error, when no curve is selected: there is
// nothing to render and the caller must not render an empty chart.
func (s *Session) Chart() (*plot.ChartSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chartLocked()
}

// CleanedChart builds the cleaned-curve overlay. It returns a nil spec when
// the interpretation holds no usable cleaned curve.
func (s *Session) CleanedChart() (*plot.ChartSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanedLocked()
}

// Summary returns the interpretation summary or the placeholder text.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interp.SummaryText()
}

func (s *Session) chartLocked() (*plot.ChartSpec, error) {
	curves := s.selection.Names()
	if len(curves) == 0 {
		return nil, nil
	}
	traces := plot.AssembleTraces(s.samples, curves, s.interp)
	axes := plot.LayoutAxes(curves, s.ranges)
	return s.charts.Build(traces, axes)
}

func (s *Session) cleanedLocked() (*plot.ChartSpec, error) {
	traces := plot.AssembleCleanedTraces(s.interp)
	if len(traces) == 0 {
		return nil, nil
	}
	return s.cleaned.Build(traces, plot.CleanedAxes())
}

// =============================================================================
// External Calls
// =============================================================================

// Load fetches samples for the current well, selection and depth range.
//
// # Description
//
// Concurrent Load calls on one session and generation share a single fetch.
// The fetch is detached from ctx cancellation so an operator navigating away
// does not abort a call other requests are waiting on. The response is applied only
// if the session has not changed meanwhile.
//
// # Outputs
//
//   - LoadResult: The rebuilt chart (nil when nothing is selected) and the
//     curves whose range this batch cached.
//   - error: ErrNoWell, ErrStaleResponse, plot.ErrInvalidSpec, or the
//     fetcher's error. On error the session is unchanged.
func (s *Session) Load(ctx context.Context, fetcher SampleFetcher) (LoadResult, error) {
	detached := context.WithoutCancel(ctx)

	s.mu.Lock()
	tag := Tag{Generation: s.generation, Well: s.well}
	curves := s.selection.Names()
	q := datatypes.SampleQuery{
		Well:   s.well,
		Curves: curves,
		Top:    copyFloat(s.depth.Top),
		Bottom: copyFloat(s.depth.Bottom),
	}
	s.mu.Unlock()

	if tag.Well == "" {
		return LoadResult{}, ErrNoWell
	}

	// Only calls issued for the same generation share a fetch.
	v, err, shared := s.flight.Do(flightKey("load", tag), func() (interface{}, error) {
		if len(curves) == 0 {
			return []string(nil), nil
		}

		samples, err := fetcher.FetchSamples(detached, q)
		if err != nil {
			return nil, err
		}
		cached, err := s.ApplySamples(tag, samples)
		if err != nil {
			slog.Info("Discarding stale sample batch", "session_id", s.id, "well", tag.Well,
				"generation", tag.Generation)
			return nil, err
		}
		return cached, nil
	})
	if shared {
		slog.Debug("Load joined an in-flight fetch", "session_id", s.id)
	}
	if err != nil {
		return LoadResult{}, err
	}

	chart, err := s.Chart()
	if err != nil {
		return LoadResult{}, err
	}
	cached, _ := v.([]string)
	return LoadResult{Chart: chart, RangesCached: cached}, nil
}

// Interpret asks the AI service to interpret the current selection and
// replaces the session's interpretation with the answer.
//
// Concurrent calls share one request, as with Load.
func (s *Session) Interpret(ctx context.Context, interpreter Interpreter) (InterpretOutcome, error) {
	detached := context.WithoutCancel(ctx)

	s.mu.Lock()
	tag := Tag{Generation: s.generation, Well: s.well}
	req := datatypes.InterpretRequest{
		Well:   s.well,
		Curves: s.selection.Names(),
		Top:    copyFloat(s.depth.Top),
		Bottom: copyFloat(s.depth.Bottom),
	}
	s.mu.Unlock()

	if tag.Well == "" {
		return InterpretOutcome{}, ErrNoWell
	}

	_, err, _ := s.flight.Do(flightKey("interpret", tag), func() (interface{}, error) {
		result, err := interpreter.Interpret(detached, req)
		if err != nil {
			return nil, err
		}
		if err := s.ApplyInterpretation(tag, result); err != nil {
			slog.Info("Discarding stale interpretation", "session_id", s.id, "well", tag.Well,
				"generation", tag.Generation)
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return InterpretOutcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chart, err := s.chartLocked()
	if err != nil {
		return InterpretOutcome{}, err
	}
	cleaned, err := s.cleanedLocked()
	if err != nil {
		return InterpretOutcome{}, err
	}
	return InterpretOutcome{Summary: s.interp.SummaryText(), Chart: chart, Cleaned: cleaned}, nil
}

// Chat sends one chat turn with the selected well as context.
//
// Concurrent calls with the same message share one request, detached from
// ctx cancellation as with Load.
func (s *Session) Chat(ctx context.Context, chatter Chatter, message string) (string, error) {
	detached := context.WithoutCancel(ctx)
	well := s.Well()
	key := "chat\x00" + well + "\x00" + message
	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		resp, err := chatter.Chat(detached, datatypes.ChatRequest{Well: well, Message: message})
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return "", nil
		}
		return resp.Reply, nil
	})
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.touchLocked()
	s.mu.Unlock()
	reply, _ := v.(string)
	return reply, nil
}

// flightKey scopes a shared call to the session state it was issued for.
func flightKey(action string, tag Tag) string {
	return fmt.Sprintf("%s:%d", action, tag.Generation)
}

// =============================================================================
// Subscriptions
// =============================================================================

// Subscribe registers for chart updates. The returned cancel function must
// be called to release the subscription; it closes the channel.
//
// Slow subscribers miss updates rather than block the session.
func (s *Session) Subscribe() (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Update, 8)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(c)
			}
		})
	}
}

// Close releases every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Session) notifyLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	chart, err := s.chartLocked()
	if err != nil {
		slog.Error("Failed to build chart for subscribers", "session_id", s.id, "error", err)
		return
	}
	cleaned, err := s.cleanedLocked()
	if err != nil {
		slog.Error("Failed to build cleaned chart for subscribers", "session_id", s.id, "error", err)
		return
	}
	for _, ch := range s.subscribers {
		for _, u := range []Update{{Kind: UpdateChart, Chart: chart}, {Kind: UpdateCleaned, Chart: cleaned}} {
			select {
			case ch <- u:
			default:
			}
		}
	}
}

func (s *Session) touchLocked() {
	s.lastActivity = time.Now()
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
