// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package plot

import (
	"testing"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yValues(tr TraceDefinition) []any {
	out := make([]any, len(tr.Y))
	for i, v := range tr.Y {
		if v == nil {
			out[i] = nil
		} else {
			out[i] = *v
		}
	}
	return out
}

func linesOf(traces []TraceDefinition) []TraceDefinition {
	var out []TraceDefinition
	for _, tr := range traces {
		if tr.Kind == KindLine {
			out = append(out, tr)
		}
	}
	return out
}

// =============================================================================
// AssembleTraces Tests
// =============================================================================

func TestAssembleTraces_EmptySelection(t *testing.T) {
	samples := []datatypes.CurveSample{sample(0, map[string]*float64{"GR": fp(1)})}
	assert.Empty(t, AssembleTraces(samples, nil, nil))
	assert.Empty(t, AssembleTraces(samples, []string{}, &datatypes.InterpretationResult{}))
}

func TestAssembleTraces_OneLinePerCurveInOrder(t *testing.T) {
	cases := []struct {
		name    string
		samples []datatypes.CurveSample
	}{
		{"no samples", nil},
		{"only other curves", []datatypes.CurveSample{sample(0, map[string]*float64{"DT": fp(1)})}},
		{"full", []datatypes.CurveSample{
			sample(0, map[string]*float64{"GR": fp(1), "RHOB": fp(2), "NPHI": fp(3)}),
		}},
	}
	curves := []string{"NPHI", "GR", "RHOB"}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines := linesOf(AssembleTraces(tc.samples, curves, nil))
			require.Len(t, lines, 3)
			for i, tr := range lines {
				assert.Equal(t, curves[i], tr.Curve)
				assert.Equal(t, i, tr.AxisRef)
			}
		})
	}
}

func TestAssembleTraces_GapsForMissingValues(t *testing.T) {
	samples := []datatypes.CurveSample{
		sample(100, map[string]*float64{"GR": fp(40)}),
		sample(101, map[string]*float64{}),
		sample(102, map[string]*float64{"GR": nil}),
		sample(103, map[string]*float64{"GR": fp(55)}),
	}

	traces := AssembleTraces(samples, []string{"GR"}, nil)
	require.Len(t, traces, 1)

	tr := traces[0]
	assert.Equal(t, []float64{100, 101, 102, 103}, tr.X)
	if diff := cmp.Diff([]any{40.0, nil, nil, 55.0}, yValues(tr)); diff != "" {
		t.Errorf("y values mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleTraces_AllGapsStillEmitsLine(t *testing.T) {
	samples := []datatypes.CurveSample{
		sample(1, map[string]*float64{"RHOB": fp(2.1)}),
		sample(2, map[string]*float64{"RHOB": fp(2.2)}),
	}
	traces := AssembleTraces(samples, []string{"GR"}, nil)
	require.Len(t, traces, 1)
	assert.Equal(t, []any{nil, nil}, yValues(traces[0]))
}

func TestAssembleTraces_SpikeMarkersExactMatch(t *testing.T) {
	samples := []datatypes.CurveSample{
		sample(90, map[string]*float64{"GR": fp(1)}),
		sample(100, map[string]*float64{"GR": fp(2)}),
		sample(110, map[string]*float64{"GR": fp(3)}),
		sample(150, map[string]*float64{"GR": fp(4)}),
		sample(200, map[string]*float64{"GR": fp(5)}),
	}
	interp := &datatypes.InterpretationResult{Stats: map[string]datatypes.CurveStats{
		"GR": {SpikeDepths: []float64{100, 150}},
	}}

	traces := AssembleTraces(samples, []string{"GR"}, interp)
	require.Len(t, traces, 2)

	marker := traces[1]
	assert.Equal(t, KindMarker, marker.Kind)
	assert.Equal(t, []float64{100, 150}, marker.X)
	assert.Equal(t, []any{2.0, 4.0}, yValues(marker))
	assert.Equal(t, 0, marker.AxisRef)
	assert.NotEqual(t, traces[0].Style.Color, marker.Style.Color)
}

func TestAssembleTraces_SpikeWithoutToleranceDoesNotMatch(t *testing.T) {
	samples := []datatypes.CurveSample{sample(100.0001, map[string]*float64{"GR": fp(1)})}
	interp := &datatypes.InterpretationResult{Stats: map[string]datatypes.CurveStats{
		"GR": {SpikeDepths: []float64{100}},
	}}

	traces := AssembleTraces(samples, []string{"GR"}, interp)
	require.Len(t, traces, 2)
	assert.Empty(t, traces[1].X)
}

func TestAssembleTraces_DuplicateDepthsPreserved(t *testing.T) {
	samples := []datatypes.CurveSample{
		sample(5, map[string]*float64{"GR": fp(1)}),
		sample(5, map[string]*float64{"GR": fp(2)}),
	}
	interp := &datatypes.InterpretationResult{Stats: map[string]datatypes.CurveStats{
		"GR": {SpikeDepths: []float64{5}},
	}}

	traces := AssembleTraces(samples, []string{"GR"}, interp)
	require.Len(t, traces, 2)
	assert.Equal(t, []float64{5, 5}, traces[0].X)
	assert.Equal(t, []float64{5, 5}, traces[1].X)
}

func TestAssembleTraces_MarkersFollowTheirCurve(t *testing.T) {
	samples := []datatypes.CurveSample{
		sample(1, map[string]*float64{"GR": fp(1), "RHOB": fp(2)}),
	}
	interp := &datatypes.InterpretationResult{Stats: map[string]datatypes.CurveStats{
		"GR":   {SpikeDepths: []float64{1}},
		"RHOB": {SpikeDepths: []float64{1}},
	}}

	traces := AssembleTraces(samples, []string{"GR", "RHOB"}, interp)
	require.Len(t, traces, 4)

	kinds := []TraceKind{traces[0].Kind, traces[1].Kind, traces[2].Kind, traces[3].Kind}
	assert.Equal(t, []TraceKind{KindLine, KindMarker, KindLine, KindMarker}, kinds)
	assert.Equal(t, 1, traces[3].AxisRef)
	assert.NotEqual(t, traces[1].Style.Color, traces[3].Style.Color)
}

func TestAssembleTraces_EmptySpikesNoMarker(t *testing.T) {
	samples := []datatypes.CurveSample{sample(1, map[string]*float64{"GR": fp(1)})}
	interp := &datatypes.InterpretationResult{Stats: map[string]datatypes.CurveStats{
		"GR": {SpikeDepths: []float64{}},
	}}
	assert.Len(t, AssembleTraces(samples, []string{"GR"}, interp), 1)
}

func TestAssembleTraces_DoesNotAliasSamples(t *testing.T) {
	v := 10.0
	samples := []datatypes.CurveSample{sample(1, map[string]*float64{"GR": &v})}
	traces := AssembleTraces(samples, []string{"GR"}, nil)
	v = 99
	assert.Equal(t, 10.0, *traces[0].Y[0])
}

// =============================================================================
// AssembleCleanedTraces Tests
// =============================================================================

func TestAssembleCleanedTraces_IndependentOfSelection(t *testing.T) {
	interp := &datatypes.InterpretationResult{CleanedCurves: map[string]datatypes.CleanedCurve{
		"GR": {Depths: []float64{1, 2, 3}, Values: []*float64{fp(10), fp(20), fp(30)}},
	}}

	traces := AssembleCleanedTraces(interp)
	require.Len(t, traces, 1)
	assert.Equal(t, []float64{1, 2, 3}, traces[0].X)
	assert.Equal(t, []any{10.0, 20.0, 30.0}, yValues(traces[0]))
	assert.Equal(t, 0, traces[0].AxisRef)
	assert.Equal(t, KindLine, traces[0].Kind)
}

func TestAssembleCleanedTraces_SkipsIncompleteEntries(t *testing.T) {
	interp := &datatypes.InterpretationResult{CleanedCurves: map[string]datatypes.CleanedCurve{
		"A": {Depths: []float64{1}},
		"B": {Values: []*float64{fp(1)}},
		"C": {},
		"D": {Depths: []float64{1, 2}, Values: []*float64{fp(5), nil}},
	}}

	traces := AssembleCleanedTraces(interp)
	require.Len(t, traces, 1)
	assert.Equal(t, "D", traces[0].Curve)
	assert.Equal(t, []any{5.0, nil}, yValues(traces[0]))
}

func TestAssembleCleanedTraces_DeterministicOrder(t *testing.T) {
	interp := &datatypes.InterpretationResult{CleanedCurves: map[string]datatypes.CleanedCurve{
		"RHOB": {Depths: []float64{1}, Values: []*float64{fp(1)}},
		"DT":   {Depths: []float64{1}, Values: []*float64{fp(1)}},
		"GR":   {Depths: []float64{1}, Values: []*float64{fp(1)}},
	}}

	for i := 0; i < 5; i++ {
		traces := AssembleCleanedTraces(interp)
		require.Len(t, traces, 3)
		assert.Equal(t, []string{"DT", "GR", "RHOB"},
			[]string{traces[0].Curve, traces[1].Curve, traces[2].Curve})
	}
}

func TestAssembleCleanedTraces_TruncatesMismatchedLengths(t *testing.T) {
	interp := &datatypes.InterpretationResult{CleanedCurves: map[string]datatypes.CleanedCurve{
		"GR": {Depths: []float64{1, 2, 3}, Values: []*float64{fp(1), fp(2)}},
	}}
	traces := AssembleCleanedTraces(interp)
	require.Len(t, traces, 1)
	assert.Len(t, traces[0].X, 2)
	assert.Len(t, traces[0].Y, 2)
}

func TestAssembleCleanedTraces_NothingToRender(t *testing.T) {
	assert.Empty(t, AssembleCleanedTraces(nil))
	assert.Empty(t, AssembleCleanedTraces(&datatypes.InterpretationResult{}))
}
