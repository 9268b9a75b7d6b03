// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plot

import (
	"math"
	"sort"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
)

// =============================================================================
// Trace Definitions
// =============================================================================

// TraceKind says how a trace is drawn.
type TraceKind string

const (
	// KindLine connects consecutive points; nil Y values break the line.
	KindLine TraceKind = "line"
	// KindMarker draws each point on its own.
	KindMarker TraceKind = "marker"
)

// TraceStyle carries the visual hints a renderer needs to tell traces apart.
type TraceStyle struct {
	Color        string  `json:"color"`
	Width        float64 `json:"width,omitempty"`
	MarkerSize   float64 `json:"marker_size,omitempty"`
	MarkerSymbol string  `json:"marker_symbol,omitempty"`
}

// TraceDefinition is one renderable series.
//
// X holds depths, Y the values at those depths. A nil Y entry is a gap and
// must not be drawn as zero. AxisRef names the AxisConfig the trace is
// scaled against.
type TraceDefinition struct {
	X       []float64  `json:"x"`
	Y       []*float64 `json:"y"`
	Kind    TraceKind  `json:"kind"`
	Label   string     `json:"label"`
	Curve   string     `json:"curve"`
	AxisRef int        `json:"axis"`
	Style   TraceStyle `json:"style"`
}

var (
	linePalette    = []string{"#1f77b4", "#2ca02c", "#9467bd"}
	markerPalette  = []string{"#d62728", "#ff7f0e", "#e377c2"}
	cleanedPalette = []string{"#17becf", "#bcbd22", "#8c564b", "#7f7f7f"}
)

func paletteColor(palette []string, i int) string {
	return palette[i%len(palette)]
}

// =============================================================================
// Trace Assembly
// =============================================================================

// AssembleTraces turns the loaded samples into the traces of the main chart.
//
// # Description
//
// For each curve, in selection order, a line trace spans every sample (gaps
// where the curve has no numeric reading). When the interpretation flags
// spike depths for the curve, a marker trace follows over exactly the
// samples whose depth equals one of those depths. Both traces for curve i
// reference axis i.
//
// # Inputs
//
//   - samples: Loaded samples in store order. Duplicated depths are kept.
//   - curves: Selected curve names in order.
//   - interp: Latest interpretation. May be nil.
//
// # Outputs
//
//   - []TraceDefinition: Empty when curves is empty.
//
// # Limitations
//
//   - Spike matching uses exact float equality. A depth rounded differently
//     by the AI service will not match.
func AssembleTraces(samples []datatypes.CurveSample, curves []string,
	interp *datatypes.InterpretationResult) []TraceDefinition {

	traces := make([]TraceDefinition, 0, 2*len(curves))
	for i, curve := range curves {
		traces = append(traces, lineTrace(samples, curve, i))

		spikes := interp.SpikeDepths(curve)
		if len(spikes) == 0 {
			continue
		}
		traces = append(traces, spikeTrace(samples, curve, i, spikes))
	}
	return traces
}

func lineTrace(samples []datatypes.CurveSample, curve string, axis int) TraceDefinition {
	x := make([]float64, len(samples))
	y := make([]*float64, len(samples))
	for j, s := range samples {
		x[j] = s.Depth
		if v, ok := s.Value(curve); ok {
			y[j] = &v
		}
	}
	return TraceDefinition{
		X:       x,
		Y:       y,
		Kind:    KindLine,
		Label:   curve,
		Curve:   curve,
		AxisRef: axis,
		Style:   TraceStyle{Color: paletteColor(linePalette, axis), Width: 1.5},
	}
}

func spikeTrace(samples []datatypes.CurveSample, curve string, axis int, spikes []float64) TraceDefinition {
	at := make(map[float64]struct{}, len(spikes))
	for _, d := range spikes {
		at[d] = struct{}{}
	}

	x := make([]float64, 0, len(spikes))
	y := make([]*float64, 0, len(spikes))
	for _, s := range samples {
		if _, hit := at[s.Depth]; !hit {
			continue
		}
		x = append(x, s.Depth)
		if v, ok := s.Value(curve); ok {
			y = append(y, &v)
		} else {
			y = append(y, nil)
		}
	}
	return TraceDefinition{
		X:       x,
		Y:       y,
		Kind:    KindMarker,
		Label:   curve + " spikes",
		Curve:   curve,
		AxisRef: axis,
		Style: TraceStyle{
			Color:        paletteColor(markerPalette, axis),
			MarkerSize:   8,
			MarkerSymbol: "x",
		},
	}
}

// AssembleCleanedTraces builds the traces of the cleaned-curve overlay.
//
// # Description
//
// One line trace per cleaned curve, independent of the current selection.
// Curves are visited in name order so repeated builds are identical. Entries
// with no depths or no values are skipped; when the two lengths differ the
// longer one is truncated. Every trace references axis 0.
func AssembleCleanedTraces(interp *datatypes.InterpretationResult) []TraceDefinition {
	if interp == nil || len(interp.CleanedCurves) == 0 {
		return nil
	}

	names := make([]string, 0, len(interp.CleanedCurves))
	for name := range interp.CleanedCurves {
		names = append(names, name)
	}
	sort.Strings(names)

	var traces []TraceDefinition
	for _, name := range names {
		cc := interp.CleanedCurves[name]
		if len(cc.Depths) == 0 || len(cc.Values) == 0 {
			continue
		}
		n := min(len(cc.Depths), len(cc.Values))

		x := make([]float64, n)
		y := make([]*float64, n)
		copy(x, cc.Depths[:n])
		for j := 0; j < n; j++ {
			if v := cc.Values[j]; v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
				val := *v
				y[j] = &val
			}
		}
		traces = append(traces, TraceDefinition{
			X:       x,
			Y:       y,
			Kind:    KindLine,
			Label:   name + " (cleaned)",
			Curve:   name,
			AxisRef: 0,
			Style:   TraceStyle{Color: paletteColor(cleanedPalette, len(traces)), Width: 1.5},
		})
	}
	return traces
}
