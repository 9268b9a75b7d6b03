// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package plot turns curve samples and AI output into chart specifications.
//
// # Description
//
// The package is the viewer's transform core:
//
//	samples ──► AxisRangeCache.GetOrCompute ──┐
//	                                          ▼
//	samples, curves, interp ──► AssembleTraces ──► Builder.Build ──► ChartSpec
//	curves, ranges ─────────► LayoutAxes ─────────┘
//
// Everything here is synchronous and free of I/O. ChartSpec is the only
// shape handed to a renderer, so nothing in this package depends on a
// plotting library.
//
// # Thread Safety
//
// AxisRangeCache is safe for concurrent use. All other functions are pure.
package plot

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec reports traces and axes that disagree. It signals a
// programming error, not bad input data.
var ErrInvalidSpec = errors.New("invalid chart spec")

// ErrEmptyChart is returned when Build is asked to compose a chart with no
// traces. Callers are expected to skip rendering instead.
var ErrEmptyChart = errors.New("chart has no traces")

// =============================================================================
// Chart Specification
// =============================================================================

// LegendPlacement positions the legend.
type LegendPlacement struct {
	Orientation string  `json:"orientation"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Margins are the plot margins in pixels.
type Margins struct {
	Left   int `json:"l"`
	Right  int `json:"r"`
	Top    int `json:"t"`
	Bottom int `json:"b"`
}

// Layout is the chart-wide metadata.
type Layout struct {
	Title      string          `json:"title"`
	Background string          `json:"background"`
	Legend     LegendPlacement `json:"legend"`
	Height     int             `json:"height"`
	Margin     Margins         `json:"margin"`
}

// ChartSpec is a complete, renderer-independent chart.
type ChartSpec struct {
	Traces []TraceDefinition `json:"traces"`
	Axes   []AxisConfig      `json:"axes"`
	XAxis  XAxisConfig       `json:"x_axis"`
	Layout Layout            `json:"layout"`
}

// =============================================================================
// Builder
// =============================================================================

// Builder composes traces and axes into a ChartSpec using fixed layout
// defaults. A Builder is immutable after construction and can be shared.
type Builder struct {
	layout Layout
}

// NewBuilder returns a Builder that stamps layout onto every chart.
func NewBuilder(layout Layout) *Builder {
	return &Builder{layout: layout}
}

// NewCurveChartBuilder is the Builder for the multi-track curve chart.
func NewCurveChartBuilder() *Builder {
	return NewBuilder(Layout{
		Title:      "Well Log Curves",
		Background: "#ffffff",
		Legend:     LegendPlacement{Orientation: "h", X: 0, Y: 1.08},
		Height:     700,
		Margin:     Margins{Left: 70, Right: 70, Top: 60, Bottom: 50},
	})
}

// NewCleanedChartBuilder is the Builder for the cleaned-curve overlay.
func NewCleanedChartBuilder() *Builder {
	return NewBuilder(Layout{
		Title:      "AI Cleaned Curves",
		Background: "#fafafa",
		Legend:     LegendPlacement{Orientation: "h", X: 0, Y: 1.08},
		Height:     450,
		Margin:     Margins{Left: 70, Right: 30, Top: 60, Bottom: 50},
	})
}

// Build composes traces and axes into a ChartSpec.
//
// # Description
//
// Build copies its inputs into a fresh spec on every call; there is no
// incremental update. It fails with ErrInvalidSpec when a trace names an
// axis that axes does not contain, or when a trace's X and Y lengths
// differ, and with ErrEmptyChart when traces is empty.
//
// # Inputs
//
//   - traces: Output of AssembleTraces or AssembleCleanedTraces.
//   - axes: Output of LayoutAxes or CleanedAxes for the same curves.
//
// # Outputs
//
//   - *ChartSpec: The composed chart.
//   - error: Wraps ErrInvalidSpec or ErrEmptyChart.
func (b *Builder) Build(traces []TraceDefinition, axes []AxisConfig) (*ChartSpec, error) {
	if len(traces) == 0 {
		return nil, ErrEmptyChart
	}

	known := make(map[int]struct{}, len(axes))
	for _, ax := range axes {
		if _, dup := known[ax.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate axis %d", ErrInvalidSpec, ax.ID)
		}
		known[ax.ID] = struct{}{}
	}
	for i, tr := range traces {
		if _, ok := known[tr.AxisRef]; !ok {
			return nil, fmt.Errorf("%w: trace %d (%s) references unknown axis %d",
				ErrInvalidSpec, i, tr.Label, tr.AxisRef)
		}
		if len(tr.X) != len(tr.Y) {
			return nil, fmt.Errorf("%w: trace %d (%s) has %d x values and %d y values",
				ErrInvalidSpec, i, tr.Label, len(tr.X), len(tr.Y))
		}
	}

	spec := &ChartSpec{
		Traces: make([]TraceDefinition, len(traces)),
		Axes:   make([]AxisConfig, len(axes)),
		XAxis:  XAxisConfig{Title: DepthAxisTitle, ShowGrid: true},
		Layout: b.layout,
	}
	copy(spec.Traces, traces)
	copy(spec.Axes, axes)
	return spec, nil
}
