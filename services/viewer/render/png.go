// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render draws a plot.ChartSpec as a PNG with go-chart.
//
// # Description
//
// The spec's first axis becomes the primary y-axis and its second axis the
// secondary one. go-chart has only two y-axes, so any further axis is
// linearly remapped onto the primary scale and its legend entry carries the
// original bounds. A fixed axis range is used exactly as given; auto ranges
// are widened to nice bounds.
//
// Gaps break a line: each run of consecutive readings is its own series, and
// an isolated reading is drawn as a dot.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/plot"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// noStroke is below zero so go-chart does not substitute its default width.
const noStroke = -1

var (
	gridColor     = drawing.ColorFromHex("e0e0e0")
	fallbackColor = drawing.ColorFromHex("555555")
)

// Options sizes the image. A zero Height uses the spec's layout height.
type Options struct {
	Width  int
	Height int
}

// PNG renders spec to w.
//
// # Outputs
//
//   - error: Wraps plot.ErrEmptyChart for a nil or trace-less spec, or
//     plot.ErrInvalidSpec when a trace names an unknown axis.
func PNG(w io.Writer, spec *plot.ChartSpec, opts Options) error {
	if spec == nil || len(spec.Traces) == 0 {
		return fmt.Errorf("render: %w", plot.ErrEmptyChart)
	}
	if len(spec.Axes) == 0 {
		return fmt.Errorf("render: %w: no axes", plot.ErrInvalidSpec)
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 1200
	}
	if height <= 0 {
		height = spec.Layout.Height
	}
	if height <= 0 {
		height = 700
	}

	role := make(map[int]int, len(spec.Axes))
	ranges := make(map[int]valueRange, len(spec.Axes))
	for i, ax := range spec.Axes {
		role[ax.ID] = i
		ranges[ax.ID] = axisRange(ax, spec.Traces)
	}
	primaryAxis := spec.Axes[0]
	primary := ranges[primaryAxis.ID]

	var series []chart.Series
	var legend []chart.Series
	for _, tr := range spec.Traces {
		r, ok := role[tr.AxisRef]
		if !ok {
			return fmt.Errorf("render: %w: trace %q references axis %d", plot.ErrInvalidSpec, tr.Label, tr.AxisRef)
		}
		yAxis := chart.YAxisPrimary
		mapY := func(v float64) float64 { return v }
		label := tr.Label
		switch {
		case r == 1:
			yAxis = chart.YAxisSecondary
		case r >= 2:
			own := ranges[tr.AxisRef]
			mapY = func(v float64) float64 { return own.remap(v, primary) }
			label = fmt.Sprintf("%s [%s..%s]", tr.Label, formatTick(own.min), formatTick(own.max))
		}

		col := traceColor(tr.Style.Color)
		series = append(series, traceSeries(tr, col, yAxis, mapY)...)
		legend = append(legend, chart.ContinuousSeries{
			Name:    label,
			XValues: []float64{0, 1},
			YValues: []float64{0, 0},
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2},
		})
	}

	depth := depthRange(spec.Traces)
	if len(series) == 0 {
		// All gaps. go-chart refuses a chart without series.
		series = append(series, chart.ContinuousSeries{
			XValues: []float64{depth.min, depth.max},
			YValues: []float64{primary.min, primary.min},
			Style:   chart.Style{Hidden: true},
		})
	}
	ch := chart.Chart{
		Title:  spec.Layout.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: traceColorOr(spec.Layout.Background, drawing.ColorWhite),
			Padding:   padding(spec.Layout.Margin),
		},
		XAxis: chart.XAxis{
			Name:           spec.XAxis.Title,
			Range:          depth.continuous(),
			Ticks:          niceTicks(depth.min, depth.max, 8),
			GridMajorStyle: gridStyle(spec.XAxis.ShowGrid),
			GridMinorStyle: gridStyle(false),
		},
		YAxis:  yAxisFor(primaryAxis, primary),
		Series: series,
	}
	if len(spec.Axes) > 1 {
		secondaryAxis := spec.Axes[1]
		ch.YAxisSecondary = yAxisFor(secondaryAxis, ranges[secondaryAxis.ID])
	}

	legendSource := chart.Chart{Series: legend}
	ch.Elements = []chart.Renderable{chart.Legend(&legendSource)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

func padding(m plot.Margins) chart.Box {
	if m == (plot.Margins{}) {
		return chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}
	}
	return chart.Box{Top: m.Top, Left: m.Left, Right: m.Right, Bottom: m.Bottom}
}

func yAxisFor(ax plot.AxisConfig, r valueRange) chart.YAxis {
	return chart.YAxis{
		Name:           ax.Title,
		Range:          r.continuous(),
		Ticks:          niceTicks(r.min, r.max, 6),
		GridMajorStyle: gridStyle(ax.ShowGrid),
		GridMinorStyle: gridStyle(false),
	}
}

func gridStyle(show bool) chart.Style {
	if !show {
		return chart.Style{Hidden: true}
	}
	return chart.Style{StrokeColor: gridColor, StrokeWidth: 1}
}

// traceSeries turns one trace into go-chart series: markers become a single
// dot series, lines one series per unbroken run.
func traceSeries(tr plot.TraceDefinition, col drawing.Color, yAxis chart.YAxisType,
	mapY func(float64) float64) []chart.Series {

	if tr.Kind == plot.KindMarker {
		var xs, ys []float64
		for i := range tr.X {
			if v, ok := finiteAt(tr.Y, i); ok {
				xs = append(xs, tr.X[i])
				ys = append(ys, mapY(v))
			}
		}
		if len(xs) == 0 {
			return nil
		}
		size := tr.Style.MarkerSize
		if size <= 0 {
			size = 8
		}
		return []chart.Series{chart.ContinuousSeries{
			XValues: xs,
			YValues: ys,
			YAxis:   yAxis,
			Style:   chart.Style{StrokeWidth: noStroke, DotColor: col, DotWidth: size / 2},
		}}
	}

	width := tr.Style.Width
	if width <= 0 {
		width = 1.5
	}
	var out []chart.Series
	for _, seg := range segments(tr) {
		xs, ys := seg.xs, make([]float64, len(seg.ys))
		for i, v := range seg.ys {
			ys[i] = mapY(v)
		}
		style := chart.Style{StrokeColor: col, StrokeWidth: width}
		if len(xs) == 1 {
			xs = []float64{xs[0], xs[0]}
			ys = []float64{ys[0], ys[0]}
			style = chart.Style{StrokeWidth: noStroke, DotColor: col, DotWidth: width + 1}
		}
		out = append(out, chart.ContinuousSeries{XValues: xs, YValues: ys, YAxis: yAxis, Style: style})
	}
	return out
}

type segment struct {
	xs, ys []float64
}

// segments splits a line trace at its gaps.
func segments(tr plot.TraceDefinition) []segment {
	var out []segment
	var cur segment
	flush := func() {
		if len(cur.xs) > 0 {
			out = append(out, cur)
		}
		cur = segment{}
	}
	for i := range tr.X {
		v, ok := finiteAt(tr.Y, i)
		if !ok {
			flush()
			continue
		}
		cur.xs = append(cur.xs, tr.X[i])
		cur.ys = append(cur.ys, v)
	}
	flush()
	return out
}

func finiteAt(ys []*float64, i int) (float64, bool) {
	if i >= len(ys) || ys[i] == nil {
		return 0, false
	}
	v := *ys[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// axisRange returns the fixed range of ax, or nice bounds around the values
// of the traces drawn against it.
func axisRange(ax plot.AxisConfig, traces []plot.TraceDefinition) valueRange {
	if ax.Range != nil {
		r := valueRange{min: ax.Range[0], max: ax.Range[1]}
		if r.max <= r.min {
			r = valueRange{min: r.min - 0.5, max: r.min + 0.5}
		}
		return r
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, tr := range traces {
		if tr.AxisRef != ax.ID {
			continue
		}
		for i := range tr.Y {
			if v, ok := finiteAt(tr.Y, i); ok {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if math.IsInf(lo, 1) {
		return valueRange{min: 0, max: 1}
	}
	a, b := niceAxisBounds(lo, hi)
	return valueRange{min: a, max: b}
}

func depthRange(traces []plot.TraceDefinition) valueRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, tr := range traces {
		for _, x := range tr.X {
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
	}
	if math.IsInf(lo, 1) {
		return valueRange{min: 0, max: 1}
	}
	if hi <= lo {
		return valueRange{min: lo - 1, max: lo + 1}
	}
	return valueRange{min: lo, max: hi}
}

func traceColor(hex string) drawing.Color {
	return traceColorOr(hex, fallbackColor)
}

func traceColorOr(hex string, fallback drawing.Color) drawing.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 && len(hex) != 3 {
		return fallback
	}
	return drawing.ColorFromHex(hex)
}
