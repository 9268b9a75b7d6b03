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

// =============================================================================
// Axis Layout
// =============================================================================

// Side is where an axis is drawn.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// DepthAxisTitle titles the shared horizontal axis.
const DepthAxisTitle = "Depth"

// overlayOffset is how far each extra left-side overlay axis is pushed
// inward, as a fraction of the plot width.
const overlayOffset = 0.08

// RangeSource supplies cached axis ranges. *AxisRangeCache implements it.
type RangeSource interface {
	Lookup(curve string) (AxisRange, bool)
}

// AxisConfig describes one value axis.
//
// Axis 0 is the primary axis. Every other axis overlays it (Overlays == 0)
// but keeps its own scale. A fixed range disables zoom and pan on the axis;
// AutoRange lets the renderer fit the data instead.
type AxisConfig struct {
	ID         int         `json:"id"`
	Curve      string      `json:"curve"`
	Title      string      `json:"title"`
	Side       Side        `json:"side"`
	Overlays   *int        `json:"overlays,omitempty"`
	Position   float64     `json:"position"`
	ShowGrid   bool        `json:"show_grid"`
	Range      *[2]float64 `json:"range,omitempty"`
	FixedRange bool        `json:"fixed_range"`
	AutoRange  bool        `json:"auto_range"`
}

// XAxisConfig describes the shared depth axis.
type XAxisConfig struct {
	Title    string `json:"title"`
	ShowGrid bool   `json:"show_grid"`
}

// LayoutAxes builds one AxisConfig per curve, in the same order.
//
// # Description
//
// Axis 0 is independent, on the left, and the only one with grid lines.
// Axis i >= 1 overlays axis 0, sits on the right for odd i and on the left
// for even i, and never draws a grid. A curve with a cached range gets a
// locked, non-interactive axis; one without auto-scales until a later build
// finds a range.
//
// # Inputs
//
//   - curves: Selected curve names in order.
//   - ranges: Cached ranges. May be nil, in which case every axis auto-scales.
func LayoutAxes(curves []string, ranges RangeSource) []AxisConfig {
	axes := make([]AxisConfig, 0, len(curves))
	leftOverlays := 0
	for i, curve := range curves {
		ax := AxisConfig{
			ID:    i,
			Curve: curve,
			Title: curve,
			Side:  SideLeft,
		}

		if i == 0 {
			ax.ShowGrid = true
		} else {
			primary := 0
			ax.Overlays = &primary
			if i%2 == 1 {
				ax.Side = SideRight
				ax.Position = 1
			} else {
				leftOverlays++
				ax.Position = overlayOffset * float64(leftOverlays)
			}
		}

		if r, ok := lookupRange(ranges, curve); ok {
			ax.Range = &[2]float64{r.Min, r.Max}
			ax.FixedRange = true
		} else {
			ax.AutoRange = true
		}
		axes = append(axes, ax)
	}
	return axes
}

// CleanedAxes is the single auto-scaled axis of the cleaned-curve overlay.
func CleanedAxes() []AxisConfig {
	return []AxisConfig{{
		ID:        0,
		Title:     "Cleaned value",
		Side:      SideLeft,
		ShowGrid:  true,
		AutoRange: true,
	}}
}

func lookupRange(ranges RangeSource, curve string) (AxisRange, bool) {
	if ranges == nil {
		return AxisRange{}, false
	}
	return ranges.Lookup(curve)
}
