// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the payload shapes exchanged between the viewer,
// the well service and the AI service.
//
// # Description
//
// None of these types own a wire format. They decode tolerantly: any field
// may be missing and a missing reading is represented as a nil pointer.
package datatypes

import (
	"math"
	"strings"
)

// MaxSelection is the maximum number of curves plotted together.
const MaxSelection = 3

// CurveSample is one depth station with the readings taken there.
//
// A curve missing from Values and a curve mapped to nil are both absent.
type CurveSample struct {
	Depth  float64             `json:"depth"`
	Values map[string]*float64 `json:"values"`
}

// Value returns the numeric reading for curve at this station.
//
// Absent readings, NaN and infinities all report ok=false.
func (s CurveSample) Value(curve string) (float64, bool) {
	v, present := s.Values[curve]
	if !present || v == nil {
		return 0, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// CurveDescriptor identifies a selectable curve in the well inventory.
type CurveDescriptor struct {
	Name string `json:"name"`
}

// IsSelectable reports whether a curve may be added to a Selection.
//
// Depth and Time index the other curves and are never plotted as tracks,
// whatever case the inventory uses for them.
func IsSelectable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	switch strings.ToLower(name) {
	case "depth", "time":
		return false
	}
	return true
}

// SelectableCurves filters an inventory down to the curves an operator may pick.
func SelectableCurves(curves []CurveDescriptor) []CurveDescriptor {
	out := make([]CurveDescriptor, 0, len(curves))
	for _, c := range curves {
		if IsSelectable(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// SampleQuery asks the well service for a batch of samples.
type SampleQuery struct {
	Well   string   `json:"well"`
	Curves []string `json:"curves"`
	Top    *float64 `json:"top,omitempty"`
	Bottom *float64 `json:"bottom,omitempty"`
}

// SampleBatch is the well service's answer to a SampleQuery.
type SampleBatch struct {
	Samples []CurveSample `json:"samples"`
}

// WellList is the well service's inventory of wells.
type WellList struct {
	Wells []string `json:"wells"`
}

// CurveList is the well service's inventory of curves for one well.
type CurveList struct {
	Curves []CurveDescriptor `json:"curves"`
}

// UploadResult describes a LAS file accepted by the well service.
type UploadResult struct {
	Well    string   `json:"well"`
	Curves  []string `json:"curves"`
	Samples int      `json:"samples"`
}
