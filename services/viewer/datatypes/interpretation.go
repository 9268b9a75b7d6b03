// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// SummaryPlaceholder is shown when the AI service returned no summary.
const SummaryPlaceholder = "No interpretation summary available."

// InterpretRequest asks the AI service to interpret the selected curves.
type InterpretRequest struct {
	Well   string   `json:"well"`
	Curves []string `json:"curves"`
	Top    *float64 `json:"top,omitempty"`
	Bottom *float64 `json:"bottom,omitempty"`
}

// InterpretationResult is the AI service's output for one well.
//
// # Description
//
// Stats, CleanedCurves and Summary are each optional. The viewer only reads
// CurveStats.SpikeDepths and CleanedCurves; everything else is passed through
// to clients untouched.
type InterpretationResult struct {
	Stats         map[string]CurveStats   `json:"stats,omitempty"`
	CleanedCurves map[string]CleanedCurve `json:"cleaned_curves,omitempty"`
	Summary       *string                 `json:"summary,omitempty"`
}

// CurveStats are the per-curve statistics reported by the AI service.
type CurveStats struct {
	Median      *float64  `json:"median,omitempty"`
	Mean        *float64  `json:"mean,omitempty"`
	StdDev      *float64  `json:"std_dev,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	SpikeDepths []float64 `json:"spike_depths,omitempty"`
}

// CleanedCurve is a denoised curve; Values is index-aligned with Depths.
//
// Its depths need not match the raw sample depths.
type CleanedCurve struct {
	Depths []float64  `json:"depths,omitempty"`
	Values []*float64 `json:"values,omitempty"`
}

// SummaryText returns the summary, or SummaryPlaceholder when absent.
// A nil result is treated like one with no summary.
func (r *InterpretationResult) SummaryText() string {
	if r == nil || r.Summary == nil || *r.Summary == "" {
		return SummaryPlaceholder
	}
	return *r.Summary
}

// SpikeDepths returns the spike depths flagged for curve, if any.
func (r *InterpretationResult) SpikeDepths(curve string) []float64 {
	if r == nil {
		return nil
	}
	return r.Stats[curve].SpikeDepths
}
