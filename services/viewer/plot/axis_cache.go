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
	"sync"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"gonum.org/v1/gonum/floats"
)

// =============================================================================
// Axis Range Cache
// =============================================================================

// AxisRange is the fixed value range of one curve's axis.
type AxisRange struct {
	CurveName string  `json:"curve"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

// AxisRangeCache remembers the first range computed for each curve name.
//
// # Description
//
// Once a curve has a range it is never recomputed, even when later batches
// carry wider values. That keeps the operator's visual calibration stable
// across reloads. Entries are never evicted; the cache lives as long as the
// session that owns it.
//
// # Thread Safety
//
// GetOrCompute is a single critical section, so concurrent callers cannot
// both compute a range for the same curve: the first batch wins.
type AxisRangeCache struct {
	mu     sync.Mutex
	ranges map[string]AxisRange
}

// NewAxisRangeCache returns an empty cache.
func NewAxisRangeCache() *AxisRangeCache {
	return &AxisRangeCache{ranges: make(map[string]AxisRange)}
}

// GetOrCompute returns the cached range for curve, computing it from samples
// on a miss.
//
// # Description
//
// On a hit samples are ignored. On a miss every numeric reading of curve in
// samples is collected and reduced to min and max. When the batch holds no
// numeric reading nothing is cached and ok is false, so a later batch may
// try again.
//
// # Inputs
//
//   - curve: Curve name, the cache key.
//   - samples: The batch just loaded. May be empty.
//
// # Outputs
//
//   - AxisRange: The cached or freshly computed range.
//   - bool: False when no range exists for curve yet.
func (c *AxisRangeCache) GetOrCompute(curve string, samples []datatypes.CurveSample) (AxisRange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.ranges[curve]; ok {
		return r, true
	}

	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if v, ok := s.Value(curve); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return AxisRange{}, false
	}

	r := AxisRange{CurveName: curve, Min: floats.Min(values), Max: floats.Max(values)}
	c.ranges[curve] = r
	return r, true
}

// Lookup returns the cached range for curve without computing one.
func (c *AxisRangeCache) Lookup(curve string) (AxisRange, bool) {
	if c == nil {
		return AxisRange{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.ranges[curve]
	return r, ok
}

// Len returns how many curves have a cached range.
func (c *AxisRangeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ranges)
}

// Snapshot returns a copy of every cached range, keyed by curve name.
func (c *AxisRangeCache) Snapshot() map[string]AxisRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]AxisRange, len(c.ranges))
	for k, v := range c.ranges {
		out[k] = v
	}
	return out
}
