// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurement = "well_log"
	wellTag     = "well"

	// writeBatch is the number of points per blocking write.
	writeBatch = 5000

	// Depths outside this window cannot be stored.
	minDepth = -1e6
	maxDepth = 1e8
)

// depthEpoch is depth zero. One depth unit is one millisecond, so Flux
// range() bounds depth and sort(_time) orders by depth.
var depthEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrWellNotFound is returned when a well has no stored samples.
var ErrWellNotFound = errors.New("well not found")

// Deleter is the part of api.DeleteAPI the store uses.
type Deleter interface {
	DeleteWithName(ctx context.Context, orgName, bucketName string, start, stop time.Time, predicate string) error
}

func depthToTime(depth float64) time.Time {
	return depthEpoch.Add(time.Duration(math.Round(depth * float64(time.Millisecond))))
}

func timeToDepth(t time.Time) float64 {
	return float64(t.Sub(depthEpoch)) / float64(time.Millisecond)
}

func fluxTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// =============================================================================
// Queries
// =============================================================================

func (s *Server) wellsQuery() string {
	return fmt.Sprintf(`
		import "influxdata/influxdb/schema"
		schema.tagValues(
		  bucket: "%s",
		  tag: "%s",
		  predicate: (r) => r._measurement == "%s",
		  start: %s,
		  stop: %s
		)
	`, s.Bucket, wellTag, measurement, fluxTime(depthToTime(minDepth)), fluxTime(depthToTime(maxDepth)))
}

func (s *Server) curvesQuery(well string) string {
	return fmt.Sprintf(`
		import "influxdata/influxdb/schema"
		schema.fieldKeys(
		  bucket: "%s",
		  predicate: (r) => r._measurement == "%s" and r.%s == "%s",
		  start: %s,
		  stop: %s
		)
	`, s.Bucket, measurement, wellTag, well, fluxTime(depthToTime(minDepth)), fluxTime(depthToTime(maxDepth)))
}

// samplesQuery selects curves of well between top and bottom, inclusive.
// Names must already be validated.
func (s *Server) samplesQuery(q datatypes.SampleQuery) string {
	start, stop := depthToTime(minDepth), depthToTime(maxDepth)
	if q.Top != nil {
		start = depthToTime(*q.Top)
	}
	if q.Bottom != nil {
		// range() stop is exclusive.
		stop = depthToTime(*q.Bottom).Add(time.Nanosecond)
	}
	fields := make([]string, len(q.Curves))
	for i, c := range q.Curves {
		fields[i] = fmt.Sprintf(`r._field == "%s"`, c)
	}
	return fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> filter(fn: (r) => r.%s == "%s")
		  |> filter(fn: (r) => %s)
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, s.Bucket, fluxTime(start), fluxTime(stop), measurement, wellTag, q.Well, strings.Join(fields, " or "))
}

// =============================================================================
// Store operations
// =============================================================================

// stringValues collects the _value column of a schema query.
func (s *Server) stringValues(ctx context.Context, flux string) ([]string, error) {
	result, err := s.QueryAPI.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	// Guard against nil result (can happen with empty query results)
	if result == nil {
		return nil, nil
	}
	defer result.Close()

	var out []string
	for result.Next() {
		if v, ok := result.Record().Value().(string); ok {
			out = append(out, v)
		}
	}
	if result.Err() != nil {
		return nil, result.Err()
	}
	sort.Strings(out)
	return out, nil
}

// ListWells returns every stored well name, sorted.
func (s *Server) ListWells(ctx context.Context) ([]string, error) {
	return s.stringValues(ctx, s.wellsQuery())
}

// ListCurves returns the curves stored for well, sorted. The depth index is
// not a field and never appears.
func (s *Server) ListCurves(ctx context.Context, well string) ([]datatypes.CurveDescriptor, error) {
	names, err := s.stringValues(ctx, s.curvesQuery(well))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWellNotFound, well)
	}
	out := make([]datatypes.CurveDescriptor, len(names))
	for i, n := range names {
		out[i] = datatypes.CurveDescriptor{Name: n}
	}
	return out, nil
}

// FetchSamples returns the requested curves of a well in ascending depth.
// A depth where none of the curves has a reading is not returned.
func (s *Server) FetchSamples(ctx context.Context, q datatypes.SampleQuery) ([]datatypes.CurveSample, error) {
	if len(q.Curves) == 0 {
		return []datatypes.CurveSample{}, nil
	}
	result, err := s.QueryAPI.Query(ctx, s.samplesQuery(q))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return []datatypes.CurveSample{}, nil
	}
	defer result.Close()

	samples := []datatypes.CurveSample{}
	for result.Next() {
		record := result.Record()
		values := make(map[string]*float64, len(q.Curves))
		for _, c := range q.Curves {
			switch v := record.ValueByKey(c).(type) {
			case float64:
				val := v
				values[c] = &val
			case int64:
				val := float64(v)
				values[c] = &val
			default:
				values[c] = nil
			}
		}
		samples = append(samples, datatypes.CurveSample{Depth: timeToDepth(record.Time()), Values: values})
	}
	if result.Err() != nil {
		return nil, result.Err()
	}
	return samples, nil
}

// WriteLAS stores a parsed LAS file under well.
//
// # Description
//
// One point per ~A row: the index value becomes the timestamp and every
// non-NULL reading a field. Rows without any reading are skipped. A depth
// already stored for the well is overwritten.
//
// # Outputs
//
//   - *datatypes.UploadResult: Well, stored curve names and the number of
//     points written.
//   - error: validation.ErrInvalidName for a curve mnemonic that cannot be
//     stored, ErrInvalidLAS for an out-of-range depth, or a write error.
func (s *Server) WriteLAS(ctx context.Context, well string, las *LASFile) (*datatypes.UploadResult, error) {
	curves := las.DataCurves()
	fields := make([]string, len(curves))
	for i, c := range curves {
		name, err := validation.SanitizeCurveName(c)
		if err != nil {
			return nil, err
		}
		fields[i] = name
	}

	var points []*write.Point
	written := 0
	flush := func() error {
		if len(points) == 0 {
			return nil
		}
		if err := s.WriteAPI.WritePoint(ctx, points...); err != nil {
			return err
		}
		written += len(points)
		points = points[:0]
		return nil
	}

	for _, row := range las.Rows {
		depth := *row[0]
		if depth < minDepth || depth > maxDepth || math.IsNaN(depth) {
			return nil, fmt.Errorf("%w: depth %g outside [%g, %g]", ErrInvalidLAS, depth, float64(minDepth), float64(maxDepth))
		}
		values := make(map[string]interface{}, len(fields))
		for i, name := range fields {
			if v := row[i+1]; v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
				values[name] = *v
			}
		}
		if len(values) == 0 {
			continue
		}
		points = append(points, influxdb2.NewPoint(measurement,
			map[string]string{wellTag: well}, values, depthToTime(depth)))
		if len(points) >= writeBatch {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return &datatypes.UploadResult{Well: well, Curves: fields, Samples: written}, nil
}

// DeleteWell removes every sample of well.
func (s *Server) DeleteWell(ctx context.Context, well string) error {
	predicate := fmt.Sprintf(`_measurement="%s" AND %s="%s"`, measurement, wellTag, well)
	return s.DeleteAPI.DeleteWithName(ctx, s.Org, s.Bucket,
		depthToTime(minDepth), depthToTime(maxDepth), predicate)
}

var _ Deleter = (api.DeleteAPI)(nil)
