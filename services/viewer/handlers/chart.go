// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"net/http"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/plot"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/render"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// LoadResponse is the body of a successful load.
type LoadResponse struct {
	Chart        *plot.ChartSpec `json:"chart"`
	RangesCached []string        `json:"ranges_cached"`
}

// InterpretResponse is the body of a successful interpretation.
type InterpretResponse struct {
	Summary string          `json:"summary"`
	Chart   *plot.ChartSpec `json:"chart"`
	Cleaned *plot.ChartSpec `json:"cleaned"`
}

// HandleLoad fetches samples for the selection and returns the rebuilt chart.
//
// # Description
//
// Concurrent loads on one session share a single fetch. A batch that
// arrives after the selection, depth window or well changed answers 204.
func HandleLoad(reg *session.Registry, fetcher session.SampleFetcher, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleLoad")
		defer span.End()
		span.SetAttributes(attribute.String("session_id", s.ID()), attribute.String("well", s.Well()))

		res, err := s.Load(ctx, fetcher)
		if err != nil {
			span.RecordError(err)
			respondError(c, m, "load", err)
			return
		}
		m.RecordRangesCached(len(res.RangesCached))
		if res.Chart != nil {
			m.RecordChart(observability.ChartCurves)
		}
		cached := res.RangesCached
		if cached == nil {
			cached = []string{}
		}
		c.JSON(http.StatusOK, LoadResponse{Chart: res.Chart, RangesCached: cached})
	}
}

// HandleInterpret fetches an interpretation and returns the summary with
// both charts.
func HandleInterpret(reg *session.Registry, interp session.Interpreter, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleInterpret")
		defer span.End()
		span.SetAttributes(attribute.String("session_id", s.ID()), attribute.String("well", s.Well()))

		out, err := s.Interpret(ctx, interp)
		if err != nil {
			span.RecordError(err)
			respondError(c, m, "interpret", err)
			return
		}
		if out.Chart != nil {
			m.RecordChart(observability.ChartCurves)
		}
		if out.Cleaned != nil {
			m.RecordChart(observability.ChartCleaned)
		}
		c.JSON(http.StatusOK, InterpretResponse{Summary: out.Summary, Chart: out.Chart, Cleaned: out.Cleaned})
	}
}

// HandleGetChart returns the main chart, or 204 when nothing is selected.
func HandleGetChart(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		spec, err := s.Chart()
		if err != nil {
			respondError(c, m, "chart", err)
			return
		}
		if spec == nil {
			c.Status(http.StatusNoContent)
			return
		}
		m.RecordChart(observability.ChartCurves)
		c.JSON(http.StatusOK, spec)
	}
}

// HandleGetCleanedChart returns the cleaned overlay, or 204 when there is no
// interpretation or it holds no usable cleaned curve.
func HandleGetCleanedChart(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		spec, err := s.CleanedChart()
		if err != nil {
			respondError(c, m, "cleaned_chart", err)
			return
		}
		if spec == nil {
			c.Status(http.StatusNoContent)
			return
		}
		m.RecordChart(observability.ChartCleaned)
		c.JSON(http.StatusOK, spec)
	}
}

// HandleChartPNG renders the main chart. Query parameters width and height
// override the configured size.
func HandleChartPNG(reg *session.Registry, opts render.Options, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		var size struct {
			Width  int `form:"width" binding:"omitempty,min=200,max=4000"`
			Height int `form:"height" binding:"omitempty,min=200,max=4000"`
		}
		if err := c.ShouldBindQuery(&size); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image size: " + err.Error()})
			return
		}
		o := opts
		if size.Width > 0 {
			o.Width = size.Width
		}
		if size.Height > 0 {
			o.Height = size.Height
		}

		spec, err := s.Chart()
		if err != nil {
			respondError(c, m, "chart_png", err)
			return
		}
		if spec == nil {
			c.Status(http.StatusNoContent)
			return
		}

		_, span := handlerTracer.Start(c.Request.Context(), "HandleChartPNG")
		defer span.End()

		var buf bytes.Buffer
		if err := render.PNG(&buf, spec, o); err != nil {
			span.RecordError(err)
			respondError(c, m, "chart_png", err)
			return
		}
		m.RecordChart(observability.ChartPNG)
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}
