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
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var handlerTracer = otel.Tracer("welllog.viewer.handlers")

// MaxUploadBytes caps an uploaded LAS file.
const MaxUploadBytes = 64 << 20

// WellService is the well-inventory collaborator.
type WellService interface {
	ListWells(ctx context.Context) ([]string, error)
	ListCurves(ctx context.Context, well string) ([]datatypes.CurveDescriptor, error)
	UploadLAS(ctx context.Context, filename string, r io.Reader) (*datatypes.UploadResult, error)
	DeleteWell(ctx context.Context, well string) error
	session.SampleFetcher
}

// HandleListWells proxies the well list.
func HandleListWells(wells WellService, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleListWells")
		defer span.End()

		list, err := wells.ListWells(ctx)
		if err != nil {
			span.RecordError(err)
			respondError(c, m, "list_wells", err)
			return
		}
		if list == nil {
			list = []string{}
		}
		c.JSON(http.StatusOK, datatypes.WellList{Wells: list})
	}
}

// HandleListCurves proxies the curve list of a well with Depth and Time
// removed.
func HandleListCurves(wells WellService, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		well := c.Param("well")
		if err := validation.ValidateWellName(well); err != nil {
			respondError(c, m, "list_curves", err)
			return
		}
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleListCurves")
		defer span.End()
		span.SetAttributes(attribute.String("well", well))

		curves, err := wells.ListCurves(ctx, well)
		if err != nil {
			span.RecordError(err)
			respondError(c, m, "list_curves", err)
			return
		}
		c.JSON(http.StatusOK, datatypes.CurveList{Curves: datatypes.SelectableCurves(curves)})
	}
}

// HandleUploadLAS forwards a multipart LAS upload to the well service.
func HandleUploadLAS(wells WellService, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		defer file.Close()

		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleUploadLAS")
		defer span.End()
		span.SetAttributes(attribute.String("filename", header.Filename), attribute.Int64("size", header.Size))

		result, err := wells.UploadLAS(ctx, header.Filename, file)
		if err != nil {
			span.RecordError(err)
			respondError(c, m, "upload_las", err)
			return
		}
		slog.Info("LAS file ingested", "well", result.Well, "curves", len(result.Curves), "samples", result.Samples)
		c.JSON(http.StatusOK, result)
	}
}

// HandleDeleteWell deletes a well and resets every session viewing it.
func HandleDeleteWell(wells WellService, reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		well := c.Param("well")
		if err := validation.ValidateWellName(well); err != nil {
			respondError(c, m, "delete_well", err)
			return
		}
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleDeleteWell")
		defer span.End()

		if err := wells.DeleteWell(ctx, well); err != nil {
			span.RecordError(err)
			respondError(c, m, "delete_well", err)
			return
		}
		reset := reg.ResetWell(well)
		slog.Info("Well deleted", "well", well, "sessions_reset", reset)
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "well": well, "sessions_reset": reset})
	}
}
