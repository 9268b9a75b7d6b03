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
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianWellLog/pkg/logging"
	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/gin-gonic/gin"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// maxUploadBytes caps an uploaded LAS file.
const maxUploadBytes = 64 << 20

// Server struct holds all dependencies
type Server struct {
	WriteAPI  api.WriteAPIBlocking
	QueryAPI  api.QueryAPI
	DeleteAPI Deleter
	Org       string
	Bucket    string
}

// InfluxDB configuration from environment
var (
	influxURL    = os.Getenv("INFLUXDB_URL")
	influxToken  = os.Getenv("INFLUXDB_TOKEN")
	influxOrg    = os.Getenv("INFLUXDB_ORG")
	influxBucket = os.Getenv("INFLUXDB_BUCKET")
)

func main() {
	level, err := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := logging.New(logging.Config{Level: level, Service: "well-data-fetcher", JSON: true, Output: os.Stdout})
	defer logger.Close()
	slog.SetDefault(logger.Slog())
	if err != nil {
		slog.Warn("Ignoring LOG_LEVEL", "error", err)
	}

	// Set defaults if not provided
	if influxURL == "" {
		influxURL = "http://influxdb:8086"
	}
	if influxToken == "" {
		slog.Error("INFLUXDB_TOKEN environment variable is required")
		os.Exit(1)
	}
	if influxOrg == "" {
		influxOrg = "welllog"
	}
	if influxBucket == "" {
		influxBucket = "well-logs"
	}

	slog.Info("Starting well data fetcher",
		"influx_url", influxURL,
		"influx_org", influxOrg,
		"influx_bucket", influxBucket)

	influxClient := influxdb2.NewClient(influxURL, influxToken)
	defer influxClient.Close()

	// Wait for InfluxDB to be ready
	var influxReady bool
	slog.Info("Waiting for InfluxDB to be ready...")
	for i := 0; i < 10; i++ {
		health, err := influxClient.Health(context.Background())
		if err == nil && health.Status == "pass" {
			influxReady = true
			break
		}

		var errMsg string
		if err != nil {
			errMsg = err.Error()
		} else if health != nil && health.Message != nil {
			errMsg = *health.Message
		}
		slog.Warn("InfluxDB not ready, retrying...", "attempt", i+1, "error", errMsg)
		time.Sleep(3 * time.Second)
	}

	if !influxReady {
		slog.Error("Failed to connect to InfluxDB after all retries")
		os.Exit(1)
	}

	slog.Info("Successfully connected to InfluxDB")

	server := &Server{
		WriteAPI:  influxClient.WriteAPIBlocking(influxOrg, influxBucket),
		QueryAPI:  influxClient.QueryAPI(influxOrg),
		DeleteAPI: influxClient.DeleteAPI(),
		Org:       influxOrg,
		Bucket:    influxBucket,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	server.registerRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	slog.Info("Starting well data API server", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *Server) registerRoutes(router *gin.Engine) {
	// Well names may contain an escaped '/'.
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "well-data-fetcher"})
	})

	v1 := router.Group("/v1/wells")
	v1.GET("", s.handleListWells)
	v1.POST("/upload", s.handleUpload)
	v1.GET("/:well/curves", s.handleListCurves)
	v1.POST("/:well/data", s.handleFetchSamples)
	v1.DELETE("/:well", s.handleDeleteWell)
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleListWells(c *gin.Context) {
	wells, err := s.ListWells(c.Request.Context())
	if err != nil {
		slog.Error("Query failed", "op", "list_wells", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query failed", "details": err.Error()})
		return
	}
	if wells == nil {
		wells = []string{}
	}
	c.JSON(http.StatusOK, datatypes.WellList{Wells: wells})
}

func (s *Server) handleListCurves(c *gin.Context) {
	well := c.Param("well")
	if err := validation.ValidateWellName(well); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid well", "details": err.Error()})
		return
	}
	curves, err := s.ListCurves(c.Request.Context(), well)
	if errors.Is(err, ErrWellNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Query failed", "op", "list_curves", "well", well, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, datatypes.CurveList{Curves: curves})
}

func (s *Server) handleFetchSamples(c *gin.Context) {
	well := c.Param("well")
	if err := validation.ValidateWellName(well); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid well", "details": err.Error()})
		return
	}
	var req datatypes.SampleQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	req.Well = well
	if err := validation.ValidateCurveNames(req.Curves); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid curve", "details": err.Error()})
		return
	}
	if req.Top != nil && req.Bottom != nil && *req.Top > *req.Bottom {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top must not be below bottom"})
		return
	}

	samples, err := s.FetchSamples(c.Request.Context(), req)
	if err != nil {
		slog.Error("Query failed", "op", "fetch_samples", "well", well, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query failed", "details": err.Error()})
		return
	}
	slog.Info("Query complete", "well", well, "curves", req.Curves, "samples_returned", len(samples))
	c.JSON(http.StatusOK, datatypes.SampleBatch{Samples: samples})
}

// handleUpload ingests a LAS file. The well name comes from the "well" form
// field, else the file's ~W WELL entry, else the file name.
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
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

	las, err := ParseLAS(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	well := strings.TrimSpace(c.PostForm("well"))
	if well == "" {
		well = las.Well
	}
	if well == "" {
		well = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}
	if err := validation.ValidateWellName(well); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid well", "details": err.Error()})
		return
	}

	result, err := s.WriteLAS(c.Request.Context(), well, las)
	switch {
	case errors.Is(err, validation.ErrInvalidName), errors.Is(err, ErrInvalidLAS):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		slog.Error("Failed to write to InfluxDB", "well", well, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Write failed", "details": err.Error()})
		return
	}
	slog.Info("LAS file ingested", "well", well, "file", header.Filename,
		"curves", len(result.Curves), "points", result.Samples)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDeleteWell(c *gin.Context) {
	well := c.Param("well")
	if err := validation.ValidateWellName(well); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid well", "details": err.Error()})
		return
	}
	if err := s.DeleteWell(c.Request.Context(), well); err != nil {
		slog.Error("Delete failed", "well", well, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed", "details": err.Error()})
		return
	}
	slog.Info("Well deleted", "well", well)
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "well": well})
}
