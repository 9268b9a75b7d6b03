// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/AleutianAI/AleutianWellLog/services/viewer/handlers"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/middleware"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/render"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the route table wires into handlers.
type Dependencies struct {
	Wells       handlers.WellService
	Interpreter session.Interpreter
	Chatter     session.Chatter
	Registry    *session.Registry
	Metrics     *observability.Metrics

	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer

	Render         render.Options
	APIKey         string
	AllowedOrigins []string
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Well names may contain an escaped '/'.
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.RequestID(), middleware.APIKeyAuth(deps.APIKey))
	{
		wells := v1.Group("/wells")
		{
			wells.GET("", handlers.HandleListWells(deps.Wells, deps.Metrics))
			wells.POST("/upload", handlers.HandleUploadLAS(deps.Wells, deps.Metrics))
			wells.GET("/:well/curves", handlers.HandleListCurves(deps.Wells, deps.Metrics))
			wells.DELETE("/:well", handlers.HandleDeleteWell(deps.Wells, deps.Registry, deps.Metrics))
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.HandleCreateSession(deps.Registry, deps.Metrics))
			sessions.GET("/:id", handlers.HandleGetSession(deps.Registry, deps.Metrics))
			sessions.DELETE("/:id", handlers.HandleDeleteSession(deps.Registry, deps.Metrics))
			sessions.PUT("/:id/well", handlers.HandleSelectWell(deps.Registry, deps.Metrics))
			sessions.POST("/:id/curves/:curve", handlers.HandleToggleCurve(deps.Registry, deps.Metrics))
			sessions.PUT("/:id/depth", handlers.HandleSetDepth(deps.Registry, deps.Metrics))
			sessions.POST("/:id/load", handlers.HandleLoad(deps.Registry, deps.Wells, deps.Metrics))
			sessions.POST("/:id/interpret", handlers.HandleInterpret(deps.Registry, deps.Interpreter, deps.Metrics))
			sessions.GET("/:id/chart", handlers.HandleGetChart(deps.Registry, deps.Metrics))
			sessions.GET("/:id/chart/cleaned", handlers.HandleGetCleanedChart(deps.Registry, deps.Metrics))
			sessions.GET("/:id/chart.png", handlers.HandleChartPNG(deps.Registry, deps.Render, deps.Metrics))
			sessions.POST("/:id/chat", handlers.HandleChat(deps.Registry, deps.Chatter, deps.Metrics))
			sessions.GET("/:id/ws", handlers.HandleSessionWebSocket(deps.Registry, deps.AllowedOrigins, deps.Metrics))
		}
	}
}
