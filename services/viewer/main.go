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
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AleutianAI/AleutianWellLog/pkg/logging"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/backend"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/config"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/render"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/routes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer(cfg config.TracingConfig) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceProvider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
	}, nil
}

// newChatter picks the chat backend: the AI service by default, or an
// OpenAI-compatible API.
func newChatter(cfg config.ChatConfig, ai *backend.Client, metrics *observability.Metrics) (session.Chatter, error) {
	if cfg.Backend != config.ChatBackendOpenAI {
		return ai, nil
	}
	return backend.NewOpenAIChatter(backend.OpenAIOptions{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		SystemPrompt: cfg.SystemPrompt,
		Metrics:      metrics,
	})
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.New(logging.Config{
		Level:   level,
		Service: cfg.Tracing.ServiceName,
		JSON:    cfg.Logging.JSON,
		LogDir:  cfg.Logging.Dir,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if cfg.Tracing.Enabled {
		cleanup, err := initTracer(cfg.Tracing)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	} else {
		slog.Info("Tracing disabled")
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	wellClient := backend.NewClient(backend.Options{
		WellServiceURL:    cfg.WellService.URL,
		AIServiceURL:      cfg.AIService.URL,
		RequestsPerSecond: cfg.WellService.RequestsPerSecond,
		Burst:             cfg.WellService.Burst,
		Timeout:           cfg.WellService.Timeout,
		Metrics:           metrics,
	})
	aiClient := backend.NewClient(backend.Options{
		WellServiceURL:    cfg.WellService.URL,
		AIServiceURL:      cfg.AIService.URL,
		RequestsPerSecond: cfg.AIService.RequestsPerSecond,
		Burst:             cfg.AIService.Burst,
		Timeout:           cfg.AIService.Timeout,
		Metrics:           metrics,
	})
	chatter, err := newChatter(cfg.Chat, aiClient, metrics)
	if err != nil {
		log.Fatalf("FATAL: could not initialize the chat backend: %v", err)
	}
	slog.Info("Chat backend configured", "backend", cfg.Chat.Backend)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))

	routes.SetupRoutes(router, routes.Dependencies{
		Wells:          wellClient,
		Interpreter:    aiClient,
		Chatter:        chatter,
		Registry:       session.NewRegistry(),
		Metrics:        metrics,
		Render:         render.Options{Width: cfg.Render.Width, Height: cfg.Render.Height},
		APIKey:         cfg.Server.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if cfg.Server.APIKey == "" {
		slog.Warn("WELLLOG_API_KEY not set; /v1 is unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting the well-log viewer", "port", cfg.Server.Port,
			"well_service", cfg.WellService.URL, "ai_service", cfg.AIService.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
