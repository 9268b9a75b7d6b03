// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backend talks to the viewer's collaborators: the well service
// (inventory, samples, LAS upload, deletion) and the AI service
// (interpretation, chat).
//
// # Description
//
// Client is a thin JSON-over-HTTP client. Every call is rate limited, bounded
// by a timeout, traced, and recorded in metrics. Failures come back as one of
// two kinds so handlers can map them to a status:
//
//   - ErrUnavailable: the service could not be reached.
//   - *UpstreamError: the service answered with a non-2xx status, or with a
//     body that could not be decoded.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("welllog.viewer.backend")

// ErrUnavailable is wrapped by errors for services that could not be reached.
var ErrUnavailable = errors.New("service unavailable")

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 64 << 20

// maxErrorBody caps how much of an error body is kept in UpstreamError.
const maxErrorBody = 512

// HTTPClient interface allows injecting mock HTTP clients for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpstreamError is a non-2xx or undecodable answer from a collaborator.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Body)
}

// Options configures a Client.
type Options struct {
	WellServiceURL string
	AIServiceURL   string

	// HTTPClient defaults to a plain http.Client.
	HTTPClient HTTPClient

	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond float64
	Burst             int

	// Timeout bounds each call. Zero means 30s.
	Timeout time.Duration

	Metrics *observability.Metrics
}

// Client calls the well service and the AI service.
type Client struct {
	wellURL string
	aiURL   string
	http    HTTPClient
	limiter *rate.Limiter
	timeout time.Duration
	metrics *observability.Metrics
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		wellURL: strings.TrimRight(opts.WellServiceURL, "/"),
		aiURL:   strings.TrimRight(opts.AIServiceURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		metrics: opts.Metrics,
	}
}

// call is one outbound request.
type call struct {
	service     observability.Service
	op          string
	method      string
	url         string
	body        []byte
	contentType string
}

func jsonCall(service observability.Service, op, method, url string, payload any) (call, error) {
	c := call{service: service, op: op, method: method, url: url}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return c, fmt.Errorf("%s: encode request: %w", op, err)
		}
		c.body = body
		c.contentType = "application/json"
	}
	return c, nil
}

// do runs c and decodes a JSON answer into out, when out is non-nil.
func (cl *Client) do(ctx context.Context, c call, out any) error {
	ctx, span := tracer.Start(ctx, "backend."+c.op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("service", string(c.service)),
		attribute.String("http.method", c.method),
		attribute.String("http.url", c.url),
	)

	start := time.Now()
	err := cl.roundTrip(ctx, c, out)
	cl.metrics.RecordCall(c.service, c.op, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("Backend call failed", "service", c.service, "op", c.op, "error", err)
	}
	return err
}

func (cl *Client) roundTrip(ctx context.Context, c call, out any) error {
	if err := cl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", c.op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cl.timeout)
	defer cancel()

	var body io.Reader
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.op, err)
	}
	if c.contentType != "" {
		req.Header.Set("Content-Type", c.contentType)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := cl.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", c.op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: %w: read response: %v", c.op, ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Op: c.op, Status: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &UpstreamError{Op: c.op, Status: resp.StatusCode, Body: "malformed response: " + err.Error()}
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
