// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
)

// =============================================================================
// Well Service
// =============================================================================

func (cl *Client) wellPath(well string, suffix string) string {
	return cl.wellURL + "/v1/wells/" + url.PathEscape(well) + suffix
}

// ListWells returns the names of all wells in the store.
func (cl *Client) ListWells(ctx context.Context) ([]string, error) {
	var out datatypes.WellList
	c := call{service: observability.ServiceWell, op: "list_wells", method: http.MethodGet, url: cl.wellURL + "/v1/wells"}
	if err := cl.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return out.Wells, nil
}

// ListCurves returns the curves recorded for well, including index curves.
// Callers filter with datatypes.SelectableCurves.
func (cl *Client) ListCurves(ctx context.Context, well string) ([]datatypes.CurveDescriptor, error) {
	var out datatypes.CurveList
	c := call{service: observability.ServiceWell, op: "list_curves", method: http.MethodGet, url: cl.wellPath(well, "/curves")}
	if err := cl.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return out.Curves, nil
}

// FetchSamples loads one batch of samples, ordered by ascending depth.
func (cl *Client) FetchSamples(ctx context.Context, q datatypes.SampleQuery) ([]datatypes.CurveSample, error) {
	c, err := jsonCall(observability.ServiceWell, "fetch_samples", http.MethodPost, cl.wellPath(q.Well, "/data"), q)
	if err != nil {
		return nil, err
	}
	var out datatypes.SampleBatch
	if err := cl.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return out.Samples, nil
}

// UploadLAS sends a LAS file to the well service for ingestion.
//
// # Inputs
//
//   - filename: Original file name, forwarded in the multipart header.
//   - r: File contents. Read fully before the request is sent.
func (cl *Client) UploadLAS(ctx context.Context, filename string, r io.Reader) (*datatypes.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("upload_las: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("upload_las: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload_las: close form: %w", err)
	}

	c := call{
		service:     observability.ServiceWell,
		op:          "upload_las",
		method:      http.MethodPost,
		url:         cl.wellURL + "/v1/wells/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	var out datatypes.UploadResult
	if err := cl.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWell removes a well and all its samples from the store.
func (cl *Client) DeleteWell(ctx context.Context, well string) error {
	c := call{service: observability.ServiceWell, op: "delete_well", method: http.MethodDelete, url: cl.wellPath(well, "")}
	return cl.do(ctx, c, nil)
}

// =============================================================================
// AI Service
// =============================================================================

// Interpret asks the AI service for statistics, cleaned curves and a summary.
func (cl *Client) Interpret(ctx context.Context, req datatypes.InterpretRequest) (*datatypes.InterpretationResult, error) {
	c, err := jsonCall(observability.ServiceAI, "interpret", http.MethodPost, cl.aiURL+"/v1/interpret", req)
	if err != nil {
		return nil, err
	}
	var out datatypes.InterpretationResult
	if err := cl.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one chat turn to the AI service.
func (cl *Client) Chat(ctx context.Context, req datatypes.ChatRequest) (*datatypes.ChatResponse, error) {
	c, err := jsonCall(observability.ServiceAI, "chat", http.MethodPost, cl.aiURL+"/v1/chat", req)
	if err != nil {
		return nil, err
	}
	var out datatypes.ChatResponse
	if err := cl.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
