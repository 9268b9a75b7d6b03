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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"
)

const defaultSystemPrompt = "You are a petrophysics assistant helping an operator read well-log curves. " +
	"Answer concisely and say when a question cannot be answered from log data."

// OpenAIOptions configures an OpenAIChatter.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	HTTPClient   HTTPClient
	Metrics      *observability.Metrics
}

// OpenAIChatter answers chat turns through an OpenAI-compatible API instead
// of the AI service.
type OpenAIChatter struct {
	client  *openai.Client
	model   string
	system  string
	metrics *observability.Metrics
}

// NewOpenAIChatter builds a chatter. The model defaults to gpt-4o-mini.
func NewOpenAIChatter(opts OpenAIOptions) (*OpenAIChatter, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai chat backend requires an API key")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("Chat model not set, defaulting to gpt-4o-mini")
	}
	system := opts.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	slog.Info("Initializing OpenAI chat backend", "model", model)
	return &OpenAIChatter{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		system:  system,
		metrics: opts.Metrics,
	}, nil
}

// Chat implements the session chat contract.
func (o *OpenAIChatter) Chat(ctx context.Context, req datatypes.ChatRequest) (*datatypes.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "backend.openai_chat", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: o.system},
	}
	if req.Well != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf("The operator is viewing well %q.", req.Well),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err == nil && len(resp.Choices) == 0 {
		err = &UpstreamError{Op: "openai_chat", Status: 200, Body: "no choices returned"}
	}
	err = classifyOpenAIError(err)
	o.metrics.RecordCall(observability.ServiceAI, "openai_chat", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		slog.Error("OpenAI chat call failed", "model", o.model, "error", err)
		return nil, err
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return &datatypes.ChatResponse{Reply: resp.Choices[0].Message.Content}, nil
}

func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Op: "openai_chat", Status: apiErr.HTTPStatusCode, Body: truncate(apiErr.Message, maxErrorBody)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{Op: "openai_chat", Status: reqErr.HTTPStatusCode, Body: truncate(reqErr.Error(), maxErrorBody)}
	}
	return fmt.Errorf("openai_chat: %w: %v", ErrUnavailable, err)
}
