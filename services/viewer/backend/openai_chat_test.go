// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL + "/v1"
}

func TestNewOpenAIChatter_RequiresKey(t *testing.T) {
	_, err := NewOpenAIChatter(OpenAIOptions{})
	assert.Error(t, err)
}

func TestOpenAIChatter_Chat(t *testing.T) {
	base := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 3)
		assert.Contains(t, req.Messages[1].Content, "W-1")
		assert.Equal(t, "What is GR?", req.Messages[2].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Gamma ray."},"finish_reason":"stop"}]}`)
	})

	chatter, err := NewOpenAIChatter(OpenAIOptions{APIKey: "sk-test", BaseURL: base})
	require.NoError(t, err)

	resp, err := chatter.Chat(context.Background(), datatypes.ChatRequest{Well: "W-1", Message: "What is GR?"})
	require.NoError(t, err)
	assert.Equal(t, "Gamma ray.", resp.Reply)
}

func TestOpenAIChatter_APIErrorIsUpstream(t *testing.T) {
	base := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	})

	chatter, err := NewOpenAIChatter(OpenAIOptions{APIKey: "sk-test", BaseURL: base})
	require.NoError(t, err)

	_, err = chatter.Chat(context.Background(), datatypes.ChatRequest{Message: "hi"})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
}

func TestClassifyOpenAIError(t *testing.T) {
	assert.NoError(t, classifyOpenAIError(nil))
	assert.ErrorIs(t, classifyOpenAIError(errors.New("dial tcp: refused")), ErrUnavailable)
}
