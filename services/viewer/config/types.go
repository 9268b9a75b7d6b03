// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import "time"

// Chat backends.
const (
	ChatBackendAIService = "ai_service"
	ChatBackendOpenAI    = "openai"
)

type ViewerConfig struct {
	Server ServerConfig `yaml:"server"`

	// WellService: inventory, samples, LAS upload, deletion
	WellService ServiceConfig `yaml:"well_service"`

	// AIService: interpretation and (by default) chat
	AIService ServiceConfig `yaml:"ai_service"`

	Chat    ChatConfig    `yaml:"chat"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
	Render  RenderConfig  `yaml:"render"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
	// APIKey enables X-API-Key authentication on /v1 when non-empty
	APIKey string `yaml:"api_key,omitempty"`
	// AllowedOrigins for websocket upgrades; empty allows same-origin only
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

type ServiceConfig struct {
	URL               string        `yaml:"url" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"` // 0 = unlimited
	Burst             int           `yaml:"burst" validate:"gte=0"`
}

type ChatConfig struct {
	Backend      string `yaml:"backend" validate:"oneof=ai_service openai"`
	Model        string `yaml:"model,omitempty"`
	APIKey       string `yaml:"api_key,omitempty" validate:"required_if=Backend openai"`
	BaseURL      string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty" validate:"required_if=Enabled true"` // host:port of the OTLP gRPC collector
	ServiceName string `yaml:"service_name" validate:"required"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"`
}

type RenderConfig struct {
	Width  int `yaml:"width" validate:"min=200,max=4000"`
	Height int `yaml:"height" validate:"min=200,max=4000"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() ViewerConfig {
	return ViewerConfig{
		Server: ServerConfig{Port: 12230},
		WellService: ServiceConfig{
			URL:               "http://well-data-fetcher:8000",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 20,
			Burst:             5,
		},
		AIService: ServiceConfig{
			URL:               "http://well-interpreter:8000",
			Timeout:           120 * time.Second,
			RequestsPerSecond: 2,
			Burst:             1,
		},
		Chat: ChatConfig{Backend: ChatBackendAIService},
		Tracing: TracingConfig{
			ServiceName: "welllog-viewer",
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
		Render:  RenderConfig{Width: 1200, Height: 700},
	}
}
