// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the viewer configuration.
//
// # Description
//
// Values are layered: Default(), then the YAML file named by the path
// argument or WELLLOG_CONFIG, then environment overrides. The result is
// validated before it is returned.
//
// # Environment
//
//   - WELLLOG_CONFIG: YAML file path
//   - WELLLOG_PORT: server.port
//   - WELLLOG_API_KEY: server.api_key
//   - WELL_SERVICE_URL: well_service.url
//   - AI_SERVICE_URL: ai_service.url
//   - OPENAI_API_KEY: chat.api_key
//   - OTEL_EXPORTER_OTLP_ENDPOINT: tracing.endpoint, and enables tracing
//   - LOG_LEVEL: logging.level
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from path (or WELLLOG_CONFIG when path is
// empty) and the process environment.
func Load(path string) (ViewerConfig, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupFunc) (ViewerConfig, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup("WELLLOG_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read the config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *ViewerConfig, lookup LookupFunc) error {
	if v, ok := lookup("WELLLOG_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WELLLOG_PORT must be an integer, got %q", v)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("WELLLOG_API_KEY"); ok {
		cfg.Server.APIKey = v
	}
	if v, ok := lookup("WELL_SERVICE_URL"); ok && v != "" {
		cfg.WellService.URL = v
	}
	if v, ok := lookup("AI_SERVICE_URL"); ok && v != "" {
		cfg.AIService.URL = v
	}
	if v, ok := lookup("OPENAI_API_KEY"); ok && v != "" {
		cfg.Chat.APIKey = v
	}
	if v, ok := lookup("OTEL_EXPORTER_OTLP_ENDPOINT"); ok && v != "" {
		cfg.Tracing.Endpoint = stripScheme(v)
		cfg.Tracing.Enabled = true
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// stripScheme turns "http://otel-collector:4317" into the host:port form the
// gRPC exporter expects.
func stripScheme(endpoint string) string {
	for _, prefix := range []string{"http://", "https://"} {
		endpoint = strings.TrimPrefix(endpoint, prefix)
	}
	return endpoint
}

// Validate checks struct constraints and reports every violated field.
func Validate(cfg ViewerConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
