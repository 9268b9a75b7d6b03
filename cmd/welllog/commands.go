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
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianWellLog/pkg/logging"
	"github.com/AleutianAI/AleutianWellLog/pkg/ux"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/backend"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/config"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	plain      bool
	logLevel   string
}

// app is what a command runs against: the loaded viewer configuration and
// one backend client per collaborator, each with its own rate limit.
type app struct {
	cfg     config.ViewerConfig
	wells   *backend.Client
	ai      *backend.Client
	printer *ux.Printer
	logger  *logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "welllog",
		Short: "Browse stored well logs and render curve charts",
		Long: `welllog talks to the well service and the AI service configured
for the viewer. It lists wells and curves, ingests LAS files and renders
multi-track curve charts to PNG or ChartSpec JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"viewer config file (defaults to $WELLLOG_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&opts.plain, "plain", false,
		"plain output, no colors or boxes")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newWellsCmd(opts),
		newCurvesCmd(opts),
		newUploadCmd(opts),
		newDeleteCmd(opts),
		newPlotCmd(opts),
		newChatCmd(opts),
	)
	return rootCmd
}

// newApp loads configuration and builds the clients for cmd.
func (o *globalOptions) newApp(cmd *cobra.Command) (*app, error) {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:   level,
		Service: "welllog-cli",
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(logger.Slog())

	mode := ux.ModePlain
	if f, ok := cmd.OutOrStdout().(*os.File); ok && !o.plain {
		mode = ux.DetectMode(f)
	}

	return &app{
		cfg: cfg,
		wells: backend.NewClient(backend.Options{
			WellServiceURL:    cfg.WellService.URL,
			AIServiceURL:      cfg.AIService.URL,
			RequestsPerSecond: cfg.WellService.RequestsPerSecond,
			Burst:             cfg.WellService.Burst,
			Timeout:           cfg.WellService.Timeout,
		}),
		ai: backend.NewClient(backend.Options{
			WellServiceURL:    cfg.WellService.URL,
			AIServiceURL:      cfg.AIService.URL,
			RequestsPerSecond: cfg.AIService.RequestsPerSecond,
			Burst:             cfg.AIService.Burst,
			Timeout:           cfg.AIService.Timeout,
		}),
		printer: ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
		logger:  logger,
	}, nil
}

func (a *app) close() {
	if err := a.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close the log file: %v\n", err)
	}
}
