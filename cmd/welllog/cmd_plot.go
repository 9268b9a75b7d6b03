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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/plot"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/render"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type plotOptions struct {
	curves     []string
	top        *float64
	bottom     *float64
	interpret  bool
	out        string
	cleanedOut string
	asJSON     bool
	width      int
	height     int
}

// plotResult is what --json prints.
type plotResult struct {
	Chart   *plot.ChartSpec `json:"chart"`
	Summary string          `json:"summary,omitempty"`
	Cleaned *plot.ChartSpec `json:"cleaned,omitempty"`
}

func newPlotCmd(opts *globalOptions) *cobra.Command {
	var (
		po          plotOptions
		top, bottom float64
	)
	cmd := &cobra.Command{
		Use:   "plot <well>",
		Short: "Render a multi-track chart of up to three curves",
		Long: `Loads the selected curves of a well and renders them as one track per
curve. With --interpret the AI service's spike depths are overlaid and the
cleaned curves can be written with --cleaned-out.`,
		Example: `  welllog plot 15/9-F-11 --curves GR,RHOB --top 2500 --bottom 3200
  welllog plot W-1 --curves GR --interpret --cleaned-out cleaned.png
  welllog plot W-1 --curves GR,NPHI --json > chart.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("top") {
				po.top = &top
			}
			if cmd.Flags().Changed("bottom") {
				po.bottom = &bottom
			}
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if po.width == 0 {
				po.width = a.cfg.Render.Width
			}
			if po.height == 0 {
				po.height = a.cfg.Render.Height
			}
			return runPlot(cmd.Context(), a, args[0], po)
		},
	}
	cmd.Flags().StringSliceVar(&po.curves, "curves", nil, "curves to plot, at most 3 (e.g. GR,RHOB)")
	cmd.Flags().Float64Var(&top, "top", 0, "shallowest depth to load")
	cmd.Flags().Float64Var(&bottom, "bottom", 0, "deepest depth to load")
	cmd.Flags().BoolVar(&po.interpret, "interpret", false, "overlay the AI service's interpretation")
	cmd.Flags().StringVarP(&po.out, "out", "o", "chart.png", "PNG output path")
	cmd.Flags().StringVar(&po.cleanedOut, "cleaned-out", "", "PNG output path for the cleaned curves (needs --interpret)")
	cmd.Flags().BoolVar(&po.asJSON, "json", false, "print the ChartSpec JSON instead of writing a PNG")
	cmd.Flags().IntVar(&po.width, "width", 0, "image width in pixels (defaults to the render config)")
	cmd.Flags().IntVar(&po.height, "height", 0, "image height in pixels (defaults to the render config)")
	_ = cmd.MarkFlagRequired("curves")
	return cmd
}

// runPlot drives a local session through select, toggle, load (and
// interpret) and writes the resulting charts.
func runPlot(ctx context.Context, a *app, well string, po plotOptions) error {
	if err := validation.ValidateWellName(well); err != nil {
		return err
	}
	if po.cleanedOut != "" && !po.interpret {
		return errors.New("--cleaned-out needs --interpret")
	}

	s := session.New("cli")
	defer s.Close()
	s.SelectWell(well)

	seen := make(map[string]bool)
	for _, c := range po.curves {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		if err := validation.ValidateCurveName(c); err != nil {
			return err
		}
		selected, err := s.ToggleCurve(c)
		if err != nil {
			return err
		}
		if !selected {
			a.printer.Warning(fmt.Sprintf("Ignoring %s: at most %d curves can be plotted", c, datatypes.MaxSelection))
		}
	}
	if len(s.Selection()) == 0 {
		return errors.New("no curves selected: pass --curves")
	}
	if err := s.SetDepthRange(session.DepthRange{Top: po.top, Bottom: po.bottom}); err != nil {
		return err
	}

	res := plotResult{}
	if po.interpret {
		if err := loadAndInterpret(ctx, a, s); err != nil {
			return err
		}
		chart, err := s.Chart()
		if err != nil {
			return err
		}
		cleaned, err := s.CleanedChart()
		if err != nil {
			return err
		}
		res = plotResult{Chart: chart, Summary: s.Summary(), Cleaned: cleaned}
	} else {
		loaded, err := s.Load(ctx, a.wells)
		if err != nil {
			return fmt.Errorf("loading samples: %w", err)
		}
		res.Chart = loaded.Chart
	}

	if po.asJSON {
		enc := json.NewEncoder(a.printer.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if err := writePNG(po.out, res.Chart, render.Options{Width: po.width, Height: po.height}); err != nil {
		return err
	}
	state := s.State()
	a.printer.Success(fmt.Sprintf("Wrote %s (%s, %d samples)", po.out,
		strings.Join(state.Selection, ", "), state.SampleCount))

	if po.interpret {
		a.printer.Box("Interpretation", res.Summary)
		if po.cleanedOut != "" {
			if res.Cleaned == nil {
				a.printer.Warning("The AI service returned no cleaned curves")
				return nil
			}
			if err := writePNG(po.cleanedOut, res.Cleaned, render.Options{Width: po.width, Height: po.height}); err != nil {
				return err
			}
			a.printer.Success(fmt.Sprintf("Wrote %s", po.cleanedOut))
		}
	}
	return nil
}

// loadAndInterpret fetches samples and the interpretation concurrently,
// then applies them in order under the tag taken before either call.
func loadAndInterpret(ctx context.Context, a *app, s *session.Session) error {
	tag := s.Tag()
	state := s.State()
	q := datatypes.SampleQuery{
		Well:   tag.Well,
		Curves: state.Selection,
		Top:    state.Depth.Top,
		Bottom: state.Depth.Bottom,
	}
	req := datatypes.InterpretRequest{
		Well:   tag.Well,
		Curves: state.Selection,
		Top:    state.Depth.Top,
		Bottom: state.Depth.Bottom,
	}

	var (
		samples []datatypes.CurveSample
		result  *datatypes.InterpretationResult
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		samples, err = a.wells.FetchSamples(gCtx, q)
		if err != nil {
			return fmt.Errorf("loading samples: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		result, err = a.ai.Interpret(gCtx, req)
		if err != nil {
			return fmt.Errorf("interpreting: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if _, err := s.ApplySamples(tag, samples); err != nil {
		return err
	}
	return s.ApplyInterpretation(tag, result)
}

// writePNG renders spec to path, removing the file if rendering fails.
func writePNG(path string, spec *plot.ChartSpec, opts render.Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if err := render.PNG(f, spec, opts); err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return nil
}
