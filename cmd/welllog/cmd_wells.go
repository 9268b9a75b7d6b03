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
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/spf13/cobra"
)

func newWellsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "wells",
		Short: "List the wells in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			wells, err := a.wells.ListWells(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing wells: %w", err)
			}
			if len(wells) == 0 {
				a.printer.Warning("No wells stored. Upload one with 'welllog upload <file.las>'.")
				return nil
			}
			a.printer.Title(fmt.Sprintf("%d wells", len(wells)))
			a.printer.List(wells)
			return nil
		},
	}
}

func newCurvesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "curves <well>",
		Short: "List the curves of a well that can be plotted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			well := args[0]
			if err := validation.ValidateWellName(well); err != nil {
				return err
			}
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			curves, err := a.wells.ListCurves(cmd.Context(), well)
			if err != nil {
				return fmt.Errorf("listing curves of %s: %w", well, err)
			}
			selectable := datatypes.SelectableCurves(curves)
			names := make([]string, len(selectable))
			for i, c := range selectable {
				names[i] = c.Name
			}
			a.printer.Title(fmt.Sprintf("Curves of %s", well))
			a.printer.List(names)
			return nil
		},
	}
}

func newUploadCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.las>",
		Short: "Ingest a LAS 2.0 file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.wells.UploadLAS(cmd.Context(), filepath.Base(path), f)
			if err != nil {
				return fmt.Errorf("uploading %s: %w", path, err)
			}
			a.printer.Success(fmt.Sprintf("Stored %d points for well %s (%s)",
				res.Samples, res.Well, strings.Join(res.Curves, ", ")))
			return nil
		},
	}
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <well>",
		Short: "Remove a well and all its samples from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			well := args[0]
			if err := validation.ValidateWellName(well); err != nil {
				return err
			}
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.wells.DeleteWell(cmd.Context(), well); err != nil {
				return fmt.Errorf("deleting %s: %w", well, err)
			}
			a.printer.Success(fmt.Sprintf("Deleted well %s", well))
			return nil
		},
	}
}
