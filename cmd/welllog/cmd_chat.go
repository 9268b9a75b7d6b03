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
	"strings"

	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/spf13/cobra"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	var well string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the AI service one question, optionally about a well",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turn := datatypes.ChatTurnRequest{Message: strings.Join(args, " ")}
			if err := turn.Validate(); err != nil {
				return err
			}
			if well != "" {
				if err := validation.ValidateWellName(well); err != nil {
					return err
				}
			}
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s := session.New("cli")
			defer s.Close()
			if well != "" {
				s.SelectWell(well)
			}
			reply, err := s.Chat(cmd.Context(), a.ai, turn.Message)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			fmt.Fprintln(a.printer.Out, reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&well, "well", "", "well the question is about")
	return cmd
}
