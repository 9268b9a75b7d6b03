// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MaxChatMessageBytes caps the size of one operator chat message.
const MaxChatMessageBytes = 16 * 1024

var chatValidate = validator.New()

// ChatTurnRequest is what an operator posts to the viewer.
type ChatTurnRequest struct {
	Message string `json:"message" validate:"required,max=16384"`
}

// Validate checks the message is present and within MaxChatMessageBytes.
//
// The validator's max counts runes, so the byte length is checked as well.
func (r ChatTurnRequest) Validate() error {
	if err := chatValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid chat request: %w", err)
	}
	if len(r.Message) > MaxChatMessageBytes {
		return fmt.Errorf("invalid chat request: message exceeds %d bytes", MaxChatMessageBytes)
	}
	return nil
}

// ChatRequest is forwarded to the chat collaborator, carrying the selected
// well as context.
type ChatRequest struct {
	Well    string `json:"well,omitempty"`
	Message string `json:"message"`
}

// ChatResponse is the chat collaborator's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}
