// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/datatypes"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
)

// HandleChat answers one chat turn with the session's well as context. A
// session without a well still chats; the reply is simply not well-aware.
func HandleChat(reg *session.Registry, chatter session.Chatter, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		var req datatypes.ChatTurnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		reply, err := s.Chat(ctx, chatter, req.Message)
		if err != nil {
			span.RecordError(err)
			respondError(c, m, "chat", err)
			return
		}
		c.JSON(http.StatusOK, datatypes.ChatResponse{Reply: reply})
	}
}
