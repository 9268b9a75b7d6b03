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
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
)

// SelectWellRequest is the body of PUT /v1/sessions/:id/well.
type SelectWellRequest struct {
	Well string `json:"well" binding:"required"`
}

// ToggleCurveResponse reports the selection after a toggle.
type ToggleCurveResponse struct {
	Curve     string   `json:"curve"`
	Selected  bool     `json:"selected"`
	Selection []string `json:"selection"`
}

// HandleCreateSession starts an empty session.
func HandleCreateSession(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := reg.Create()
		m.SetActiveSessions(reg.Len())
		slog.Info("Session created", "session_id", s.ID())
		c.JSON(http.StatusCreated, gin.H{"session_id": s.ID()})
	}
}

// HandleGetSession returns the session state.
func HandleGetSession(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.State())
	}
}

// HandleDeleteSession drops a session and disconnects its subscribers.
func HandleDeleteSession(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := reg.Delete(id); err != nil {
			respondError(c, m, "delete_session", err)
			return
		}
		m.SetActiveSessions(reg.Len())
		slog.Info("Session deleted", "session_id", id)
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "session_id": id})
	}
}

// HandleSelectWell switches the session to another well. Everything tied to
// the previous well is discarded.
func HandleSelectWell(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		var req SelectWellRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := validation.ValidateWellName(req.Well); err != nil {
			respondError(c, m, "select_well", err)
			return
		}
		s.SelectWell(req.Well)
		slog.Info("Well selected", "session_id", s.ID(), "well", req.Well)
		c.JSON(http.StatusOK, s.State())
	}
}

// HandleToggleCurve adds or removes a curve from the selection.
func HandleToggleCurve(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		curve := c.Param("curve")
		if err := validation.ValidateCurveName(curve); err != nil {
			respondError(c, m, "toggle_curve", err)
			return
		}
		selected, err := s.ToggleCurve(curve)
		if err != nil {
			respondError(c, m, "toggle_curve", err)
			return
		}
		c.JSON(http.StatusOK, ToggleCurveResponse{
			Curve:     curve,
			Selected:  selected,
			Selection: s.Selection(),
		})
	}
}

// HandleSetDepth bounds the depth window of the next load.
func HandleSetDepth(reg *session.Registry, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		var req session.DepthRange
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := s.SetDepthRange(req); err != nil {
			respondError(c, m, "set_depth", err)
			return
		}
		c.JSON(http.StatusOK, s.State())
	}
}
