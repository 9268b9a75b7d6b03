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
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianWellLog/pkg/validation"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/backend"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/plot"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
)

// respondError maps err to one status and one JSON error message.
//
// # Description
//
// A stale response is not an error for the operator: it is counted, logged
// at Info and answered with 204. An invalid chart spec is a programming
// error and is logged at Error. Upstream failures keep the collaborator's
// 404 so a missing well reads as missing; every other upstream status is 502.
func respondError(c *gin.Context, m *observability.Metrics, op string, err error) {
	var upstream *backend.UpstreamError

	switch {
	case errors.Is(err, session.ErrStaleResponse):
		m.RecordStale(op)
		slog.Info("Stale response discarded", "op", op, "path", c.FullPath())
		c.Status(http.StatusNoContent)
		return

	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, session.ErrNoWell):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, session.ErrNotSelectable),
		errors.Is(err, session.ErrInvalidDepthRange),
		errors.Is(err, validation.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, plot.ErrInvalidSpec):
		m.RecordInvalidSpec()
		slog.Error("Chart spec rejected", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build chart"})

	case errors.As(err, &upstream):
		status := http.StatusBadGateway
		if upstream.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		slog.Warn("Upstream service error", "op", op, "status", upstream.Status, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})

	case errors.Is(err, backend.ErrUnavailable):
		slog.Warn("Upstream service unavailable", "op", op, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		slog.Error("Request failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// lookupSession resolves the :id path parameter, answering 404 itself when
// the session does not exist.
func lookupSession(c *gin.Context, reg *session.Registry, m *observability.Metrics) (*session.Session, bool) {
	s, err := reg.Get(c.Param("id"))
	if err != nil {
		respondError(c, m, "lookup_session", err)
		return nil, false
	}
	return s, true
}
