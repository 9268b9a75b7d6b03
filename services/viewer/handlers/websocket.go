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
	"time"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/observability"
	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// newUpgrader accepts same-origin requests, requests without an Origin
// header, and any origin listed in allowed. "*" allows all.
func newUpgrader(allowed []string) websocket.Upgrader {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := set["*"]; ok {
				return true
			}
			if _, ok := set[origin]; ok {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleSessionWebSocket pushes every chart rebuild of a session as
// {"kind": "chart"|"cleaned", "chart": ChartSpec|null}.
//
// # Description
//
// The current main chart is sent first so a client that connects late does
// not wait for the next load. The connection is closed when the client goes
// away or the session is deleted.
func HandleSessionWebSocket(reg *session.Registry, allowedOrigins []string, m *observability.Metrics) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)

	return func(c *gin.Context) {
		s, ok := lookupSession(c, reg, m)
		if !ok {
			return
		}
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err, "session_id", s.ID())
			return
		}
		defer ws.Close()

		updates, cancel := s.Subscribe()
		defer cancel()

		current, err := s.Chart()
		if err != nil {
			slog.Error("Chart spec rejected", "session_id", s.ID(), "error", err)
			m.RecordInvalidSpec()
			return
		}
		if err := sendJSON(ws, session.Update{Kind: session.UpdateChart, Chart: current}); err != nil {
			return
		}

		// The reader only watches for the client going away.
		closed := make(chan struct{})
		ws.SetReadLimit(4096)
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		go func() {
			defer close(closed)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()

		slog.Info("WebSocket subscriber connected", "session_id", s.ID())
		for {
			select {
			case u, ok := <-updates:
				if !ok {
					_ = ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(wsWriteWait))
					return
				}
				if u.Chart != nil {
					kind := observability.ChartCurves
					if u.Kind == session.UpdateCleaned {
						kind = observability.ChartCleaned
					}
					m.RecordChart(kind)
				}
				if err := sendJSON(ws, u); err != nil {
					return
				}
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			case <-closed:
				slog.Info("WebSocket subscriber disconnected", "session_id", s.ID())
				return
			}
		}
	}
}
