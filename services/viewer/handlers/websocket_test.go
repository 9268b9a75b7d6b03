// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianWellLog/services/viewer/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSession(t *testing.T, srv *httptest.Server, id string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + id + "/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

func readUpdate(t *testing.T, ws *websocket.Conn) session.Update {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var u session.Update
	require.NoError(t, ws.ReadJSON(&u))
	return u
}

func TestSessionWebSocket_PushesRebuilds(t *testing.T) {
	h := newHarness(t)
	id := h.sessionWith(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	ws, _, err := dialSession(t, srv, id, nil)
	require.NoError(t, err)
	defer ws.Close()

	first := readUpdate(t, ws)
	assert.Equal(t, session.UpdateChart, first.Kind)
	assert.Nil(t, first.Chart, "nothing selected yet")

	s, err := h.reg.Get(id)
	require.NoError(t, err)
	_, err = s.ToggleCurve("GR")
	require.NoError(t, err)

	u := readUpdate(t, ws)
	assert.Equal(t, session.UpdateChart, u.Kind)
	require.NotNil(t, u.Chart)
	require.Len(t, u.Chart.Traces, 1)
	assert.Equal(t, "GR", u.Chart.Traces[0].Curve)

	cleaned := readUpdate(t, ws)
	assert.Equal(t, session.UpdateCleaned, cleaned.Kind)
	assert.Nil(t, cleaned.Chart)
}

func TestSessionWebSocket_ClosedWithSession(t *testing.T) {
	h := newHarness(t)
	id := h.sessionWith(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	ws, _, err := dialSession(t, srv, id, nil)
	require.NoError(t, err)
	defer ws.Close()
	readUpdate(t, ws)

	require.NoError(t, h.reg.Delete(id))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestSessionWebSocket_UnknownSession(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	_, resp, err := dialSession(t, srv, "missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin", nil, "", true},
		{"same host", nil, "http://viewer:12230", true},
		{"foreign", nil, "http://evil.example", false},
		{"listed", []string{"http://ui.example"}, "http://ui.example", true},
		{"wildcard", []string{"*"}, "http://anything.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUpgrader(tt.allowed)
			r := httptest.NewRequest(http.MethodGet, "http://viewer:12230/v1/sessions/x/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, u.CheckOrigin(r))
		})
	}
}
