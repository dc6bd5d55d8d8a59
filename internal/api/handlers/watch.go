// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/vibefoundry/vibefoundry/internal/broadcast"
	"github.com/vibefoundry/vibefoundry/internal/project"
	"github.com/vibefoundry/vibefoundry/internal/terminal"
	"github.com/vibefoundry/vibefoundry/internal/watcher"
)

// DefaultKeepalive is the idle time before a keepalive frame is sent.
const DefaultKeepalive = 30 * time.Second

var pongFrame = []byte("pong")

// WatchHandler serves the change notification WebSocket and manual checks.
type WatchHandler struct {
	registry  *broadcast.Registry
	ws        Workspace
	keepalive time.Duration
}

// NewWatchHandler creates a watch handler.
func NewWatchHandler(registry *broadcast.Registry, ws Workspace, keepalive time.Duration) *WatchHandler {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return &WatchHandler{registry: registry, ws: ws, keepalive: keepalive}
}

// WebSocket registers the connection as a broadcast observer until the
// peer goes away.
func (h *WatchHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Watch WebSocket: upgrade failed: %v", err)
		return
	}
	ch := newWSChannel(conn)
	h.registry.Register(ch)
	defer func() {
		h.registry.Unregister(ch.ID())
		ch.Close()
	}()

	h.serve(ch)
}

// serve answers pings and keeps an idle connection alive.
func (h *WatchHandler) serve(ch *wsChannel) {
	for {
		wait := h.keepalive - ch.idle()
		if wait <= 0 {
			if err := ch.Send(broadcast.Keepalive); err != nil {
				return
			}
			continue
		}

		msg, err := ch.Receive(wait)
		switch {
		case errors.Is(err, terminal.ErrTimeout):
			continue
		case err != nil:
			return
		}
		if string(msg) == "ping" {
			if err := ch.Send(pongFrame); err != nil {
				return
			}
		}
	}
}

// checkChange is one change in a manual check response.
type checkChange struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// CheckResponse is returned by Check.
type CheckResponse struct {
	Changes       bool          `json:"changes"`
	InputChanges  []checkChange `json:"input_changes"`
	OutputChanges []checkChange `json:"output_changes"`
	ScriptChanges []checkChange `json:"script_changes"`
}

// Check rescans immediately and reports every change since the last scan.
// Without a project it reports no changes.
func (h *WatchHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := CheckResponse{
		InputChanges:  []checkChange{},
		OutputChanges: []checkChange{},
		ScriptChanges: []checkChange{},
	}

	p, err := h.ws.Project()
	if err != nil {
		WriteJSON(w, http.StatusOK, resp)
		return
	}
	changes, err := h.ws.CheckChanges(r.Context())
	if errors.Is(err, project.ErrNoProject) {
		WriteJSON(w, http.StatusOK, resp)
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}

	resp.Changes = !changes.Empty()
	resp.InputChanges = convertChanges(p, changes.Input)
	resp.OutputChanges = convertChanges(p, changes.Output)
	resp.ScriptChanges = convertChanges(p, changes.Scripts)
	WriteJSON(w, http.StatusOK, resp)
}

func convertChanges(p *project.Project, changes []watcher.Change) []checkChange {
	out := make([]checkChange, 0, len(changes))
	for _, c := range changes {
		path := c.Path
		if rel, err := p.Rel(c.Path); err == nil {
			path = rel
		} else {
			path = filepath.ToSlash(path)
		}
		out = append(out, checkChange{Path: path, Type: string(c.Type)})
	}
	return out
}
