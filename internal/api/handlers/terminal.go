// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"log"
	"net/http"

	"github.com/vibefoundry/vibefoundry/internal/project"
	"github.com/vibefoundry/vibefoundry/internal/terminal"
)

// TerminalHandler serves terminal WebSockets.
type TerminalHandler struct {
	mgr *terminal.Manager
	ws  Workspace
}

// NewTerminalHandler creates a new terminal handler.
func NewTerminalHandler(mgr *terminal.Manager, ws Workspace) *TerminalHandler {
	return &TerminalHandler{mgr: mgr, ws: ws}
}

// ListSessions returns the live terminal bridges.
func (h *TerminalHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": h.mgr.List(),
	})
}

// WebSocket bridges a connection to a fresh shell. The shell starts in
// the cwd query parameter, else the project root, else the home folder.
func (h *TerminalHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	cwd := r.URL.Query().Get("cwd")
	if cwd == "" {
		cwd = h.defaultDir()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Terminal WebSocket: upgrade failed: %v", err)
		return
	}
	ch := newWSChannel(conn)
	defer ch.Close()

	if err := h.mgr.Serve(r.Context(), ch, cwd); err != nil {
		log.Printf("Terminal WebSocket: bridge ended: %v", err)
	}
}

func (h *TerminalHandler) defaultDir() string {
	if h.ws != nil {
		if p, err := h.ws.Project(); err == nil {
			return p.Root()
		}
	}
	home, err := project.Home()
	if err != nil {
		return ""
	}
	return home
}
