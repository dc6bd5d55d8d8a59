// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"

	"github.com/vibefoundry/vibefoundry/internal/codespace"
	"github.com/vibefoundry/vibefoundry/internal/project"
)

// SyncHandler mirrors scripts and metadata with a Codespace.
type SyncHandler struct {
	ws     Workspace
	syncer *codespace.Syncer
}

// NewSyncHandler creates a sync handler.
func NewSyncHandler(ws Workspace, syncer *codespace.Syncer) *SyncHandler {
	return &SyncHandler{ws: ws, syncer: syncer}
}

type syncRequest struct {
	CodespaceURL string           `json:"codespace_url"`
	LastSync     map[string]int64 `json:"last_sync"`
}

// request decodes the body and returns the selected project. On failure
// the response is already written.
func (h *SyncHandler) request(w http.ResponseWriter, r *http.Request) (*syncRequest, *project.Project, bool) {
	var req syncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body: "+err.Error())
		return nil, nil, false
	}
	p, err := h.ws.Project()
	if err != nil {
		writeFSError(w, err)
		return nil, nil, false
	}
	return &req, p, true
}

func writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, codespace.ErrInvalidURL):
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
	case errors.Is(err, codespace.ErrRemote):
		WriteError(w, http.StatusBadGateway, ErrBadGateway, err.Error())
	default:
		writeFSError(w, err)
	}
}

// Pull downloads remote scripts changed since last_sync.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	req, p, ok := h.request(w, r)
	if !ok {
		return
	}
	res, err := h.syncer.Pull(r.Context(), p, req.CodespaceURL, req.LastSync)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Push uploads local scripts.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	req, p, ok := h.request(w, r)
	if !ok {
		return
	}
	res, err := h.syncer.Push(r.Context(), p, req.CodespaceURL)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Metadata uploads the metadata summaries.
func (h *SyncHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	req, p, ok := h.request(w, r)
	if !ok {
		return
	}
	res, err := h.syncer.PushMetadata(r.Context(), p, req.CodespaceURL)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Full pulls scripts, then pushes metadata.
func (h *SyncHandler) Full(w http.ResponseWriter, r *http.Request) {
	req, p, ok := h.request(w, r)
	if !ok {
		return
	}
	res, err := h.syncer.Full(r.Context(), p, req.CodespaceURL, req.LastSync)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
