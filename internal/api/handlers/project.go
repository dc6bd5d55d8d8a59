// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vibefoundry/vibefoundry/internal/project"
)

// ProjectHandler serves project selection and file access.
type ProjectHandler struct {
	ws      Workspace
	version string
}

// NewProjectHandler creates a project handler.
func NewProjectHandler(ws Workspace, version string) *ProjectHandler {
	return &ProjectHandler{ws: ws, version: version}
}

// Health reports liveness and the selected project.
func (h *ProjectHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":         "ok",
		"version":        h.version,
		"project_folder": nil,
	}
	if p, err := h.ws.Project(); err == nil {
		resp["project_folder"] = p.Root()
	}
	WriteJSON(w, http.StatusOK, resp)
}

type selectRequest struct {
	Path string `json:"path"`
}

// SelectFolder switches to a new project folder.
func (h *ProjectHandler) SelectFolder(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "path is required")
		return
	}

	p, err := h.ws.SelectProject(r.Context(), req.Path)
	if err != nil {
		writeFSError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"name":           p.Name(),
		"project_folder": p.Root(),
		"folders":        p.Folders(),
	})
}

// FolderInfo describes the selected project.
func (h *ProjectHandler) FolderInfo(w http.ResponseWriter, r *http.Request) {
	p, err := h.ws.Project()
	if errors.Is(err, project.ErrNoProject) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"project_folder": nil})
		return
	}
	if err != nil {
		writeFSError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project_folder": p.Root(),
		"name":           p.Name(),
		"folders":        p.Folders(),
	})
}

// Home returns the user's home folder.
func (h *ProjectHandler) Home(w http.ResponseWriter, r *http.Request) {
	home, err := project.Home()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"path": home})
}

// ListDirs lists folders for the folder picker.
func (h *ProjectHandler) ListDirs(w http.ResponseWriter, r *http.Request) {
	listing, err := project.ListDirs(r.URL.Query().Get("path"))
	if err != nil {
		writeFSError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listing)
}

// Tree returns the project file tree.
func (h *ProjectHandler) Tree(w http.ResponseWriter, r *http.Request) {
	p, err := h.ws.Project()
	if err != nil {
		writeFSError(w, err)
		return
	}
	tree, err := p.Tree()
	if err != nil {
		writeFSError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"tree": tree})
}

// ReadFile returns one project file.
func (h *ProjectHandler) ReadFile(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "path is required")
		return
	}
	p, err := h.ws.Project()
	if err != nil {
		writeFSError(w, err)
		return
	}
	content, err := p.ReadFile(rel)
	if err != nil {
		writeFSError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, content)
}

type writeRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFile stores text content in a project file.
func (h *ProjectHandler) WriteFile(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Path == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "path is required")
		return
	}
	p, err := h.ws.Project()
	if err != nil {
		writeFSError(w, err)
		return
	}
	if err := p.WriteFile(req.Path, []byte(req.Content)); err != nil {
		writeFSError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "path": req.Path})
}
