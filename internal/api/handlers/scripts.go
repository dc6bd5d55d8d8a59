// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"log"
	"net/http"
	"path/filepath"

	"github.com/vibefoundry/vibefoundry/internal/metadata"
	"github.com/vibefoundry/vibefoundry/internal/project"
	"github.com/vibefoundry/vibefoundry/internal/runner"
)

// ScriptsHandler lists and runs project scripts and regenerates metadata.
type ScriptsHandler struct {
	ws  Workspace
	run *runner.Runner
	gen *metadata.Generator
}

// NewScriptsHandler creates a scripts handler.
func NewScriptsHandler(ws Workspace, run *runner.Runner, gen *metadata.Generator) *ScriptsHandler {
	return &ScriptsHandler{ws: ws, run: run, gen: gen}
}

// ScriptInfo is one discovered script.
type ScriptInfo struct {
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	Name         string `json:"name"`
}

// List returns the scripts under app_folder/scripts.
func (h *ScriptsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := h.ws.Project()
	if err != nil {
		writeFSError(w, err)
		return
	}
	dir := p.Folders().Scripts
	paths, err := runner.Discover(dir)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}

	scripts := make([]ScriptInfo, 0, len(paths))
	for _, path := range paths {
		rel, _ := filepath.Rel(dir, path)
		scripts = append(scripts, ScriptInfo{
			Path:         path,
			RelativePath: filepath.ToSlash(rel),
			Name:         filepath.Base(path),
		})
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"scripts": scripts})
}

type runRequest struct {
	Scripts []string `json:"scripts"`
}

// Run executes the requested scripts in order, then regenerates metadata.
// Paths may be absolute or relative to the project root but must stay
// inside it.
func (h *ScriptsHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := h.ws.Project()
	if err != nil {
		writeFSError(w, err)
		return
	}

	scripts := make([]string, 0, len(req.Scripts))
	for _, s := range req.Scripts {
		abs, err := resolveScript(p, s)
		if err != nil {
			writeFSError(w, err)
			return
		}
		scripts = append(scripts, abs)
	}

	results := make([]*runner.Result, 0, len(scripts))
	for _, script := range scripts {
		if r.Context().Err() != nil {
			break
		}
		results = append(results, h.run.Run(r.Context(), script, p.Root()))
	}

	if _, err := h.gen.Generate(context.WithoutCancel(r.Context()), p.Root()); err != nil {
		log.Printf("Scripts: metadata after run: %v", err)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func resolveScript(p *project.Project, path string) (string, error) {
	if filepath.IsAbs(path) {
		rel, err := p.Rel(filepath.Clean(path))
		if err != nil {
			return "", err
		}
		path = rel
	}
	return p.Resolve(path)
}

// GenerateMetadata rewrites the metadata files and returns their text.
func (h *ScriptsHandler) GenerateMetadata(w http.ResponseWriter, r *http.Request) {
	p, err := h.ws.Project()
	if err != nil {
		writeFSError(w, err)
		return
	}
	res, err := h.gen.Generate(r.Context(), p.Root())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"success":         true,
		"input_metadata":  nil,
		"output_metadata": nil,
	}
	if res.Input != nil {
		resp["input_metadata"] = metadata.Render(res.Input)
	}
	if res.Output != nil {
		resp["output_metadata"] = metadata.Render(res.Output)
	}
	WriteJSON(w, http.StatusOK, resp)
}
