// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticHandler serves the built single-page UI. Unknown paths fall back
// to index.html so client-side routes survive a reload.
type StaticHandler struct {
	dir string
}

// NewStaticHandler serves files from dir. An empty dir means no UI.
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{dir: dir}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(h.dir, "index.html")
	if h.dir == "" || !isFile(index) {
		WriteError(w, http.StatusServiceUnavailable, ErrUnavailable,
			"Frontend not built. Run the UI build or use the API directly.")
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(clean, "/api/") || strings.HasPrefix(clean, "/ws/") {
		WriteError(w, http.StatusNotFound, ErrNotFound, "not found")
		return
	}
	file := filepath.Join(h.dir, filepath.FromSlash(clean))
	if clean != "/" && isFile(file) {
		http.ServeFile(w, r, file)
		return
	}
	http.ServeFile(w, r, index)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
