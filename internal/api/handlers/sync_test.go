// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCodespaceServer serves one script and records uploads.
func newCodespaceServer(t *testing.T) (*httptest.Server, func() map[string]string) {
	t.Helper()
	var mu sync.Mutex
	uploads := map[string]string{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /scripts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"scripts":[{"name":"clean.py","path":"scripts/clean.py","modified":1700000000.5}]}`))
	})
	mux.HandleFunc("GET /scripts/{path...}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"content": "print('clean')\n"})
	})
	mux.HandleFunc("POST /scripts/{path...}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		uploads[r.PathValue("path")] = body.Content
		mu.Unlock()
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /metadata", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, func() map[string]string {
		mu.Lock()
		defer mu.Unlock()
		out := make(map[string]string, len(uploads))
		for k, v := range uploads {
			out[k] = v
		}
		return out
	}
}

func TestSync_PullAndPush(t *testing.T) {
	root := t.TempDir()
	env := newTestEnv(t, root)
	remote, uploads := newCodespaceServer(t)

	rec := env.do(t, "POST", "/api/sync/pull", map[string]interface{}{"codespace_url": remote.URL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pulled struct {
		SyncedFiles []string         `json:"synced_files"`
		LastSync    map[string]int64 `json:"last_sync"`
	}
	decodeData(t, rec, &pulled)
	assert.Equal(t, []string{"scripts/clean.py"}, pulled.SyncedFiles)
	assert.Equal(t, int64(1700000000), pulled.LastSync["scripts/clean.py"])

	data, err := os.ReadFile(filepath.Join(root, "app_folder", "scripts", "clean.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('clean')\n", string(data))

	rec = env.do(t, "POST", "/api/sync/push", map[string]interface{}{"codespace_url": remote.URL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pushed struct {
		PushedFiles []string `json:"pushed_files"`
	}
	decodeData(t, rec, &pushed)
	assert.Contains(t, pushed.PushedFiles, "scripts/clean.py")
	assert.Equal(t, "print('clean')\n", uploads()["scripts/clean.py"])
}

func TestSync_MetadataAndFull(t *testing.T) {
	root := t.TempDir()
	env := newTestEnv(t, root)
	remote, _ := newCodespaceServer(t)

	rec := env.do(t, "POST", "/api/sync/metadata", map[string]interface{}{"codespace_url": remote.URL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var md struct {
		Success bool `json:"success"`
		Synced  bool `json:"synced"`
	}
	decodeData(t, rec, &md)
	assert.True(t, md.Success)

	rec = env.do(t, "POST", "/api/sync/full", map[string]interface{}{
		"codespace_url": remote.URL,
		"last_sync":     map[string]int64{"scripts/clean.py": 1700000000},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var full struct {
		Scripts struct {
			SyncedFiles []string `json:"synced_files"`
		} `json:"scripts_sync"`
		Metadata bool `json:"metadata_sync"`
	}
	decodeData(t, rec, &full)
	assert.Empty(t, full.Scripts.SyncedFiles)
}

func TestSync_Errors(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, "POST", "/api/sync/pull", map[string]string{"codespace_url": "http://127.0.0.1:1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrNoProject, errorCode(t, rec))

	env = newTestEnv(t, t.TempDir())
	rec = env.do(t, "POST", "/api/sync/push", map[string]string{"codespace_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrBadRequest, errorCode(t, rec))

	rec = env.do(t, "POST", "/api/sync/pull", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	rec = env.do(t, "POST", "/api/sync/pull", map[string]string{"codespace_url": down.URL})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrBadGateway, errorCode(t, rec))
}
