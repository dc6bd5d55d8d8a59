// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefoundry/vibefoundry/internal/api/version"
	"github.com/vibefoundry/vibefoundry/internal/broadcast"
	"github.com/vibefoundry/vibefoundry/internal/codespace"
	"github.com/vibefoundry/vibefoundry/internal/events"
	"github.com/vibefoundry/vibefoundry/internal/metadata"
	"github.com/vibefoundry/vibefoundry/internal/project"
	"github.com/vibefoundry/vibefoundry/internal/runner"
	"github.com/vibefoundry/vibefoundry/internal/terminal"
	"github.com/vibefoundry/vibefoundry/internal/watcher"
)

type noProject struct{}

func (noProject) Project() (*project.Project, error) { return nil, project.ErrNoProject }
func (noProject) SelectProject(context.Context, string) (*project.Project, error) {
	return nil, project.ErrNoProject
}
func (noProject) CheckChanges(context.Context) (watcher.Changes, error) {
	return watcher.Changes{}, project.ErrNoProject
}

func newTestRouterDeps(t *testing.T, staticDir string) Dependencies {
	t.Helper()
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	registry := broadcast.NewRegistry()
	t.Cleanup(func() {
		registry.Close()
		bus.Close()
	})
	return Dependencies{
		Workspace:       noProject{},
		TerminalManager: terminal.NewManager(terminal.BridgeOptions{}, bus),
		Registry:        registry,
		EventBus:        bus,
		Runner:          runner.New(runner.Options{}, bus),
		Metadata:        metadata.NewGenerator(bus),
		Syncer:          codespace.NewSyncer(codespace.Options{Bus: bus}),
		Keepalive:       time.Second,
		StaticDir:       staticDir,
		Version:         "test",
	}
}

func TestRouter_Routes(t *testing.T) {
	r := NewRouter(newTestRouterDeps(t, ""))

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/health", http.StatusOK},
		{"GET", "/api/folder/info", http.StatusOK},
		{"GET", "/api/files/tree", http.StatusBadRequest},
		{"GET", "/api/scripts", http.StatusBadRequest},
		{"GET", "/api/watch/check", http.StatusOK},
		{"GET", "/api/terminal/sessions", http.StatusOK},
		{"GET", "/api/events", http.StatusOK},
		{"POST", "/api/metadata/generate", http.StatusBadRequest},
		{"POST", "/api/sync/pull", http.StatusBadRequest},
		{"GET", "/", http.StatusServiceUnavailable},
		{"OPTIONS", "/api/files/write", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, version.LatestVersion, rec.Header().Get(version.Header))
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouter_PreflightExposesVersion(t *testing.T) {
	r := NewRouter(newTestRouterDeps(t, ""))

	req := httptest.NewRequest("OPTIONS", "/api/scripts/run", nil)
	req.Header.Set(version.Header, version.Version20260601)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, version.Header, rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, version.Version20260601, rec.Header().Get(version.Header))
}

func TestRouter_ServesUI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	r := NewRouter(newTestRouterDeps(t, dir))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/some/client/route", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html></html>", rec.Body.String())
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 8765}, newTestRouterDeps(t, ""))
	assert.Equal(t, "127.0.0.1:8765", s.Addr())
	assert.NoError(t, s.Shutdown(context.Background()))
	// A shut down server never starts listening.
	assert.NoError(t, s.ListenAndServe())
}

func TestCheckTLSConfig(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("c"), 0600))
	require.NoError(t, os.WriteFile(key, []byte("k"), 0600))

	enabled, err := CheckTLSConfig("", "")
	assert.NoError(t, err)
	assert.False(t, enabled)

	_, err = CheckTLSConfig(cert, "")
	assert.Error(t, err)

	_, err = CheckTLSConfig(cert, filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)

	enabled, err = CheckTLSConfig(cert, key)
	assert.NoError(t, err)
	assert.True(t, enabled)

	// Placeholder files are not a valid key pair.
	_, err = LoadTLSConfig(cert, key)
	assert.Error(t, err)
}

func TestTailscaleTLSConfig(t *testing.T) {
	cfg := TailscaleTLSConfig()
	assert.NotNil(t, cfg.GetCertificate)
	assert.Empty(t, cfg.Certificates)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join(home, "certs"), expandPath("~/certs"))
	assert.Equal(t, "/abs", expandPath("/abs"))
}
