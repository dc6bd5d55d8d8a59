// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"cert without key", func(c *Config) { c.Server.TLSCert = "cert.pem" }, "server.tls_cert"},
		{"tailscale with cert", func(c *Config) {
			c.Server.TailscaleTLS = true
			c.Server.TLSCert, c.Server.TLSKey = "cert.pem", "key.pem"
		}, "server.tailscale_tls"},
		{"missing project", func(c *Config) { c.Project.Path = "/no/such/project" }, "project.path"},
		{"project is a file", func(c *Config) { c.Project.Path = file }, "project.path"},
		{"negative rows", func(c *Config) { c.Terminal.Rows = -1 }, "terminal.rows"},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "half a second" }, "watch.debounce"},
		{"negative keepalive", func(c *Config) { c.Watch.Keepalive = "-5s" }, "watch.keepalive"},
		{"interval too small", func(c *Config) { c.Watch.Interval = "1ms" }, "watch.interval"},
		{"bad sync timeout", func(c *Config) { c.Sync.Timeout = "soon" }, "sync.timeout"},
		{"negative sync concurrency", func(c *Config) { c.Sync.Concurrency = -2 }, "sync.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			var fields []string
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidator_AccumulatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = -1
	cfg.Watch.Interval = "never"
	cfg.Scripts.Timeout = "eventually"

	err := NewValidator().Validate(cfg)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
}

func TestValidator_ExistingProject(t *testing.T) {
	cfg := Default()
	cfg.Project.Path = t.TempDir()
	assert.NoError(t, NewValidator().Validate(cfg))
}
