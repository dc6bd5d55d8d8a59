// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefoundry/vibefoundry/internal/config"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"data", "-p", "9000", "--no-browser", "--host", "0.0.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "data", opts.folder)
	assert.Equal(t, 9000, opts.port)
	assert.True(t, opts.noBrowser)
	assert.Equal(t, "0.0.0.0", opts.host)
	assert.False(t, opts.dev)

	opts, err = parseFlags([]string{"-v"})
	require.NoError(t, err)
	assert.True(t, opts.showVersion)
	assert.Empty(t, opts.folder)

	_, err = parseFlags([]string{"a", "b"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"--help"})
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestProjectFolder(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	got, err := projectFolder("")
	require.NoError(t, err)
	assert.Equal(t, cwd, got)

	dir := t.TempDir()
	got, err = projectFolder(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = projectFolder(filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "does not exist")

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = projectFolder(file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestRunInit_WritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	answers := strings.Join([]string{dir, "9123", "/opt/py/bin/python", ""}, "\n") + "\n"
	var out bytes.Buffer

	require.NoError(t, runInit([]string{"--dir", dir}, strings.NewReader(answers), &out))
	assert.Contains(t, out.String(), "Created ")

	cfg, err := config.NewLoader().LoadWithDefaults(context.Background(), filepath.Join(dir, configFile))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Project.Path)
	assert.Equal(t, 9123, cfg.Server.Port)
	assert.Equal(t, "/opt/py/bin/python", cfg.Scripts.Python)
	assert.Equal(t, "5m", cfg.Scripts.Timeout)
	assert.True(t, cfg.Watch.Fsnotify)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	require.NoError(t, config.NewValidator().Validate(cfg))
}

func TestRunInit_RefusesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte("{}"), 0644))

	err := runInit([]string{"-d", dir}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "already exists")
}

func TestEscapeHJSONValue(t *testing.T) {
	assert.Equal(t, `C:\\data \"x\"`, escapeHJSONValue(`C:\data "x"`))
}
