// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, ErrNoProject)

	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = Open(file)
	assert.ErrorIs(t, err, ErrNotDir)

	_, err = Open(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	p, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, p.Root())
	assert.Equal(t, filepath.Base(dir), p.Name())
}

func TestSetup_CreatesLayout(t *testing.T) {
	p, err := Open(t.TempDir())
	require.NoError(t, err)

	folders, err := p.Setup()
	require.NoError(t, err)
	for _, dir := range []string{folders.Input, folders.Output, folders.App, folders.Scripts, folders.Meta} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(p.Root(), "app_folder", "scripts"), folders.Scripts)

	// Idempotent.
	_, err = p.Setup()
	assert.NoError(t, err)
}

func TestResolve(t *testing.T) {
	p, err := Open(t.TempDir())
	require.NoError(t, err)

	abs, err := p.Resolve("input_folder/a.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Root(), "input_folder", "a.csv"), abs)

	abs, err = p.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, p.Root(), abs)

	for _, bad := range []string{"../x", "a/../../x", "/etc/passwd"} {
		_, err := p.Resolve(bad)
		assert.ErrorIs(t, err, ErrOutsideRoot, bad)
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	p, err := Open(t.TempDir())
	require.NoError(t, err)
	if err := os.Symlink(outside, filepath.Join(p.Root(), "escape")); err != nil {
		t.Skip("symlinks not supported")
	}

	_, err = p.Resolve("escape/secret.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestRel(t *testing.T) {
	p, err := Open(t.TempDir())
	require.NoError(t, err)

	rel, err := p.Rel(filepath.Join(p.Root(), "output_folder", "r.csv"))
	require.NoError(t, err)
	assert.Equal(t, "output_folder/r.csv", rel)

	_, err = p.Rel(filepath.Dir(p.Root()))
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
