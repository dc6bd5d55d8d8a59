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

func TestListDirs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Beta", "alpha", ".hidden"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0644))

	listing, err := ListDirs(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, listing.Current)
	assert.Equal(t, filepath.Dir(dir), listing.Parent)
	require.Len(t, listing.Folders, 2)
	assert.Equal(t, "alpha", listing.Folders[0].Name)
	assert.Equal(t, "Beta", listing.Folders[1].Name)
	assert.Equal(t, filepath.Join(dir, "alpha"), listing.Folders[0].Path)
}

func TestListDirs_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := ListDirs(file)
	assert.ErrorIs(t, err, ErrNotDir)

	_, err = ListDirs(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestListDirs_Root(t *testing.T) {
	listing, err := ListDirs("/")
	require.NoError(t, err)
	assert.Empty(t, listing.Parent)
}
