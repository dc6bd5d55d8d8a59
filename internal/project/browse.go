// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirEntry is a folder shown in the folder picker.
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is the folder picker's view of one directory.
type Listing struct {
	Current string     `json:"current"`
	Parent  string     `json:"parent,omitempty"`
	Folders []DirEntry `json:"folders"`
}

// Home returns the user's home directory.
func Home() (string, error) {
	return os.UserHomeDir()
}

// ListDirs lists the visible subdirectories of path. An empty path lists
// the home directory.
func ListDirs(path string) (*Listing, error) {
	if path == "" {
		home, err := Home()
		if err != nil {
			return nil, err
		}
		path = home
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDir)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	listing := &Listing{Current: abs, Folders: []DirEntry{}}
	if parent := filepath.Dir(abs); parent != abs {
		listing.Parent = parent
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(abs, e.Name())
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			if fi, err := os.Stat(full); err == nil {
				isDir = fi.IsDir()
			}
		}
		if !isDir {
			continue
		}
		listing.Folders = append(listing.Folders, DirEntry{Name: e.Name(), Path: full})
	}
	sort.Slice(listing.Folders, func(i, j int) bool {
		return strings.ToLower(listing.Folders[i].Name) < strings.ToLower(listing.Folders[j].Name)
	})
	return listing, nil
}
