// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package project models a project folder: its layout, safe path
// resolution and file access for the UI.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNoProject is returned when no project folder is selected.
	ErrNoProject = errors.New("no project folder selected")
	// ErrOutsideRoot is returned for paths that escape the project.
	ErrOutsideRoot = errors.New("path is outside the project folder")
	// ErrNotDir is returned when a directory was expected.
	ErrNotDir = errors.New("path is not a directory")
	// ErrNotFile is returned when a regular file was expected.
	ErrNotFile = errors.New("path is not a file")
)

// Folder names relative to the project root.
const (
	InputFolder   = "input_folder"
	OutputFolder  = "output_folder"
	AppFolder     = "app_folder"
	ScriptsFolder = "app_folder/scripts"
	MetaFolder    = "app_folder/meta_data"
)

// Folders holds the absolute paths of a project's standard folders.
type Folders struct {
	Input   string `json:"input_folder"`
	Output  string `json:"output_folder"`
	App     string `json:"app_folder"`
	Scripts string `json:"scripts_folder"`
	Meta    string `json:"meta_folder"`
}

// Project is an opened project folder.
type Project struct {
	root string
}

// Open validates path and returns a project rooted there.
func Open(path string) (*Project, error) {
	if path == "" {
		return nil, ErrNoProject
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open project %s: %w", abs, ErrNotDir)
	}
	return &Project{root: abs}, nil
}

// Root returns the absolute project path.
func (p *Project) Root() string {
	return p.root
}

// Name returns the project folder's base name.
func (p *Project) Name() string {
	return filepath.Base(p.root)
}

// Folders returns the standard folder paths.
func (p *Project) Folders() Folders {
	return Folders{
		Input:   filepath.Join(p.root, InputFolder),
		Output:  filepath.Join(p.root, OutputFolder),
		App:     filepath.Join(p.root, AppFolder),
		Scripts: filepath.Join(p.root, filepath.FromSlash(ScriptsFolder)),
		Meta:    filepath.Join(p.root, filepath.FromSlash(MetaFolder)),
	}
}

// Setup creates any missing standard folders.
func (p *Project) Setup() (Folders, error) {
	f := p.Folders()
	for _, dir := range []string{f.Input, f.Output, f.App, f.Scripts, f.Meta} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return f, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return f, nil
}

// Resolve maps a project-relative path to an absolute one. Paths that
// leave the project, directly or through a symlink, are rejected.
func (p *Project) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	abs := filepath.Join(p.root, filepath.FromSlash(rel))
	if !within(p.root, abs) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}

	realRoot, err := filepath.EvalSymlinks(p.root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	if real, err := evalExisting(abs); err == nil && !within(realRoot, real) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	return abs, nil
}

// Rel converts an absolute path inside the project to a slash-separated
// relative path.
func (p *Project) Rel(abs string) (string, error) {
	if !within(p.root, abs) {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideRoot)
	}
	rel, err := filepath.Rel(p.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// evalExisting resolves symlinks in the longest existing prefix of path.
func evalExisting(path string) (string, error) {
	var suffix []string
	cur := path
	for {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{real}, suffix...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		suffix = append([]string{filepath.Base(cur)}, suffix...)
		cur = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
