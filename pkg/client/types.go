// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// Health is the server liveness report.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	ProjectFolder string `json:"project_folder"`
}

// Folders holds the absolute paths of a project's working folders.
type Folders struct {
	Input   string `json:"input_folder"`
	Output  string `json:"output_folder"`
	App     string `json:"app_folder"`
	Scripts string `json:"scripts_folder"`
	Meta    string `json:"meta_folder"`
}

// ProjectInfo describes the selected project. ProjectFolder is empty when
// none is selected.
type ProjectInfo struct {
	ProjectFolder string  `json:"project_folder"`
	Name          string  `json:"name"`
	Folders       Folders `json:"folders"`
}

// DirEntry is one folder in a directory listing.
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is a directory listing used to pick a project folder.
type Listing struct {
	Current string     `json:"current"`
	Parent  string     `json:"parent,omitempty"`
	Folders []DirEntry `json:"folders"`
}

// FileNode is one entry of the project tree. Paths are relative to the
// project root.
type FileNode struct {
	Name         string      `json:"name"`
	Path         string      `json:"path"`
	IsDirectory  bool        `json:"isDirectory"`
	Extension    string      `json:"extension,omitempty"`
	LastModified time.Time   `json:"lastModified"`
	Children     []*FileNode `json:"children,omitempty"`
}

// Dataframe is a tabular preview of a CSV or TSV file.
type Dataframe struct {
	Columns   []string   `json:"columns"`
	Data      [][]string `json:"data"`
	RowCount  int        `json:"rowCount"`
	Truncated bool       `json:"truncated"`
}

// File content types.
const (
	ContentText      = "text"
	ContentBinary    = "binary"
	ContentDataframe = "dataframe"
)

// FileContent is a file read from the project. Binary content is base64
// encoded.
type FileContent struct {
	Type      string     `json:"type"`
	Filename  string     `json:"filename"`
	Content   string     `json:"content,omitempty"`
	Encoding  string     `json:"encoding,omitempty"`
	Dataframe *Dataframe `json:"dataframe,omitempty"`
}

// Script is a runnable script in the project's scripts folder.
type Script struct {
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	Name         string `json:"name"`
}

// ScriptResult is the outcome of one script run.
type ScriptResult struct {
	ScriptPath string `json:"script_path"`
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
	Error      string `json:"error,omitempty"`
	TimedOut   bool   `json:"timed_out"`
}

// Metadata holds rendered metadata summaries. A nil field means the
// folder does not exist.
type Metadata struct {
	Success bool    `json:"success"`
	Input   *string `json:"input_metadata"`
	Output  *string `json:"output_metadata"`
}

// Change is one changed file, relative to the project root.
type Change struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Changes is the result of a watch check.
type Changes struct {
	Changes       bool     `json:"changes"`
	InputChanges  []Change `json:"input_changes"`
	OutputChanges []Change `json:"output_changes"`
	ScriptChanges []Change `json:"script_changes"`
}

// TerminalSession describes a live terminal.
type TerminalSession struct {
	ID      string       `json:"id"`
	State   string       `json:"state"`
	Session *ShellDetail `json:"session,omitempty"`
}

// ShellDetail describes the shell behind a terminal.
type ShellDetail struct {
	PID        int       `json:"pid"`
	Shell      string    `json:"shell"`
	Foreground string    `json:"foreground,omitempty"`
	WorkDir    string    `json:"work_dir"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	StartedAt  time.Time `json:"started_at"`
	Alive      bool      `json:"alive"`
}

// Event is a recorded server event.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Timestamp  time.Time              `json:"timestamp"`
	Project    string                 `json:"project,omitempty"`
	Path       string                 `json:"path,omitempty"`
	Category   string                 `json:"category,omitempty"`
	ChangeType string                 `json:"change_type,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// PullResult reports a script pull. LastSync maps remote paths to the
// remote modification time (Unix seconds) last downloaded.
type PullResult struct {
	SyncedFiles []string         `json:"synced_files"`
	LastSync    map[string]int64 `json:"last_sync"`
}

// FullSync reports a pull followed by a metadata push.
type FullSync struct {
	Scripts  PullResult `json:"scripts_sync"`
	Metadata bool       `json:"metadata_sync"`
}
