// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPreviewRows bounds the rows returned for a dataframe preview.
const MaxPreviewRows = 1000

// Content kinds returned by ReadFile.
const (
	KindText      = "text"
	KindBinary    = "binary"
	KindDataframe = "dataframe"
)

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".xlsx": true, ".xls": true, ".parquet": true,
}

// Node is one entry in a project file tree.
type Node struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	IsDirectory  bool      `json:"isDirectory"`
	Extension    string    `json:"extension,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Children     []*Node   `json:"children,omitempty"`
}

// Dataframe is a parsed tabular preview.
type Dataframe struct {
	Columns   []string   `json:"columns"`
	Data      [][]string `json:"data"`
	RowCount  int        `json:"rowCount"`
	Truncated bool       `json:"truncated"`
}

// FileContent is the result of ReadFile.
type FileContent struct {
	Type      string     `json:"type"`
	Filename  string     `json:"filename"`
	Content   string     `json:"content,omitempty"`
	Encoding  string     `json:"encoding,omitempty"`
	Dataframe *Dataframe `json:"dataframe,omitempty"`
}

// Tree returns the project's file tree, skipping hidden entries.
// Directories sort before files, then by name.
func (p *Project) Tree() (*Node, error) {
	info, err := os.Stat(p.root)
	if err != nil {
		return nil, err
	}
	root := &Node{
		Name:         p.Name(),
		Path:         "",
		IsDirectory:  true,
		LastModified: info.ModTime(),
	}
	if err := p.fill(root, p.root); err != nil {
		return nil, err
	}
	return root, nil
}

func (p *Project) fill(node *Node, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		abs := filepath.Join(dir, e.Name())
		rel, _ := p.Rel(abs)
		child := &Node{
			Name:         e.Name(),
			Path:         rel,
			IsDirectory:  e.IsDir(),
			LastModified: info.ModTime(),
		}
		if e.IsDir() {
			if err := p.fill(child, abs); err != nil {
				return err
			}
		} else {
			child.Extension = strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), ".")
		}
		node.Children = append(node.Children, child)
	}
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDirectory != b.IsDirectory {
			return a.IsDirectory
		}
		return a.Name < b.Name
	})
	return nil
}

// ReadFile returns the contents of a project file in a form the UI can
// display.
func (p *Project) ReadFile(rel string) (*FileContent, error) {
	abs, err := p.Resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotFile)
	}

	name := filepath.Base(abs)
	ext := strings.ToLower(filepath.Ext(name))

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	switch {
	case ext == ".csv" || ext == ".tsv":
		comma := ','
		if ext == ".tsv" {
			comma = '\t'
		}
		df, err := ParseDataframe(bytes.NewReader(data), comma, MaxPreviewRows)
		if err == nil {
			return &FileContent{Type: KindDataframe, Filename: name, Dataframe: df}, nil
		}
		// Malformed tables fall through to plain text.
	case binaryExtensions[ext]:
		return binaryContent(name, data), nil
	}

	if !utf8.Valid(data) {
		return binaryContent(name, data), nil
	}
	return &FileContent{Type: KindText, Filename: name, Content: string(data), Encoding: "utf-8"}, nil
}

func binaryContent(name string, data []byte) *FileContent {
	return &FileContent{
		Type:     KindBinary,
		Filename: name,
		Content:  base64.StdEncoding.EncodeToString(data),
		Encoding: "base64",
	}
}

// ParseDataframe reads a delimited table. The first record is the header.
// At most limit rows are kept; RowCount is the full count.
func ParseDataframe(r io.Reader, comma rune, limit int) (*Dataframe, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Dataframe{Columns: []string{}, Data: [][]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	df := &Dataframe{Columns: header, Data: [][]string{}}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", df.RowCount+1, err)
		}
		df.RowCount++
		if limit > 0 && len(df.Data) >= limit {
			df.Truncated = true
			continue
		}
		df.Data = append(df.Data, rec)
	}
	return df, nil
}

// WriteFile writes content to a project file, creating parent folders.
func (p *Project) WriteFile(rel string, content []byte) error {
	abs, err := p.Resolve(rel)
	if err != nil {
		return err
	}
	if abs == p.root {
		return fmt.Errorf("%s: %w", rel, ErrNotFile)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	return os.WriteFile(abs, content, 0644)
}
