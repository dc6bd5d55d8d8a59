// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metadata writes plain-text summaries of the project's data files
// for coding assistants working in the terminal.
package metadata

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Column types reported for tabular files.
const (
	TypeInt    = "int64"
	TypeFloat  = "float64"
	TypeBool   = "bool"
	TypeObject = "object"
)

var dataExtensions = map[string]bool{
	".csv":     true,
	".tsv":     true,
	".xlsx":    true,
	".xls":     true,
	".parquet": true,
}

// Column is one column of a tabular file.
type Column struct {
	Name string
	Type string
}

// FileInfo describes one data file.
type FileInfo struct {
	Path    string // relative to the scanned folder, slash separated
	Abs     string
	Size    int64
	Tabular bool
	Rows    int
	Columns []Column
	Err     error
}

// Summary is the description of one folder.
type Summary struct {
	Title     string
	Folder    string
	Generated time.Time
	Files     []FileInfo
}

// TotalSize returns the summed size of the described files.
func (s *Summary) TotalSize() int64 {
	var n int64
	for _, f := range s.Files {
		n += f.Size
	}
	return n
}

// Describe scans folder recursively for data files. Hidden entries are
// skipped.
func Describe(folder, title string, now time.Time) (*Summary, error) {
	sum := &Summary{Title: title, Folder: folder, Generated: now}
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != folder && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !dataExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		sum.Files = append(sum.Files, describeFile(folder, path))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sum.Files, func(i, j int) bool { return sum.Files[i].Path < sum.Files[j].Path })
	return sum, nil
}

func describeFile(folder, path string) FileInfo {
	rel, _ := filepath.Rel(folder, path)
	fi := FileInfo{Path: filepath.ToSlash(rel), Abs: path}

	info, err := os.Stat(path)
	if err != nil {
		fi.Err = err
		return fi
	}
	fi.Size = info.Size()

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".tsv" {
		return fi
	}
	comma := ','
	if ext == ".tsv" {
		comma = '\t'
	}

	f, err := os.Open(path)
	if err != nil {
		fi.Err = err
		return fi
	}
	defer f.Close()

	fi.Columns, fi.Rows, fi.Err = inspectTable(f, comma)
	fi.Tabular = fi.Err == nil
	return fi
}

// inspectTable reads a whole delimited table and infers one type per
// column. Empty cells do not affect inference except that they widen
// integer columns to float, as missing values do in a dataframe.
func inspectTable(r io.Reader, comma rune) ([]Column, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	names := append([]string(nil), header...)
	inf := make([]inference, len(names))

	rows := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rows, err
		}
		rows++
		for i := range inf {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			inf[i].observe(v)
		}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Type: inf[i].result()}
	}
	return cols, rows, nil
}

type inference struct {
	seen     bool
	missing  bool
	notInt   bool
	notFloat bool
	notBool  bool
}

func (in *inference) observe(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		in.missing = true
		return
	}
	in.seen = true
	if !in.notInt {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			in.notInt = true
		}
	}
	if !in.notFloat {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			in.notFloat = true
		}
	}
	if !in.notBool {
		switch v {
		case "True", "False", "TRUE", "FALSE", "true", "false":
		default:
			in.notBool = true
		}
	}
}

func (in *inference) result() string {
	switch {
	case !in.seen:
		return TypeFloat
	case !in.notBool && !in.missing:
		return TypeBool
	case !in.notInt && !in.missing:
		return TypeInt
	case !in.notFloat:
		return TypeFloat
	default:
		return TypeObject
	}
}

// Render formats a summary as the text file read by assistants.
func Render(sum *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Metadata\n", sum.Title)
	fmt.Fprintf(&b, "Folder: %s\n", sum.Folder)
	fmt.Fprintf(&b, "Generated: %s\n", sum.Generated.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")

	if len(sum.Files) == 0 {
		b.WriteString("No data files found.")
		return b.String()
	}

	for _, f := range sum.Files {
		if f.Err != nil {
			fmt.Fprintf(&b, "File: %s\n", f.Path)
			fmt.Fprintf(&b, "  Error reading: %v\n\n", f.Err)
			continue
		}
		fmt.Fprintf(&b, "File: %s\n", f.Path)
		fmt.Fprintf(&b, "  Absolute Path: %s\n", f.Abs)
		fmt.Fprintf(&b, "  Size: %.2f MB\n", float64(f.Size)/(1024*1024))
		if !f.Tabular {
			b.WriteString("  Format: not inspected\n\n")
			continue
		}
		fmt.Fprintf(&b, "  Rows: %d\n", f.Rows)
		fmt.Fprintf(&b, "  Columns (%d):\n", len(f.Columns))
		for _, c := range f.Columns {
			fmt.Fprintf(&b, "    - %s (%s)\n", c.Name, c.Type)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
