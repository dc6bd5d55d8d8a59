// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package codespace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/vibefoundry/vibefoundry/internal/events"
	"github.com/vibefoundry/vibefoundry/internal/metadata"
	"github.com/vibefoundry/vibefoundry/internal/project"
)

const defaultConcurrency = 4

// Files that never leave the machine. Data files stay local; the remote
// owns its helper scripts and instructions.
var (
	forbiddenExtensions = map[string]bool{
		".pdf": true, ".csv": true, ".xlsx": true, ".xls": true,
		".xlsm": true, ".xlsb": true, ".ppt": true, ".pptx": true,
	}
	protectedFiles = map[string]bool{
		"sync_server.py":    true,
		"metadatafarmer.py": true,
		"CLAUDE.md":         true,
	}
	skippedDirs = map[string]bool{
		"meta_data":    true,
		"node_modules": true,
	}
)

// Options configures a Syncer.
type Options struct {
	HTTPClient  *http.Client    // nil uses a 30 second timeout
	Concurrency int             // parallel transfers, default 4
	Bus         events.EventBus // may be nil
}

// Syncer moves scripts and metadata between a project and a Codespace.
type Syncer struct {
	hc          *http.Client
	concurrency int
	bus         events.EventBus
}

// NewSyncer creates a Syncer.
func NewSyncer(opts Options) *Syncer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Syncer{hc: opts.HTTPClient, concurrency: opts.Concurrency, bus: opts.Bus}
}

// PullResult reports a pull. LastSync maps remote paths to the remote
// modification time last downloaded; send it back on the next pull.
type PullResult struct {
	SyncedFiles []string         `json:"synced_files"`
	LastSync    map[string]int64 `json:"last_sync"`
}

// PushResult reports a push.
type PushResult struct {
	PushedFiles []string `json:"pushed_files"`
}

// MetadataResult reports a metadata push. Synced is false when there was
// nothing to send.
type MetadataResult struct {
	Success bool `json:"success"`
	Synced  bool `json:"synced"`
}

// FullResult reports a pull followed by a metadata push.
type FullResult struct {
	Scripts  *PullResult `json:"scripts_sync"`
	Metadata bool        `json:"metadata_sync"`
}

// Pull downloads every remote script newer than its lastSync entry into
// the project's app_folder. Failing to list the remote fails the pull;
// a single failed download is logged and retried on the next pull.
func (s *Syncer) Pull(ctx context.Context, p *project.Project, remoteURL string, lastSync map[string]int64) (*PullResult, error) {
	remote, err := NewRemote(remoteURL, s.hc)
	if err != nil {
		return nil, err
	}
	scripts, err := remote.Scripts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch scripts: %v", ErrRemote, err)
	}
	if err := os.MkdirAll(p.Folders().App, 0755); err != nil {
		return nil, fmt.Errorf("create app folder: %w", err)
	}

	res := &PullResult{SyncedFiles: []string{}, LastSync: make(map[string]int64, len(lastSync))}
	for k, v := range lastSync {
		res.LastSync[k] = v
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, script := range scripts {
		name := script.Path
		if name == "" {
			name = script.Name
		}
		if name == "" {
			continue
		}
		serverMod := int64(script.Modified)
		localMod := lastSync[name]
		if localMod >= serverMod {
			res.LastSync[name] = localMod
			continue
		}

		g.Go(func() error {
			if err := s.download(gctx, remote, p, name); err != nil {
				log.Printf("Codespace sync: pull %s: %v", name, err)
				return nil
			}
			mu.Lock()
			res.LastSync[name] = serverMod
			res.SyncedFiles = append(res.SyncedFiles, name)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	sort.Strings(res.SyncedFiles)

	log.Printf("Codespace sync: pulled %d of %d scripts from %s", len(res.SyncedFiles), len(scripts), remote.URL())
	s.publish(ctx, p, "pull", remote.URL(), len(res.SyncedFiles))
	return res, nil
}

func (s *Syncer) download(ctx context.Context, remote *Remote, p *project.Project, name string) error {
	rel, err := mirrorPath(name)
	if err != nil {
		return err
	}
	content, err := remote.Script(ctx, name)
	if err != nil {
		return err
	}
	return p.WriteFile(rel, []byte(content))
}

// mirrorPath maps a remote script path to its project-relative location
// under app_folder. Paths that would leave app_folder are rejected.
func mirrorPath(name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%s: %w", name, project.ErrOutsideRoot)
	}
	return project.AppFolder + clean, nil
}

// Push uploads the text files under app_folder, skipping hidden entries,
// dependency and metadata folders, protected helpers and data files.
func (s *Syncer) Push(ctx context.Context, p *project.Project, remoteURL string) (*PushResult, error) {
	remote, err := NewRemote(remoteURL, s.hc)
	if err != nil {
		return nil, err
	}

	files, err := collectPushFiles(p.Folders().App)
	if err != nil {
		return nil, err
	}

	res := &PushResult{PushedFiles: []string{}}
	var (
		mu   sync.Mutex
		sent uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, f := range files {
		g.Go(func() error {
			if err := remote.PutScript(gctx, f.path, f.content); err != nil {
				log.Printf("Codespace sync: push %s: %v", f.path, err)
				return nil
			}
			mu.Lock()
			res.PushedFiles = append(res.PushedFiles, f.path)
			sent += uint64(len(f.content))
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	sort.Strings(res.PushedFiles)

	log.Printf("Codespace sync: pushed %d files (%s) to %s", len(res.PushedFiles), humanize.Bytes(sent), remote.URL())
	s.publish(ctx, p, "push", remote.URL(), len(res.PushedFiles))
	return res, nil
}

type pushFile struct {
	path    string // slash-separated, relative to app_folder
	content string
}

// collectPushFiles lists the files a push sends. A missing folder yields
// nothing; unreadable or binary files are skipped.
func collectPushFiles(root string) ([]pushFile, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []pushFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if p == root {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err != nil {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skippedDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || protectedFiles[name] || forbiddenExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil || !utf8.Valid(data) {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		files = append(files, pushFile{path: filepath.ToSlash(rel), content: string(data)})
		return nil
	})
	return files, err
}

// PushMetadata sends the project's metadata summaries. When neither file
// has content nothing is sent and Synced is false.
func (s *Syncer) PushMetadata(ctx context.Context, p *project.Project, remoteURL string) (*MetadataResult, error) {
	remote, err := NewRemote(remoteURL, s.hc)
	if err != nil {
		return nil, err
	}

	meta := p.Folders().Meta
	md := Metadata{
		Input:  readText(filepath.Join(meta, metadata.InputFile)),
		Output: readText(filepath.Join(meta, metadata.OutputFile)),
	}
	if md.Input == "" && md.Output == "" {
		return &MetadataResult{Success: true}, nil
	}

	if err := remote.PutMetadata(ctx, md); err != nil {
		return nil, fmt.Errorf("%w: push metadata: %v", ErrRemote, err)
	}
	log.Printf("Codespace sync: pushed metadata to %s", remote.URL())
	s.publish(ctx, p, "metadata", remote.URL(), 2)
	return &MetadataResult{Success: true, Synced: true}, nil
}

// Full pulls scripts, then pushes metadata. Only the pull can fail the
// call; a failed metadata push reports Metadata false.
func (s *Syncer) Full(ctx context.Context, p *project.Project, remoteURL string, lastSync map[string]int64) (*FullResult, error) {
	pulled, err := s.Pull(ctx, p, remoteURL, lastSync)
	if err != nil {
		return nil, err
	}
	res := &FullResult{Scripts: pulled}
	md, err := s.PushMetadata(ctx, p, remoteURL)
	if err != nil {
		log.Printf("Codespace sync: %v", err)
		return res, nil
	}
	res.Metadata = md.Synced
	return res, nil
}

func (s *Syncer) publish(ctx context.Context, p *project.Project, direction, remote string, files int) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, events.Event{
		Type:    events.EventSyncCompleted,
		Project: p.Root(),
		Payload: map[string]interface{}{
			"direction": direction,
			"remote":    remote,
			"files":     files,
		},
	})
	if err != nil && !errors.Is(err, events.ErrBusClosed) {
		log.Printf("Codespace sync: publish: %v", err)
	}
}

func readText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
