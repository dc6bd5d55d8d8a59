// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/vibefoundry/vibefoundry/internal/events"
	"github.com/vibefoundry/vibefoundry/internal/project"
)

// Output file names under the project's meta folder.
const (
	InputFile  = "input_metadata.txt"
	OutputFile = "output_metadata.txt"
)

// Result reports what Generate wrote. A nil summary means the folder
// did not exist.
type Result struct {
	Input  *Summary
	Output *Summary
}

// Generator writes metadata files for a project.
type Generator struct {
	bus events.EventBus
	now func() time.Time
}

// NewGenerator creates a Generator. bus may be nil.
func NewGenerator(bus events.EventBus) *Generator {
	return &Generator{bus: bus, now: time.Now}
}

// Generate describes the input and output folders of the project at root
// and writes the metadata files.
func (g *Generator) Generate(ctx context.Context, root string) (*Result, error) {
	p, err := project.Open(root)
	if err != nil {
		return nil, err
	}
	folders := p.Folders()
	if err := os.MkdirAll(folders.Meta, 0755); err != nil {
		return nil, fmt.Errorf("create meta folder: %w", err)
	}

	res := &Result{}
	now := g.now()
	res.Input, err = g.write(folders.Input, "Input Folder", filepath.Join(folders.Meta, InputFile), now)
	if err != nil {
		return res, err
	}
	res.Output, err = g.write(folders.Output, "Output Folder", filepath.Join(folders.Meta, OutputFile), now)
	if err != nil {
		return res, err
	}

	g.publish(ctx, p.Root(), res)
	return res, nil
}

func (g *Generator) write(folder, title, dest string, now time.Time) (*Summary, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, nil
	}
	sum, err := Describe(folder, title, now)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", folder, err)
	}
	if err := writeAtomic(dest, []byte(Render(sum))); err != nil {
		return sum, fmt.Errorf("write %s: %w", dest, err)
	}
	log.Printf("Metadata: %s: %d files, %s", title, len(sum.Files), humanize.Bytes(uint64(sum.TotalSize())))
	return sum, nil
}

func (g *Generator) publish(ctx context.Context, root string, res *Result) {
	if g.bus == nil {
		return
	}
	payload := map[string]interface{}{}
	if res.Input != nil {
		payload["input_files"] = len(res.Input.Files)
	}
	if res.Output != nil {
		payload["output_files"] = len(res.Output.Files)
	}
	err := g.bus.Publish(ctx, events.Event{
		Type:    events.EventMetadataGenerated,
		Project: root,
		Payload: payload,
	})
	if err != nil && !errors.Is(err, events.ErrBusClosed) {
		log.Printf("Metadata: publish: %v", err)
	}
}

// writeAtomic replaces dest so readers never see a partial file.
func writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// Regenerator runs Generate in the background. Requests made while a run
// is in flight collapse into a single follow-up run, and runs are spaced
// by a rate limiter.
type Regenerator struct {
	gen     *Generator
	limiter *rate.Limiter

	mu      sync.Mutex
	root    string
	kick    chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewRegenerator creates a Regenerator. minInterval is the least time
// between two runs; zero disables spacing.
func NewRegenerator(gen *Generator, minInterval time.Duration) *Regenerator {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Regenerator{
		gen:     gen,
		limiter: rate.NewLimiter(limit, 1),
		kick:    make(chan struct{}, 1),
	}
}

// Start launches the background loop.
func (r *Regenerator) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

// Stop ends the loop and waits for a run in flight.
func (r *Regenerator) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.started = false
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Trigger requests a run for the project at root.
func (r *Regenerator) Trigger(root string) {
	if root == "" {
		return
	}
	r.mu.Lock()
	r.root = root
	r.mu.Unlock()
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Handle is an events.EventHandler that triggers on data changes.
func (r *Regenerator) Handle(_ context.Context, event events.Event) error {
	r.Trigger(event.Project)
	return nil
}

func (r *Regenerator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		r.mu.Lock()
		root := r.root
		r.mu.Unlock()
		if _, err := r.gen.Generate(ctx, root); err != nil {
			log.Printf("Metadata: regenerate %s: %v", root, err)
		}
	}
}
