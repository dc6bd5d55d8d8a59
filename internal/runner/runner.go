// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package runner discovers and executes the project's Python scripts.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vibefoundry/vibefoundry/internal/events"
)

const (
	// DefaultPython is the interpreter used when none is configured.
	DefaultPython = "python3"
	// DefaultTimeout bounds a single script run.
	DefaultTimeout = 5 * time.Minute
	// MaxOutputSize caps each captured stream.
	MaxOutputSize = 10 * 1024 * 1024
)

const truncatedNotice = "\n... output truncated (exceeded 10MB) ...\n"

// Options configures a Runner.
type Options struct {
	Python  string
	Timeout time.Duration
	// WaitDelay bounds how long Run waits for output pipes after the
	// script exits or is killed.
	WaitDelay time.Duration
}

// Result describes one script run.
type Result struct {
	ScriptPath string `json:"script_path"`
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
	Error      string `json:"error,omitempty"`
	TimedOut   bool   `json:"timed_out"`
}

// Runner executes scripts with a configured interpreter.
type Runner struct {
	python    string
	timeout   time.Duration
	waitDelay time.Duration
	bus       events.EventBus
}

// New creates a Runner. bus may be nil.
func New(opts Options, bus events.EventBus) *Runner {
	r := &Runner{
		python:    opts.Python,
		timeout:   opts.Timeout,
		waitDelay: opts.WaitDelay,
		bus:       bus,
	}
	if r.python == "" {
		r.python = DefaultPython
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.waitDelay <= 0 {
		r.waitDelay = 2 * time.Second
	}
	return r
}

// Discover returns every .py file under dir, sorted. A missing dir
// yields no scripts.
func Discover(dir string) ([]string, error) {
	var scripts []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ".py") {
			scripts = append(scripts, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover scripts: %w", err)
	}
	sort.Strings(scripts)
	return scripts, nil
}

// Run executes script with workDir as the working directory. Failures are
// reported in the Result, never as an error.
func (r *Runner) Run(ctx context.Context, script, workDir string) *Result {
	res := &Result{ScriptPath: script, ReturnCode: -1}

	info, err := os.Stat(script)
	if err != nil || info.IsDir() {
		res.Error = fmt.Sprintf("Script not found: %s", script)
		r.finished(ctx, res)
		return res
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, r.python, script)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Kill the whole group so helpers spawned by the script go too.
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = r.waitDelay

	stdout := &cappedBuffer{limit: MaxOutputSize}
	stderr := &cappedBuffer{limit: MaxOutputSize}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err = cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.Error = fmt.Sprintf("Script timed out after %s", r.timeout)
	case ctx.Err() != nil:
		res.Error = "canceled"
	case err == nil:
		res.Success = true
		res.ReturnCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ReturnCode = exitErr.ExitCode()
		} else {
			res.Error = err.Error()
		}
	}

	log.Printf("Runner: %s finished in %s (code %d, success %v)",
		filepath.Base(script), time.Since(start).Round(time.Millisecond), res.ReturnCode, res.Success)
	r.finished(ctx, res)
	return res
}

func (r *Runner) finished(ctx context.Context, res *Result) {
	if r.bus == nil {
		return
	}
	payload := map[string]interface{}{
		"success":     res.Success,
		"return_code": res.ReturnCode,
		"timed_out":   res.TimedOut,
	}
	if res.Error != "" {
		payload["error"] = res.Error
	}
	if err := r.bus.Publish(context.WithoutCancel(ctx), events.Event{
		Type:     events.EventScriptFinished,
		Path:     res.ScriptPath,
		Category: "scripts",
		Payload:  payload,
	}); err != nil && !errors.Is(err, events.ErrBusClosed) {
		log.Printf("Runner: publish %s: %v", events.EventScriptFinished, err)
	}
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + truncatedNotice
	}
	return b.buf.String()
}
