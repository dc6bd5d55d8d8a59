// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package terminal bridges interactive shells running on a pseudo-terminal
// to a duplex message channel such as a WebSocket.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"
)

// ErrSpawn is returned when a shell cannot be started on a new pty.
var ErrSpawn = errors.New("cannot start terminal session")

const (
	defaultRows        = 24
	defaultCols        = 80
	defaultStopTimeout = 2 * time.Second
	defaultWriteWait   = 100 * time.Millisecond
)

// SessionOptions configures a new Session.
type SessionOptions struct {
	Shell       string        // empty tries $SHELL, then /bin/bash, then /bin/sh
	WorkDir     string        // empty uses the home directory
	Rows        int           // default 24
	Cols        int           // default 80
	Env         []string      // appended to the server environment
	StopTimeout time.Duration // grace period between SIGTERM and SIGKILL
}

// Session is a shell process attached to a pty. The process and the pty
// master are released together by Terminate.
type Session struct {
	cmd         *exec.Cmd
	ptmx        *os.File
	fd          int
	shell       string
	workDir     string
	startedAt   time.Time
	stopTimeout time.Duration

	// ioMu is held shared by reads and writes and exclusively while the
	// pty is closed, so the fd is never reused under a pending poll.
	ioMu   sync.RWMutex
	closed bool

	sizeMu sync.Mutex
	rows   uint16
	cols   uint16

	exited  chan struct{}
	waitErr error

	terminateOnce sync.Once
	terminateErr  error
}

// StartSession spawns a shell on a new pty.
func StartSession(opts SessionOptions) (*Session, error) {
	shell, err := resolveShell(opts.Shell)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir, _ = os.UserHomeDir()
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		home, _ := os.UserHomeDir()
		log.Printf("Terminal session: working directory %q unusable, using %q", workDir, home)
		workDir = home
	}

	rows, cols := opts.Rows, opts.Cols
	if rows <= 0 {
		rows = defaultRows
	}
	if cols <= 0 {
		cols = defaultCols
	}

	cmd := exec.Command(shell)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	cmd.Env = append(cmd.Env, opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	// Fd switches the master to blocking mode; reads and writes poll
	// instead, so a full input queue never stalls the caller.
	fd := int(ptmx.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		log.Printf("Terminal session: set non-blocking: %v", err)
	}

	s := &Session{
		cmd:         cmd,
		ptmx:        ptmx,
		fd:          fd,
		shell:       shell,
		workDir:     workDir,
		startedAt:   time.Now(),
		stopTimeout: stopTimeout,
		rows:        uint16(rows),
		cols:        uint16(cols),
		exited:      make(chan struct{}),
	}

	// Reap as soon as the shell exits so it never lingers as a zombie.
	go func() {
		s.waitErr = cmd.Wait()
		close(s.exited)
	}()

	return s, nil
}

// resolveShell finds the shell to run. An explicitly configured shell must
// exist; otherwise $SHELL, bash and sh are tried in turn.
func resolveShell(preferred string) (string, error) {
	if preferred != "" {
		return exec.LookPath(preferred)
	}
	candidates := []string{os.Getenv("SHELL"), "/bin/bash", "/bin/sh"}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no usable shell found")
}

// PID returns the shell's process id.
func (s *Session) PID() int {
	return s.cmd.Process.Pid
}

// Alive reports whether the shell is still running.
func (s *Session) Alive() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Exited is closed once the shell has been reaped.
func (s *Session) Exited() <-chan struct{} {
	return s.exited
}

// Size returns the current geometry.
func (s *Session) Size() (rows, cols int) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()
	return int(s.rows), int(s.cols)
}

// Resize changes the pty geometry. It is a no-op once the session ended.
func (s *Session) Resize(rows, cols int) error {
	if rows <= 0 || cols <= 0 || rows > 0xffff || cols > 0xffff {
		return fmt.Errorf("invalid terminal size %dx%d", cols, rows)
	}

	s.ioMu.RLock()
	defer s.ioMu.RUnlock()
	if s.closed || !s.Alive() {
		return nil
	}

	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	s.sizeMu.Lock()
	s.rows, s.cols = uint16(rows), uint16(cols)
	s.sizeMu.Unlock()
	return nil
}

// ReadNonBlocking waits at most timeout for output. It returns (0, nil)
// when nothing arrived and io.EOF once the shell side has hung up.
func (s *Session) ReadNonBlocking(buf []byte, timeout time.Duration) (int, error) {
	s.ioMu.RLock()
	defer s.ioMu.RUnlock()
	if s.closed {
		return 0, io.EOF
	}

	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("poll pty: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	revents := fds[0].Revents
	if revents&unix.POLLIN == 0 {
		if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return 0, io.EOF
		}
		return 0, nil
	}

	n, err = unix.Read(s.fd, buf)
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, nil
	case err == unix.EIO:
		// Linux reports EIO on the master once the slave side closed.
		return 0, io.EOF
	case err != nil:
		return 0, fmt.Errorf("read pty: %w", err)
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// Write sends all of p to the shell, waiting as long as the shell takes
// to drain its input. Input is dropped once the session ended.
func (s *Session) Write(p []byte) error {
	for len(p) > 0 {
		n, err := s.WriteNonBlocking(p, defaultWriteWait)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// WriteNonBlocking writes as much of p as the pty accepts within timeout
// and returns how many bytes were consumed. Once the session ended the
// input is dropped and n is len(p).
func (s *Session) WriteNonBlocking(p []byte, timeout time.Duration) (int, error) {
	s.ioMu.RLock()
	defer s.ioMu.RUnlock()
	if s.closed || !s.Alive() {
		return len(p), nil
	}

	deadline := time.Now().Add(timeout)
	written := 0
	for written < len(p) {
		n, err := unix.Write(s.fd, p[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil, err == unix.EINTR:
		case err == unix.EIO:
			return len(p), nil
		case err == unix.EAGAIN:
			wait := time.Until(deadline)
			if wait <= 0 {
				return written, nil
			}
			fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLOUT}}
			if _, perr := unix.Poll(fds, int(wait/time.Millisecond)+1); perr != nil && perr != unix.EINTR {
				return written, fmt.Errorf("poll pty: %w", perr)
			}
		default:
			return written, fmt.Errorf("write pty: %w", err)
		}
	}
	return written, nil
}

// Terminate stops the shell and releases the pty. It sends SIGHUP and
// SIGTERM to the shell's process group, escalates to SIGKILL after the stop timeout,
// reaps the process and always closes the pty master. Calling Terminate
// again, or on a shell that already exited, returns the first result.
func (s *Session) Terminate() error {
	s.terminateOnce.Do(func() {
		s.terminateErr = s.terminate()
	})
	return s.terminateErr
}

func (s *Session) terminate() error {
	var errs []error

	if s.Alive() {
		pid := s.cmd.Process.Pid
		// pty.Start makes the shell a session leader, so its pgid is its pid.
		// Interactive shells ignore SIGTERM but exit on SIGHUP.
		for _, sig := range []syscall.Signal{syscall.SIGHUP, syscall.SIGTERM} {
			if err := syscall.Kill(-pid, sig); err != nil && err != syscall.ESRCH {
				errs = append(errs, fmt.Errorf("signal %v: %w", sig, err))
			}
		}

		select {
		case <-s.exited:
		case <-time.After(s.stopTimeout):
			log.Printf("Terminal session %d: still running after %v, sending SIGKILL", pid, s.stopTimeout)
			if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
				errs = append(errs, fmt.Errorf("sigkill: %w", err))
			}
			select {
			case <-s.exited:
			case <-time.After(s.stopTimeout):
				errs = append(errs, fmt.Errorf("process %d not reaped", pid))
			}
		}
	}

	s.ioMu.Lock()
	if !s.closed {
		s.closed = true
		if err := s.ptmx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pty: %w", err))
		}
	}
	s.ioMu.Unlock()

	return errors.Join(errs...)
}

// SessionInfo describes a running session.
type SessionInfo struct {
	PID        int       `json:"pid"`
	Shell      string    `json:"shell"`
	Foreground string    `json:"foreground,omitempty"`
	WorkDir    string    `json:"work_dir"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	StartedAt  time.Time `json:"started_at"`
	Alive      bool      `json:"alive"`
}

// Info returns a snapshot of the session for listings.
func (s *Session) Info() SessionInfo {
	rows, cols := s.Size()
	info := SessionInfo{
		PID:       s.PID(),
		Shell:     s.shell,
		WorkDir:   s.workDir,
		Rows:      rows,
		Cols:      cols,
		StartedAt: s.startedAt,
		Alive:     s.Alive(),
	}
	if info.Alive {
		info.Foreground = foreground(info.PID)
	}
	return info
}

// foreground names the newest child of the shell, or the shell itself
// when it has no children.
func foreground(pid int) string {
	procs, err := ps.Processes()
	if err != nil {
		return ""
	}
	var children []ps.Process
	var self ps.Process
	for _, p := range procs {
		switch {
		case p.Pid() == pid:
			self = p
		case p.PPid() == pid:
			children = append(children, p)
		}
	}
	if len(children) > 0 {
		sort.Slice(children, func(i, j int) bool { return children[i].Pid() < children[j].Pid() })
		return children[len(children)-1].Executable()
	}
	if self != nil {
		return self.Executable()
	}
	return ""
}
