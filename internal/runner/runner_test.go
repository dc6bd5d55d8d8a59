// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefoundry/vibefoundry/internal/events"
)

// Scripts are run with sh so the tests do not depend on a Python install.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func shRunner(timeout time.Duration, bus events.EventBus) *Runner {
	return New(Options{Python: "sh", Timeout: timeout, WaitDelay: 200 * time.Millisecond}, bus)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.py", "")
	writeScript(t, dir, "a.py", "")
	writeScript(t, dir, "nested/c.py", "")
	writeScript(t, dir, "notes.txt", "")
	writeScript(t, dir, ".venv/lib.py", "")

	scripts, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.py"),
		filepath.Join(dir, "b.py"),
		filepath.Join(dir, "nested", "c.py"),
	}, scripts)
}

func TestDiscover_MissingDir(t *testing.T) {
	scripts, err := Discover(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "app_folder/scripts/ok.py", "pwd\necho err >&2\n")

	res := shRunner(5*time.Second, nil).Run(context.Background(), script, dir)

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ReturnCode)
	assert.Empty(t, res.Error)
	assert.False(t, res.TimedOut)
	assert.Equal(t, script, res.ScriptPath)

	// Runs from the project root.
	realDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, realDir, strings.TrimSpace(res.Stdout))
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRun_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fail.py", "echo boom\nexit 3\n")

	res := shRunner(5*time.Second, nil).Run(context.Background(), script, dir)

	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ReturnCode)
	assert.Equal(t, "boom\n", res.Stdout)
	assert.Empty(t, res.Error)
}

func TestRun_MissingScript(t *testing.T) {
	dir := t.TempDir()
	res := shRunner(time.Second, nil).Run(context.Background(), filepath.Join(dir, "gone.py"), dir)

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ReturnCode)
	assert.Contains(t, res.Error, "Script not found")
}

func TestRun_Timeout(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "slow.py", "sleep 10\n")

	start := time.Now()
	res := shRunner(200*time.Millisecond, nil).Run(context.Background(), script, dir)

	assert.True(t, res.TimedOut)
	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ReturnCode)
	assert.Contains(t, res.Error, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_MissingInterpreter(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "x.py", "")

	r := New(Options{Python: filepath.Join(dir, "no-such-python")}, nil)
	res := r.Run(context.Background(), script, dir)

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ReturnCode)
	assert.NotEmpty(t, res.Error)
}

func TestRun_PublishesFinished(t *testing.T) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	defer bus.Close()

	var got []events.Event
	_, err := bus.Subscribe(events.EventScriptFinished, func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	dir := t.TempDir()
	script := writeScript(t, dir, "ok.py", "true\n")
	shRunner(5*time.Second, bus).Run(context.Background(), script, dir)

	require.Len(t, got, 1)
	assert.Equal(t, script, got[0].Path)
	assert.Equal(t, true, got[0].Payload["success"])
	assert.Equal(t, 0, got[0].Payload["return_code"])
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, _ = b.Write([]byte("def"))
	assert.Equal(t, 3, n)

	assert.Equal(t, "abcd"+truncatedNotice, b.String())
}

func TestNew_Defaults(t *testing.T) {
	r := New(Options{}, nil)
	assert.Equal(t, DefaultPython, r.python)
	assert.Equal(t, DefaultTimeout, r.timeout)
}
