// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// vibefoundry-ctl is a command-line tool for controlling a running VibeFoundry instance.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vibefoundry/vibefoundry/pkg/client"
)

var (
	version = "0.3.0"
	apiURL  = "http://127.0.0.1:8765"
)

// errUsage marks a malformed command line.
var errUsage = errors.New("usage")

// ctl carries the client and output settings shared by every command.
type ctl struct {
	c          *client.Client
	out        io.Writer
	in         io.Reader
	jsonOutput bool
	now        func() time.Time
}

func main() {
	// Check for VIBEFOUNDRY_API environment variable
	if env := os.Getenv("VIBEFOUNDRY_API"); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	// Parse global flags and filter them out
	jsonOutput := false
	var filteredArgs []string
	for _, arg := range os.Args[1:] {
		if arg == "-json" || arg == "--json" {
			jsonOutput = true
		} else {
			filteredArgs = append(filteredArgs, arg)
		}
	}

	if len(filteredArgs) < 1 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	t := &ctl{
		c:          client.New(apiURL, client.WithTimeout(10*time.Minute)),
		out:        os.Stdout,
		in:         os.Stdin,
		jsonOutput: jsonOutput,
		now:        time.Now,
	}
	if err := t.run(context.Background(), filteredArgs[0], filteredArgs[1:]); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (t *ctl) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "status":
		return t.cmdStatus(ctx)
	case "open":
		return t.cmdOpen(ctx, args)
	case "ls":
		return t.cmdLs(ctx, args)
	case "tree":
		return t.cmdTree(ctx)
	case "cat":
		return t.cmdCat(ctx, args)
	case "write":
		return t.cmdWrite(ctx, args)
	case "scripts":
		return t.cmdScripts(ctx)
	case "run":
		return t.cmdRun(ctx, args)
	case "metadata":
		return t.cmdMetadata(ctx)
	case "check":
		return t.cmdCheck(ctx)
	case "events":
		return t.cmdEvents(ctx, args)
	case "terminals":
		return t.cmdTerminals(ctx)
	case "sync":
		return t.cmdSync(ctx, args)
	case "version", "-v", "--version":
		fmt.Fprintf(t.out, "vibefoundry-ctl %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(t.out)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `vibefoundry-ctl - Control a running VibeFoundry instance

Usage:
  vibefoundry-ctl [-json] <command> [arguments]

Global Flags:
  -json          Output in JSON format

Environment:
  VIBEFOUNDRY_API  Base URL of the API (default: http://127.0.0.1:8765)

Commands:
  status                   Show server health and the open project
  open <folder>            Open a project folder
  ls [folder]              List folders (default: home)
  tree                     Show the project file tree
  cat <path>               Print a project file (CSV/TSV as a table)
  write <path> [file]      Write a project file from file or stdin
  scripts                  List project scripts
  run [script...]          Run scripts in order (default: all)
  metadata                 Regenerate and print data metadata
  check                    Rescan project folders for changes
  events [-n N] [-type T]  Show recent events
  terminals                List open terminal sessions
  sync <op> <url> [-state F]
                           Sync with a Codespace; op is pull, push,
                           metadata or full. -state keeps pull times in F
  version                  Show version`)
}

// printJSON outputs any value as formatted JSON
func (t *ctl) printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(t.out, string(out))
	return nil
}

func (t *ctl) cmdStatus(ctx context.Context) error {
	health, err := t.c.Project.Health(ctx)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(health)
	}

	fmt.Fprintf(t.out, "Server:  %s (version %s)\n", health.Status, health.Version)
	if health.ProjectFolder == "" {
		fmt.Fprintln(t.out, "Project: none")
		return nil
	}
	fmt.Fprintf(t.out, "Project: %s\n", health.ProjectFolder)
	return nil
}

func (t *ctl) cmdOpen(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("open takes one folder: %w", errUsage)
	}
	info, err := t.c.Project.Select(ctx, args[0])
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(info)
	}
	fmt.Fprintf(t.out, "Opened %s (%s)\n", info.Name, info.ProjectFolder)
	fmt.Fprintf(t.out, "  input:   %s\n", info.Folders.Input)
	fmt.Fprintf(t.out, "  output:  %s\n", info.Folders.Output)
	fmt.Fprintf(t.out, "  scripts: %s\n", info.Folders.Scripts)
	return nil
}

func (t *ctl) cmdLs(ctx context.Context, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	listing, err := t.c.Project.ListDirs(ctx, path)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(listing)
	}
	fmt.Fprintln(t.out, listing.Current)
	for _, d := range listing.Folders {
		fmt.Fprintf(t.out, "  %s/\n", d.Name)
	}
	return nil
}

func (t *ctl) cmdTree(ctx context.Context) error {
	tree, err := t.c.Files.Tree(ctx)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(tree)
	}
	fmt.Fprintf(t.out, "%s/\n", tree.Name)
	t.printTree(tree.Children, "  ")
	return nil
}

func (t *ctl) printTree(nodes []*client.FileNode, indent string) {
	for _, n := range nodes {
		if n.IsDirectory {
			fmt.Fprintf(t.out, "%s%s/\n", indent, n.Name)
			t.printTree(n.Children, indent+"  ")
			continue
		}
		fmt.Fprintf(t.out, "%s%-30s %s\n", indent, n.Name, humanize.Time(n.LastModified))
	}
}

func (t *ctl) cmdCat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("cat takes one path: %w", errUsage)
	}
	content, err := t.c.Files.Read(ctx, args[0])
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(content)
	}

	switch content.Type {
	case client.ContentDataframe:
		df := content.Dataframe
		fmt.Fprintln(t.out, strings.Join(df.Columns, "\t"))
		for _, row := range df.Data {
			fmt.Fprintln(t.out, strings.Join(row, "\t"))
		}
		if df.Truncated {
			fmt.Fprintf(t.out, "... %s of %s rows shown\n", humanize.Comma(int64(len(df.Data))), humanize.Comma(int64(df.RowCount)))
		}
	case client.ContentBinary:
		data, err := content.Bytes()
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "%s: binary file, %s\n", content.Filename, humanize.Bytes(uint64(len(data))))
	default:
		fmt.Fprint(t.out, content.Content)
	}
	return nil
}

func (t *ctl) cmdWrite(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("write takes a path and an optional source file: %w", errUsage)
	}
	var data []byte
	var err error
	if len(args) == 2 && args[1] != "-" {
		data, err = os.ReadFile(args[1])
	} else {
		data, err = io.ReadAll(t.in)
	}
	if err != nil {
		return err
	}
	if err := t.c.Files.Write(ctx, args[0], string(data)); err != nil {
		return err
	}
	if !t.jsonOutput {
		fmt.Fprintf(t.out, "Wrote %s (%s)\n", args[0], humanize.Bytes(uint64(len(data))))
	}
	return nil
}

func (t *ctl) cmdScripts(ctx context.Context) error {
	scripts, err := t.c.Scripts.List(ctx)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(scripts)
	}
	if len(scripts) == 0 {
		fmt.Fprintln(t.out, "No scripts")
		return nil
	}
	for _, s := range scripts {
		fmt.Fprintln(t.out, s.RelativePath)
	}
	return nil
}

func (t *ctl) cmdRun(ctx context.Context, args []string) error {
	scripts := args
	if len(scripts) == 0 {
		all, err := t.c.Scripts.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range all {
			scripts = append(scripts, s.Path)
		}
		if len(scripts) == 0 {
			return errors.New("no scripts to run")
		}
	}

	results, err := t.c.Scripts.Run(ctx, scripts...)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(results)
	}

	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.Success {
			failed++
			status = "FAILED (exit " + strconv.Itoa(r.ReturnCode) + ")"
			if r.TimedOut {
				status = "TIMED OUT"
			}
		}
		fmt.Fprintf(t.out, "==> %s: %s\n", r.ScriptPath, status)
		if r.Stdout != "" {
			fmt.Fprint(t.out, r.Stdout)
		}
		if r.Stderr != "" {
			fmt.Fprint(t.out, r.Stderr)
		}
		if r.Error != "" {
			fmt.Fprintln(t.out, r.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scripts failed", failed, len(results))
	}
	return nil
}

func (t *ctl) cmdMetadata(ctx context.Context) error {
	md, err := t.c.Scripts.GenerateMetadata(ctx)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(md)
	}
	for _, text := range []*string{md.Input, md.Output} {
		if text != nil {
			fmt.Fprintln(t.out, *text)
			fmt.Fprintln(t.out)
		}
	}
	return nil
}

func (t *ctl) cmdCheck(ctx context.Context) error {
	changes, err := t.c.Watch.Check(ctx)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(changes)
	}
	if !changes.Changes {
		fmt.Fprintln(t.out, "No changes")
		return nil
	}
	for _, group := range [][]client.Change{changes.InputChanges, changes.OutputChanges, changes.ScriptChanges} {
		for _, c := range group {
			fmt.Fprintf(t.out, "%-9s %s\n", c.Type, c.Path)
		}
	}
	return nil
}

func (t *ctl) cmdEvents(ctx context.Context, args []string) error {
	opts := &client.ListOptions{Limit: 50}

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-n" && i+1 < len(args):
			n, err := strconv.Atoi(args[i+1])
			if err == nil && n > 0 {
				opts.Limit = n
			}
			i++
		case args[i] == "-type" && i+1 < len(args):
			opts.Types = append(opts.Types, args[i+1])
			i++
		}
	}

	events, err := t.c.Events.List(ctx, opts)
	if err != nil {
		return err
	}

	if t.jsonOutput {
		return t.printJSON(events)
	}

	fmt.Fprintf(t.out, "%-16s %-22s %s\n", "WHEN", "TYPE", "DETAILS")
	fmt.Fprintln(t.out, strings.Repeat("-", 80))
	for _, evt := range events {
		var parts []string
		if evt.Path != "" {
			parts = append(parts, evt.Path)
		}
		keys := make([]string, 0, len(evt.Payload))
		for k := range evt.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, evt.Payload[k]))
		}
		fmt.Fprintf(t.out, "%-16s %-22s %s\n",
			humanize.RelTime(evt.Timestamp, t.now(), "ago", "from now"),
			evt.Type,
			strings.Join(parts, " "),
		)
	}

	return nil
}

func (t *ctl) cmdTerminals(ctx context.Context) error {
	sessions, err := t.c.Terminals.List(ctx)
	if err != nil {
		return err
	}
	if t.jsonOutput {
		return t.printJSON(sessions)
	}

	fmt.Fprintf(t.out, "%-38s %-9s %-8s %-12s %s\n", "ID", "STATE", "PID", "SHELL", "CWD")
	fmt.Fprintln(t.out, strings.Repeat("-", 90))
	for _, s := range sessions {
		pid, shell, cwd := "-", "-", "-"
		if s.Session != nil {
			pid = strconv.Itoa(s.Session.PID)
			shell = s.Session.Shell
			if s.Session.Foreground != "" {
				shell = s.Session.Foreground
			}
			cwd = s.Session.WorkDir
		}
		fmt.Fprintf(t.out, "%-38s %-9s %-8s %-12s %s\n", s.ID, s.State, pid, shell, cwd)
	}
	return nil
}

func (t *ctl) cmdSync(ctx context.Context, args []string) error {
	var op, remote, stateFile string
	var rest []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-state" && i+1 < len(args) {
			stateFile = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	if len(rest) != 2 {
		return fmt.Errorf("sync needs an operation and a codespace URL: %w", errUsage)
	}
	op, remote = rest[0], rest[1]

	switch op {
	case "pull", "full":
		lastSync, err := readSyncState(stateFile)
		if err != nil {
			return err
		}
		var pulled *client.PullResult
		var result interface{}
		metadataSynced := false
		if op == "pull" {
			pulled, err = t.c.Sync.Pull(ctx, remote, lastSync)
			result = pulled
		} else {
			var full *client.FullSync
			full, err = t.c.Sync.Full(ctx, remote, lastSync)
			if full != nil {
				pulled, metadataSynced, result = &full.Scripts, full.Metadata, full
			}
		}
		if err != nil {
			return err
		}
		if err := writeSyncState(stateFile, pulled.LastSync); err != nil {
			return err
		}
		if t.jsonOutput {
			return t.printJSON(result)
		}
		for _, f := range pulled.SyncedFiles {
			fmt.Fprintf(t.out, "pulled  %s\n", f)
		}
		fmt.Fprintf(t.out, "%d scripts pulled\n", len(pulled.SyncedFiles))
		if op == "full" {
			fmt.Fprintf(t.out, "metadata synced: %v\n", metadataSynced)
		}
		return nil

	case "push":
		pushed, err := t.c.Sync.Push(ctx, remote)
		if err != nil {
			return err
		}
		if t.jsonOutput {
			return t.printJSON(map[string]interface{}{"pushed_files": pushed})
		}
		for _, f := range pushed {
			fmt.Fprintf(t.out, "pushed  %s\n", f)
		}
		fmt.Fprintf(t.out, "%d files pushed\n", len(pushed))
		return nil

	case "metadata":
		synced, err := t.c.Sync.Metadata(ctx, remote)
		if err != nil {
			return err
		}
		if t.jsonOutput {
			return t.printJSON(map[string]bool{"synced": synced})
		}
		if synced {
			fmt.Fprintln(t.out, "metadata synced")
		} else {
			fmt.Fprintln(t.out, "no metadata to sync")
		}
		return nil
	}
	return fmt.Errorf("unknown sync operation %q: %w", op, errUsage)
}

// readSyncState loads pull times saved by writeSyncState. An empty path or
// a missing file means nothing was pulled yet.
func readSyncState(path string) (map[string]int64, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state map[string]int64
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return state, nil
}

func writeSyncState(path string, state map[string]int64) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
