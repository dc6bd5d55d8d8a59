// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const configFile = "vibefoundry.hjson"

// runInit handles the "vibefoundry init" command
func runInit(args []string, in io.Reader, out io.Writer) error {
	initFlags := pflag.NewFlagSet("init", pflag.ContinueOnError)
	dir := initFlags.StringP("dir", "d", ".", "Directory to write the config into")
	showHelp := initFlags.BoolP("help", "h", false, "Show help for init command")
	if err := initFlags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		fmt.Fprintln(out, `Usage: vibefoundry init [options]

Create a new vibefoundry.hjson configuration file.

Options:
  -d, --dir    Directory to write the config into (default: current directory)
  -h, --help   Show this help message

The command will ask about:
  - Project folder opened at startup
  - Server port
  - Python interpreter for scripts
  - Script timeout`)
		return nil
	}

	path := filepath.Join(*dir, configFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", path)
	}

	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "VibeFoundry Configuration Setup")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Enter to accept defaults shown in [brackets].")
	fmt.Fprintln(out)

	defaultFolder, err := filepath.Abs(*dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}

	folder := prompt(reader, out, "Project folder", defaultFolder)

	port, err := strconv.Atoi(prompt(reader, out, "Server port", "8765"))
	if err != nil || port <= 0 || port > 65535 {
		port = 8765
	}

	python := prompt(reader, out, "Python interpreter", "python3")
	timeout := prompt(reader, out, "Script timeout", "5m")

	content := generateConfig(folder, port, python, timeout)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Review and edit "+configFile+" as needed")
	fmt.Fprintln(out, "  2. Run: vibefoundry")
	fmt.Fprintln(out)
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func generateConfig(folder string, port int, python, timeout string) string {
	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // VibeFoundry Configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).
  // VIBEFOUNDRY_PROJECT_PATH overrides project.path.

  project: {
    // Folder opened at startup; input_folder, output_folder and app_folder
    // are created inside it
    path: "`)
	sb.WriteString(escapeHJSONValue(folder))
	sb.WriteString(`"
  }

  server: {
    // Host to bind to (use "0.0.0.0" to allow remote access)
    host: "127.0.0.1"

    // Port for the web UI and API; the next free port is used if taken
    port: `)
	sb.WriteString(strconv.Itoa(port))
	sb.WriteString(`

    // For HTTPS, uncomment and set paths to your certificates:
    // tls_cert: "~/.vibefoundry/cert.pem"
    // tls_key: "~/.vibefoundry/key.pem"
    // Or serve this machine's Tailscale certificate:
    // tailscale_tls: true

    // Built frontend served at /
    // static_dir: "./frontend/dist"
  }

  scripts: {
    python: "`)
	sb.WriteString(escapeHJSONValue(python))
	sb.WriteString(`"
    timeout: "`)
	sb.WriteString(escapeHJSONValue(timeout))
	sb.WriteString(`"
  }

  watch: {
    // How often the project folders are rescanned
    interval: "1s"
    // Minimum time between reports for the same file
    debounce: "500ms"
    // Wake the scanner early on filesystem notifications
    fsnotify: true
  }

  terminal: {
    // Defaults to $SHELL
    // shell: "/bin/zsh"
    rows: 24
    cols: 80
  }

  sync: {
    // Per-request timeout against a Codespace sync server
    timeout: "30s"
    // Scripts transferred in parallel
    concurrency: 4
  }
}
`)
	return sb.String()
}
