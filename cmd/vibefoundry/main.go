// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/vibefoundry/vibefoundry/internal/app"
)

var (
	version = "0.3.0"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	folder      string
	configPath  string
	host        string
	port        int
	staticDir   string
	noBrowser   bool
	dev         bool
	showVersion bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("vibefoundry", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vibefoundry [folder] [options]\n       vibefoundry init\n\n")
		fs.PrintDefaults()
	}
	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: auto-detect)")
	fs.StringVar(&opts.host, "host", "", "Host to bind (default 127.0.0.1)")
	fs.IntVarP(&opts.port, "port", "p", 0, "Port to bind (default: first free port from 8765)")
	fs.StringVar(&opts.staticDir, "static", "", "Directory holding the built frontend")
	fs.BoolVar(&opts.noBrowser, "no-browser", false, "Don't open a browser window")
	fs.BoolVar(&opts.dev, "dev", false, "Development mode (verbose logs)")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "Show version")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		opts.folder = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one folder, got %d", fs.NArg())
	}
	return opts, nil
}

// projectFolder resolves the folder argument, defaulting to the working
// directory.
func projectFolder(arg string) (string, error) {
	if arg == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("folder does not exist: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Printf("vibefoundry %s\n", version)
		return nil
	}
	if opts.dev {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	folder, err := projectFolder(opts.folder)
	if err != nil {
		return err
	}

	fmt.Println("Starting VibeFoundry...")
	fmt.Printf("Project folder: %s\n", folder)

	application, err := app.New(app.Options{
		ConfigPath:  opts.configPath,
		ProjectPath: folder,
		Host:        opts.host,
		Port:        opts.port,
		SearchPort:  opts.port == 0,
		StaticDir:   opts.staticDir,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	url := application.URL()
	fmt.Printf("Server running at %s\n", url)
	if !opts.noBrowser {
		if _, err := app.OpenBrowser(url); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	return application.Run(context.Background())
}
