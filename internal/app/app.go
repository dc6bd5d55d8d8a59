// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vibefoundry/vibefoundry/internal/api"
	"github.com/vibefoundry/vibefoundry/internal/api/handlers"
	"github.com/vibefoundry/vibefoundry/internal/broadcast"
	"github.com/vibefoundry/vibefoundry/internal/codespace"
	"github.com/vibefoundry/vibefoundry/internal/config"
	"github.com/vibefoundry/vibefoundry/internal/events"
	"github.com/vibefoundry/vibefoundry/internal/metadata"
	"github.com/vibefoundry/vibefoundry/internal/project"
	"github.com/vibefoundry/vibefoundry/internal/runner"
	"github.com/vibefoundry/vibefoundry/internal/terminal"
	"github.com/vibefoundry/vibefoundry/internal/watcher"
)

// regenerateInterval spaces background metadata runs.
const regenerateInterval = time.Second

// App is the main application container.
type App struct {
	mu sync.RWMutex

	version         string
	config          *config.Config
	eventBus        *events.MemoryEventBus
	registry        *broadcast.Registry
	forwarder       *broadcast.Forwarder
	terminalManager *terminal.Manager
	runner          *runner.Runner
	generator       *metadata.Generator
	regenerator     *metadata.Regenerator
	regenSub        events.SubscriptionID
	syncer          *codespace.Syncer
	apiServer       *api.Server

	project *project.Project
	watcher *watcher.Watcher

	// selectMu serializes project switches.
	selectMu sync.Mutex
	// runCtx parents the watch loop; it outlives the request that
	// selected the project.
	runCtx context.Context

	done         chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath  string
	ProjectPath string // Overrides project.path from the config
	Host        string
	Port        int
	SearchPort  bool // With Port unset, bind the first free port from the configured one
	StaticDir   string
	Version     string // Application version string
}

// New loads configuration and creates the event bus. An explicit config
// path must exist; otherwise the working directory is searched and a
// missing file means defaults.
func New(opts Options) (*App, error) {
	app := &App{
		version: opts.Version,
		runCtx:  context.Background(),
		done:    make(chan struct{}),
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)

	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	} else if opts.SearchPort {
		port, err := FindPort(cfg.Server.Host, cfg.Server.Port, PortAttempts)
		if err != nil {
			return nil, err
		}
		cfg.Server.Port = port
	}
	if opts.ProjectPath != "" {
		cfg.Project.Path = opts.ProjectPath
	}
	if opts.StaticDir != "" {
		cfg.Server.StaticDir = opts.StaticDir
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	app.config = cfg

	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})

	return app, nil
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path == "" {
		found, err := loader.FindConfig(".")
		if errors.Is(err, config.ErrConfigNotFound) {
			return config.Default(), nil
		}
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg, err := loader.LoadWithDefaults(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("Loaded config from %s", path)
	return cfg, nil
}

// Config returns the effective configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	app.registry = broadcast.NewRegistry()
	app.forwarder = broadcast.NewForwarder(app.eventBus, app.registry, app.projectRoot)

	app.terminalManager = terminal.NewManager(terminal.BridgeOptions{
		Session: terminal.SessionOptions{
			Shell:       cfg.Terminal.Shell,
			Rows:        cfg.Terminal.Rows,
			Cols:        cfg.Terminal.Cols,
			StopTimeout: config.ParseDuration(cfg.Terminal.StopTimeout, 2*time.Second),
		},
		PollInterval: config.ParseDuration(cfg.Terminal.PollInterval, 20*time.Millisecond),
	}, app.eventBus)

	app.runner = runner.New(runner.Options{
		Python:  cfg.Scripts.Python,
		Timeout: config.ParseDuration(cfg.Scripts.Timeout, runner.DefaultTimeout),
	}, app.eventBus)

	app.generator = metadata.NewGenerator(app.eventBus)
	app.regenerator = metadata.NewRegenerator(app.generator, regenerateInterval)
	sub, err := app.eventBus.SubscribeAsync(events.EventDataChanged, app.regenerator.Handle, 16)
	if err != nil {
		return fmt.Errorf("subscribe metadata regeneration: %w", err)
	}
	app.regenSub = sub

	app.syncer = codespace.NewSyncer(codespace.Options{
		HTTPClient:  &http.Client{Timeout: config.ParseDuration(cfg.Sync.Timeout, 30*time.Second)},
		Concurrency: cfg.Sync.Concurrency,
		Bus:         app.eventBus,
	})

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TLSCert:      cfg.Server.TLSCert,
		TLSKey:       cfg.Server.TLSKey,
		TailscaleTLS: cfg.Server.TailscaleTLS,
	}, api.Dependencies{
		Workspace:       app,
		TerminalManager: app.terminalManager,
		Registry:        app.registry,
		EventBus:        app.eventBus,
		Runner:          app.runner,
		Metadata:        app.generator,
		Syncer:          app.syncer,
		Keepalive:       config.ParseDuration(cfg.Watch.Keepalive, 30*time.Second),
		StaticDir:       cfg.Server.StaticDir,
		Version:         app.version,
	})

	return nil
}

// Start begins background work and opens the configured project. A
// project that fails to open is logged; the UI can pick another.
func (app *App) Start(ctx context.Context) error {
	app.mu.Lock()
	app.runCtx = ctx
	app.mu.Unlock()

	if err := app.forwarder.Start(); err != nil {
		return fmt.Errorf("start broadcast forwarder: %w", err)
	}
	app.regenerator.Start(ctx)

	if path := app.config.Project.Path; path != "" {
		if _, err := app.SelectProject(ctx, path); err != nil {
			log.Printf("Warning: failed to open project %s: %v", path, err)
		}
	}
	return nil
}

// Run initializes, starts and serves until a signal, ctx cancellation or
// Stop, then shuts down.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Initialize(ctx); err != nil {
		return err
	}
	if err := app.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting API server on %s", app.apiServer.Addr())
		return app.apiServer.ListenAndServe()
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			log.Printf("Shutting down: %v", context.Cause(gctx))
		case <-app.done:
			log.Printf("Shutdown requested...")
		}
		return app.Shutdown(context.Background())
	})
	return g.Wait()
}

// Project returns the selected project.
func (app *App) Project() (*project.Project, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	if app.project == nil {
		return nil, project.ErrNoProject
	}
	return app.project, nil
}

func (app *App) projectRoot() string {
	app.mu.RLock()
	defer app.mu.RUnlock()
	if app.project == nil {
		return ""
	}
	return app.project.Root()
}

// SelectProject opens the folder at path, creates its layout, writes
// fresh metadata and restarts the watcher on it. The previous watcher is
// stopped before the new baseline is taken.
func (app *App) SelectProject(ctx context.Context, path string) (*project.Project, error) {
	app.selectMu.Lock()
	defer app.selectMu.Unlock()

	p, err := project.Open(path)
	if err != nil {
		return nil, err
	}
	folders, err := p.Setup()
	if err != nil {
		return nil, err
	}

	app.mu.Lock()
	old := app.watcher
	app.watcher = nil
	runCtx := app.runCtx
	app.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	app.eventBus.SetProject(p.Root())
	if _, err := app.generator.Generate(ctx, p.Root()); err != nil {
		log.Printf("Warning: metadata for %s: %v", p.Root(), err)
	}

	cfg := app.config.Watch
	w := watcher.New(watcher.Options{
		Folders: watcher.Folders{
			Input:   folders.Input,
			Output:  folders.Output,
			Scripts: folders.Scripts,
		},
		Interval: config.ParseDuration(cfg.Interval, time.Second),
		Debounce: config.ParseDuration(cfg.Debounce, 500*time.Millisecond),
		Horizon:  config.ParseDuration(cfg.DebounceHorizon, 10*time.Second),
		Notify:   cfg.Fsnotify,
	}, app.eventBus)
	if err := w.Start(runCtx); err != nil {
		return nil, fmt.Errorf("start watcher: %w", err)
	}

	app.mu.Lock()
	app.project = p
	app.watcher = w
	app.mu.Unlock()

	log.Printf("Project: %s (%s)", p.Name(), p.Root())
	if err := app.eventBus.Publish(ctx, events.Event{
		Type:    events.EventProjectSelected,
		Project: p.Root(),
		Payload: map[string]interface{}{"name": p.Name()},
	}); err != nil {
		log.Printf("Warning: publish %s: %v", events.EventProjectSelected, err)
	}
	return p, nil
}

// CheckChanges runs an immediate, undebounced rescan. Metadata is
// rewritten before returning when input or output changed.
func (app *App) CheckChanges(ctx context.Context) (watcher.Changes, error) {
	app.mu.RLock()
	w, p := app.watcher, app.project
	app.mu.RUnlock()
	if w == nil || p == nil {
		return watcher.Changes{}, project.ErrNoProject
	}

	changes := w.CheckOnce()
	if changes.DataChanged() {
		if _, err := app.generator.Generate(ctx, p.Root()); err != nil {
			log.Printf("Warning: metadata for %s: %v", p.Root(), err)
		}
	}
	return changes, nil
}

// URL returns the address clients should open.
func (app *App) URL() string {
	scheme := "http"
	if app.config.Server.TLSEnabled() {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(app.config.Server.Host, strconv.Itoa(app.config.Server.Port))
}

// Shutdown stops the server, terminals and watcher, then closes the bus.
// Only the first call does any work.
func (app *App) Shutdown(ctx context.Context) error {
	var err error
	app.shutdownOnce.Do(func() {
		err = app.shutdown(ctx)
	})
	return err
}

func (app *App) shutdown(ctx context.Context) error {
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var firstErr error
	// Stop API server first to stop accepting new requests
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
			firstErr = err
		}
	}

	if app.terminalManager != nil {
		if err := app.terminalManager.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error closing terminals: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	app.mu.Lock()
	w := app.watcher
	app.watcher = nil
	app.mu.Unlock()
	if w != nil {
		w.Stop()
	}

	if app.regenerator != nil {
		if app.regenSub != "" {
			app.eventBus.Unsubscribe(app.regenSub)
		}
		app.regenerator.Stop()
	}
	if app.forwarder != nil {
		app.forwarder.Stop()
	}
	if app.registry != nil {
		app.registry.Close()
	}

	if app.eventBus != nil {
		app.eventBus.Close()
	}

	log.Println("Shutdown complete")
	return firstErr
}

// Stop asks Run to shut down.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}

var _ handlers.Workspace = (*App)(nil)
