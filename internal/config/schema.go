// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON and YAML configuration loading.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Project  ProjectConfig  `json:"project"`
	Terminal TerminalConfig `json:"terminal"`
	Watch    WatchConfig    `json:"watch"`
	Scripts  ScriptsConfig  `json:"scripts"`
	Events   EventsConfig   `json:"events"`
	Sync     SyncConfig     `json:"sync"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int    `json:"port"`
	Host         string `json:"host"`
	TLSCert      string `json:"tls_cert"`      // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey       string `json:"tls_key"`       // Path to TLS private key file
	TailscaleTLS bool   `json:"tailscale_tls"` // Serve the machine's Tailscale certificate instead of cert files
	StaticDir    string `json:"static_dir"`    // Built frontend to serve at /
}

// ProjectConfig selects the project opened at startup.
type ProjectConfig struct {
	Path string `json:"path"`
}

// TerminalConfig configures interactive shells.
type TerminalConfig struct {
	Shell        string `json:"shell"`
	Rows         int    `json:"rows"`
	Cols         int    `json:"cols"`
	PollInterval string `json:"poll_interval"` // Bound on each pty or socket wait
	StopTimeout  string `json:"stop_timeout"`  // SIGTERM grace before SIGKILL
}

// WatchConfig configures the project folder watcher.
type WatchConfig struct {
	Interval        string `json:"interval"`
	Debounce        string `json:"debounce"`
	DebounceHorizon string `json:"debounce_horizon"`
	Keepalive       string `json:"keepalive"` // Idle time before a keepalive frame
	Fsnotify        bool   `json:"fsnotify"`  // Wake the poller early on filesystem notifications
}

// ScriptsConfig configures the script runner.
type ScriptsConfig struct {
	Python  string `json:"python"`
	Timeout string `json:"timeout"`
}

// SyncConfig configures Codespace sync.
type SyncConfig struct {
	Timeout     string `json:"timeout"`     // Per-request timeout against the Codespace
	Concurrency int    `json:"concurrency"` // Parallel script transfers
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History EventsHistoryConfig `json:"history"`
}

// EventsHistoryConfig bounds event history.
type EventsHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ParseDuration parses a duration string, returning defaultVal if empty or invalid.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// TLSEnabled reports whether the server should serve HTTPS.
func (s ServerConfig) TLSEnabled() bool {
	return s.TailscaleTLS || (s.TLSCert != "" && s.TLSKey != "")
}
