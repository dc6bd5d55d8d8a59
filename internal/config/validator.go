// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateProject(cfg, errs)
	v.validateTerminal(cfg, errs)
	v.validateDurations(cfg, errs)

	if cfg.Sync.Concurrency < 0 {
		errs.Add("sync.concurrency", "must be positive")
	}

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535")
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server.tls_cert", "tls_cert and tls_key must be set together")
	}
	if cfg.Server.TailscaleTLS && cfg.Server.TLSCert != "" {
		errs.Add("server.tailscale_tls", "cannot be combined with tls_cert")
	}
}

func (v *Validator) validateProject(cfg *Config, errs *ValidationError) {
	if cfg.Project.Path == "" {
		return
	}
	info, err := os.Stat(cfg.Project.Path)
	switch {
	case err != nil:
		errs.Add("project.path", "does not exist")
	case !info.IsDir():
		errs.Add("project.path", "is not a directory")
	}
}

func (v *Validator) validateTerminal(cfg *Config, errs *ValidationError) {
	if cfg.Terminal.Rows < 0 || cfg.Terminal.Rows > 0xffff {
		errs.Add("terminal.rows", "out of range")
	}
	if cfg.Terminal.Cols < 0 || cfg.Terminal.Cols > 0xffff {
		errs.Add("terminal.cols", "out of range")
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"terminal.poll_interval", cfg.Terminal.PollInterval},
		{"terminal.stop_timeout", cfg.Terminal.StopTimeout},
		{"watch.interval", cfg.Watch.Interval},
		{"watch.debounce", cfg.Watch.Debounce},
		{"watch.debounce_horizon", cfg.Watch.DebounceHorizon},
		{"watch.keepalive", cfg.Watch.Keepalive},
		{"scripts.timeout", cfg.Scripts.Timeout},
		{"sync.timeout", cfg.Sync.Timeout},
		{"events.history.max_age", cfg.Events.History.MaxAge},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration format: %s", err))
		} else if parsed < 0 {
			errs.Add(d.field, "must be positive")
		}
	}

	if iv := ParseDuration(cfg.Watch.Interval, 0); iv > 0 && iv < 10*time.Millisecond {
		errs.Add("watch.interval", "must be at least 10ms")
	}
}
