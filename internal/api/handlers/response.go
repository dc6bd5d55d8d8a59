// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/vibefoundry/vibefoundry/internal/project"
)

// Response is the standard API response wrapper.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MetaInfo contains response metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
}

// Common error codes
const (
	ErrNotFound      = "NOT_FOUND"
	ErrBadRequest    = "BAD_REQUEST"
	ErrForbidden     = "FORBIDDEN"
	ErrInternalError = "INTERNAL_ERROR"
	ErrNoProject     = "NO_PROJECT"
	ErrUnavailable   = "UNAVAILABLE"
	ErrTerminalError = "TERMINAL_ERROR"
	ErrScriptError   = "SCRIPT_ERROR"
	ErrBadGateway    = "BAD_GATEWAY"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	resp := Response{
		Data: data,
		Meta: &MetaInfo{Timestamp: time.Now()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithDetails(w, status, code, message, nil)
}

// WriteErrorWithDetails writes an error response with details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	resp := Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &MetaInfo{Timestamp: time.Now()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// writeFSError maps project and filesystem errors to HTTP responses.
func writeFSError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNoProject):
		WriteError(w, http.StatusBadRequest, ErrNoProject, err.Error())
	case errors.Is(err, project.ErrOutsideRoot), errors.Is(err, fs.ErrPermission):
		WriteError(w, http.StatusForbidden, ErrForbidden, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
	case errors.Is(err, project.ErrNotDir), errors.Is(err, project.ErrNotFile):
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	return dec.Decode(v)
}

const maxBodySize = 32 << 20
