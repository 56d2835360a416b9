// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package trigger

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/windvane/finetl/library"
)

// outputTailBytes bounds how much captured stdout/stderr is returned to
// the caller.
const outputTailBytes = 1000

// Server is the thin HTTP wrapper around the pipeline: it runs the finetl
// binary as a subprocess with a bounded timeout and reads run status from
// the audit log. The dashboard and the workflow scheduler are its only
// intended clients.
type Server struct {
	Library *library.Library

	// RunTimeout bounds one pipeline subprocess (default 300s).
	RunTimeout time.Duration

	running atomic.Bool
}

func NewServer(myLibrary *library.Library) *Server {
	return &Server{
		Library:    myLibrary,
		RunTimeout: 300 * time.Second,
	}
}

// Router builds the chi routing table
func (srv *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/health", srv.handleHealth)
	router.Post("/run-etl", srv.handleRunETL)
	router.Get("/status", srv.handleStatus)

	return router
}

func (srv *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "finetl-api",
	})
}

func (srv *Server) handleRunETL(w http.ResponseWriter, r *http.Request) {
	if !srv.running.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":    "error",
			"timestamp": time.Now().Format(time.RFC3339),
			"message":   "a pipeline run is already in progress",
		})
		return
	}
	defer srv.running.Store(false)

	binary, err := os.Executable()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "error",
			"timestamp": time.Now().Format(time.RFC3339),
			"message":   err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), srv.RunTimeout)
	defer cancel()

	log.Info().Str("Binary", binary).Msg("starting pipeline subprocess")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "run")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "error",
			"timestamp": time.Now().Format(time.RFC3339),
			"message":   "pipeline execution timeout",
		})
		return
	}

	returnCode := 0
	status := "success"
	httpStatus := http.StatusOK

	if runErr != nil {
		status = "error"
		httpStatus = http.StatusInternalServerError

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			returnCode = exitErr.ExitCode()
		} else {
			returnCode = -1
		}
	}

	log.Info().Str("Status", status).Int("ReturnCode", returnCode).Msg("pipeline subprocess finished")

	writeJSON(w, httpStatus, map[string]any{
		"status":     status,
		"timestamp":  time.Now().Format(time.RFC3339),
		"returncode": returnCode,
		"stdout":     tail(stdout.String()),
		"stderr":     tail(stderr.String()),
	})
}

func (srv *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lastRun, err := srv.Library.LastRun(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("could not read last run")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": "could not read run history",
		})
		return
	}

	if lastRun == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message": "No ETL runs found",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"last_run": map[string]any{
			"id":        lastRun.ID.String(),
			"date":      lastRun.RunDate.Format(time.RFC3339),
			"workflow":  lastRun.WorkflowName,
			"companies": lastRun.CompaniesProcessed,
			"api_calls": lastRun.APICallsMade,
			"failures":  lastRun.APIFailures,
			"duration":  lastRun.ExecutionTimeSeconds,
			"status":    lastRun.Status,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("could not encode response body")
	}
}

func tail(s string) string {
	if len(s) <= outputTailBytes {
		return s
	}
	return s[len(s)-outputTailBytes:]
}
