/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gro-garden-sync/internal/chainsync"
	"gro-garden-sync/internal/garden"
	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/metrics"
	"gro-garden-sync/internal/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	DefaultJournalLimit = 50
	maxJournalLimit     = 500
)

// Gardens is the read side of the garden service.
type Gardens interface {
	State(ctx context.Context, wallet string) (*models.GardenState, error)
	Journal(ctx context.Context, wallet string, limit int) ([]models.JournalEntry, error)
	WeeklySummary(ctx context.Context, wallet string) (*models.WeeklySummary, error)
	Visit(ctx context.Context, address string) (*models.VisitedGarden, error)
}

var _ Gardens = (*garden.Service)(nil)

type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	Gardens         Gardens
	Syncer          chainsync.Syncer
	// Observer enables the live stream route when set.
	Observer Observer
}

type Server struct {
	gardens         Gardens
	syncer          chainsync.Syncer
	observer        Observer
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(cfg Config) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		gardens:         cfg.Gardens,
		syncer:          cfg.Syncer,
		observer:        cfg.Observer,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

// Handler returns the routed API, including /metrics.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(metrics.InstrumentHandler)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/gardens/{address}", s.handleGarden).Methods(http.MethodGet)
	v1.HandleFunc("/gardens/{address}/sync", s.handleSync).Methods(http.MethodPost)
	v1.HandleFunc("/gardens/{address}/journal", s.handleJournal).Methods(http.MethodGet)
	v1.HandleFunc("/gardens/{address}/summary", s.handleSummary).Methods(http.MethodGet)
	v1.HandleFunc("/visit/{address}", s.handleVisit).Methods(http.MethodGet)
	if s.observer != nil {
		v1.HandleFunc("/gardens/{address}/stream", s.handleStream).Methods(http.MethodGet)
	}

	return router
}

// Start serves in the background. Listen errors other than a clean shutdown are logged.
func (s *Server) Start() {
	go func() {
		zap.L().Info("HTTP API listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("HTTP API stopped unexpectedly", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP API: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGarden(w http.ResponseWriter, r *http.Request) {
	address, ok := addressVar(w, r)
	if !ok {
		return
	}
	state, err := s.gardens.State(r.Context(), address)
	if err != nil {
		writeServiceError(w, "garden state", address, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	address, ok := addressVar(w, r)
	if !ok {
		return
	}
	report, err := s.syncer.SyncAccount(r.Context(), address)
	if err != nil {
		writeServiceError(w, "sync", address, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	address, ok := addressVar(w, r)
	if !ok {
		return
	}

	limit := DefaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxJournalLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxJournalLimit))
			return
		}
		limit = parsed
	}

	entries, err := s.gardens.Journal(r.Context(), address, limit)
	if err != nil {
		writeServiceError(w, "journal", address, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	address, ok := addressVar(w, r)
	if !ok {
		return
	}
	summary, err := s.gardens.WeeklySummary(r.Context(), address)
	if err != nil {
		writeServiceError(w, "weekly summary", address, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	address, ok := addressVar(w, r)
	if !ok {
		return
	}
	visited, err := s.gardens.Visit(r.Context(), address)
	if err != nil {
		writeServiceError(w, "visit", address, err)
		return
	}
	writeJSON(w, http.StatusOK, visited)
}

func addressVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := mux.Vars(r)["address"]
	if !instruction.IsValidAddress(address) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid address: %q", address))
		return "", false
	}
	return address, true
}

func writeServiceError(w http.ResponseWriter, operation, address string, err error) {
	if errors.Is(err, garden.ErrInvalidAddress) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zap.L().Error("API request failed",
		zap.String("operation", operation),
		zap.String("wallet", address),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed", operation))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
