// Package server exposes the processing pipeline over HTTP: document upload
// and registration, lifecycle operations (process, stop, retry), snapshot and
// stats reads, SSE update streams, and XLSX export.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kelechi-nwosu/docpipeline/internal/broadcast"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/export"
	"github.com/kelechi-nwosu/docpipeline/internal/ingest"
	"github.com/kelechi-nwosu/docpipeline/internal/orchestrator"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
)

type Server struct {
	http *http.Server

	cfg      common.ServerConfig
	db       *repository.DB
	ingest   *ingest.Service
	orch     *orchestrator.Orchestrator
	caster   *broadcast.Broadcaster
	exporter *export.Service
	rules    repository.RuleRepository
	logger   *slog.Logger
}

func New(
	cfg common.ServerConfig,
	db *repository.DB,
	ing *ingest.Service,
	orch *orchestrator.Orchestrator,
	caster *broadcast.Broadcaster,
	exporter *export.Service,
	rules repository.RuleRepository,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		db:       db,
		ingest:   ing,
		orch:     orch,
		caster:   caster,
		exporter: exporter,
		rules:    rules,
		logger:   logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		// WriteTimeout stays zero so SSE streams are not cut off.
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", s.handleStats).Methods(http.MethodGet)

	d := r.PathPrefix("/api/v1/documents").Subrouter()
	d.HandleFunc("", s.handleUpload).Methods(http.MethodPost)
	d.HandleFunc("/{id}", s.handleGetDocument).Methods(http.MethodGet)
	d.HandleFunc("/{id}/process", s.handleProcess).Methods(http.MethodPost)
	d.HandleFunc("/{id}/stop", s.handleStop).Methods(http.MethodPost)
	d.HandleFunc("/{id}/retry", s.handleRetry).Methods(http.MethodPost)
	d.HandleFunc("/{id}/export", s.handleExport).Methods(http.MethodGet)
	d.HandleFunc("/{id}/stream", s.handleDocumentStream).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/stream", s.handleGlobalStream).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/routing-rules", s.handleListRules).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/routing-rules", s.handleUpsertRule).Methods(http.MethodPut)
	return r
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("http.listen", "addr", s.cfg.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.New().String()
		r = r.WithContext(common.WithRequestID(r.Context(), rid))
		s.logger.Debug("http.request", "req_id", rid, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("http.encode_failed", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps application errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrConflict):
		status = http.StatusConflict
	}
	body := errorBody{Error: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		body.Error = appErr.Message
	}
	if status >= 500 {
		s.logger.Error("http.error",
			"req_id", common.RequestIDFromContext(r.Context()),
			"doc_id", common.DocumentIDFromContext(r.Context()),
			"path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, body)
}
