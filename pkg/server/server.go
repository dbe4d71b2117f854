// Package server exposes the policy check API over HTTP. Evaluation is
// stateless; appending an audit snapshot happens only on the per-trip check
// endpoint, which records the evaluation in the trip's hash chain.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/stranske/tripward/pkg/exception"
	"github.com/stranske/tripward/pkg/policy/api"
	"github.com/stranske/tripward/pkg/policy/engine"
	"github.com/stranske/tripward/pkg/policy/version"
	"github.com/stranske/tripward/pkg/snapshot"
)

// SnapshotRecorder receives snapshot telemetry. A nil recorder disables
// recording.
type SnapshotRecorder interface {
	RecordSnapshotAppend()
	RecordSnapshotReject(reason string)
}

// Config controls the HTTP server.
type Config struct {
	// Listen is the bind address.
	Listen string

	// ShutdownTimeout bounds graceful shutdown. Zero means wait forever.
	ShutdownTimeout time.Duration
}

// Server serves policy checks, audit snapshot appends, and exception
// request intake.
type Server struct {
	cfg        Config
	manager    *engine.Manager
	store      snapshot.Store
	exceptions *exception.Registry
	recorder   SnapshotRecorder
	registry   *prometheus.Registry
	logger     *slog.Logger

	httpServer *http.Server
}

// New builds a server. The store may be nil, which disables the per-trip
// check endpoint; a nil exceptions registry disables the exceptions
// endpoints; the registry may be nil, which disables /metrics.
func New(cfg Config, manager *engine.Manager, store snapshot.Store, exceptions *exception.Registry, recorder SnapshotRecorder, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:        cfg,
		manager:    manager,
		store:      store,
		exceptions: exceptions,
		recorder:   recorder,
		registry:   registry,
		logger:     logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/check", s.handleCheck)
	if store != nil {
		mux.HandleFunc("POST /v1/trips/{trip}/check", s.handleTripCheck)
	}
	if exceptions != nil {
		mux.HandleFunc("POST /v1/exceptions", s.handleExceptionCreate)
		mux.HandleFunc("GET /v1/exceptions", s.handleExceptionList)
	}
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the server until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "address", s.cfg.Listen)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.decodeContext(w, r)
	if !ok {
		return
	}

	result, err := api.Check(s.manager.Engine(), ctx)
	if err != nil {
		s.logger.Error("policy check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "policy check failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// tripCheckResponse extends the check result with the appended snapshot's
// position in the trip's audit chain.
type tripCheckResponse struct {
	api.CheckResult
	TripID       string `json:"trip_id"`
	SnapshotHash string `json:"snapshot_hash"`
	ChainHash    string `json:"chain_hash"`
}

func (s *Server) handleTripCheck(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("trip")
	if tripID == "" {
		writeError(w, http.StatusBadRequest, "trip id is required")
		return
	}

	ctx, ok := s.decodeContext(w, r)
	if !ok {
		return
	}

	eng := s.manager.Engine()
	configHash, err := version.HashConfig(eng.DescribeRules())
	if err != nil {
		s.logger.Error("hashing policy configuration failed", "error", err, "trip_id", tripID)
		writeError(w, http.StatusInternalServerError, "policy check failed")
		return
	}
	results := eng.Evaluate(ctx)
	result := api.FromResults(results, configHash)

	previousHash, err := s.store.LastChainHash(tripID)
	if err != nil {
		s.logger.Error("reading chain head failed", "error", err, "trip_id", tripID)
		writeError(w, http.StatusInternalServerError, "snapshot store unavailable")
		return
	}

	snap, err := snapshot.New(tripID, time.Now().UTC(), result.PolicyVersion, ctx, results, previousHash)
	if err != nil {
		s.logger.Error("building snapshot failed", "error", err, "trip_id", tripID)
		writeError(w, http.StatusInternalServerError, "snapshot construction failed")
		return
	}

	if _, err := s.store.Append(snap); err != nil {
		s.recordReject(err)
		s.logger.Error("appending snapshot failed", "error", err, "trip_id", tripID)
		switch {
		case errors.Is(err, snapshot.ErrChainConflict):
			writeError(w, http.StatusConflict, "concurrent snapshot append, retry")
		case errors.Is(err, snapshot.ErrSnapshotExists):
			writeError(w, http.StatusConflict, "snapshot already recorded for this instant")
		case errors.Is(err, snapshot.ErrSnapshotTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "snapshot exceeds size ceiling")
		default:
			writeError(w, http.StatusInternalServerError, "snapshot append failed")
		}
		return
	}
	if s.recorder != nil {
		s.recorder.RecordSnapshotAppend()
	}

	writeJSON(w, http.StatusOK, tripCheckResponse{
		CheckResult:  result,
		TripID:       tripID,
		SnapshotHash: snap.SnapshotHash,
		ChainHash:    snap.ChainHash,
	})
}

// exceptionCreateRequest is the intake body for an exception request
// covering an advisory rule failure.
type exceptionCreateRequest struct {
	Type           exception.Type   `json:"type"`
	Justification  string           `json:"justification"`
	Requestor      string           `json:"requestor"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	SupportingDocs []string         `json:"supporting_docs,omitempty"`
}

func (s *Server) handleExceptionCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var body exceptionCreateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid exception request: %v", err))
		return
	}

	request, err := exception.NewRequest(body.Type, body.Justification, body.Requestor, body.Amount, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	request.SupportingDocs = body.SupportingDocs

	s.exceptions.Add(request)
	s.logger.Info("exception request filed",
		"id", request.ID,
		"type", string(request.Type),
		"approval_level", string(request.ApprovalLevel),
	)
	writeJSON(w, http.StatusCreated, request)
}

// exceptionListResponse reports the requests still awaiting a decision plus
// aggregate counts over everything tracked.
type exceptionListResponse struct {
	Open      []*exception.Request `json:"open"`
	Dashboard exception.Dashboard  `json:"dashboard"`
}

func (s *Server) handleExceptionList(w http.ResponseWriter, r *http.Request) {
	open := s.exceptions.Open()
	if open == nil {
		open = []*exception.Request{}
	}
	writeJSON(w, http.StatusOK, exceptionListResponse{
		Open:      open,
		Dashboard: exception.BuildDashboard(s.exceptions.All()),
	})
}

func (s *Server) recordReject(err error) {
	if s.recorder == nil {
		return
	}
	switch {
	case errors.Is(err, snapshot.ErrChainConflict):
		s.recorder.RecordSnapshotReject("chain_conflict")
	case errors.Is(err, snapshot.ErrSnapshotExists):
		s.recorder.RecordSnapshotReject("exists")
	case errors.Is(err, snapshot.ErrSnapshotTooLarge):
		s.recorder.RecordSnapshotReject("too_large")
	default:
		s.recorder.RecordSnapshotReject("error")
	}
}

func (s *Server) decodeContext(w http.ResponseWriter, r *http.Request) (*engine.Context, bool) {
	defer r.Body.Close()
	ctx := &engine.Context{}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(ctx); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid trip context: %v", err))
		return nil, false
	}
	return ctx, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
