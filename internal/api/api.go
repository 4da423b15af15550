// Package api provides the HTTP hosting layer for the assessment flow
// engine.
//
// It exposes session endpoints that drive the per-response state machine,
// diagnostic surfaces for triggers and what-if results, and the
// gamification progress endpoints. The engine itself stays free of
// transport and persistence concerns; this package owns both.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/flow"
	"github.com/vitalpath/assessflow/internal/results"
	"github.com/vitalpath/assessflow/internal/store"
)

// Service identity reported by the info endpoint.
const (
	ServiceName    = "assessflow"
	ServiceVersion = "1.0.0"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"
)

// Opts holds configuration for the API server.
type Opts struct {
	Addr    string
	Recover bool
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithRecovery toggles restoring in-flight sessions from persisted
// snapshots at startup. Enabled by default.
func WithRecovery(enabled bool) Option {
	return func(o *Opts) { o.Recover = enabled }
}

// Server wires the catalog, session manager, and store behind HTTP
// handlers.
type Server struct {
	cat      *catalog.Catalog
	sessions *flow.SessionManager
	st       store.Store
}

// NewServer creates a Server. The narrator is optional; when set, completed
// assessments carry a GenAI narrative.
func NewServer(cat *catalog.Catalog, st store.Store, narrator results.Narrator) *Server {
	var flowOpts []flow.Option
	if narrator != nil {
		flowOpts = append(flowOpts, flow.WithNarrator(narrator))
	}
	return &Server{
		cat:      cat,
		sessions: flow.NewSessionManager(cat, flowOpts...),
		st:       st,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /info", s.infoHandler)
	mux.HandleFunc("GET /questions", s.questionsHandler)

	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("POST /sessions/{id}/responses", s.processResponseHandler)
	mux.HandleFunc("GET /sessions/{id}/responses", s.listResponsesHandler)
	mux.HandleFunc("GET /sessions/{id}/triggers", s.triggersHandler)
	mux.HandleFunc("GET /sessions/{id}/results", s.resultsHandler)
	mux.HandleFunc("POST /sessions/{id}/advance", s.advanceDomainHandler)

	mux.HandleFunc("GET /gamification/progress", s.gamificationProgressHandler)
	mux.HandleFunc("GET /gamification/badges", s.gamificationBadgesHandler)

	mux.HandleFunc("GET /assessments", s.listAssessmentsHandler)
	mux.HandleFunc("GET /assessments/{id}", s.getAssessmentHandler)

	return mux
}

// recoverSessions rehydrates in-flight sessions from persisted snapshots.
func (s *Server) recoverSessions() {
	snaps, err := s.st.ListSessionSnapshots()
	if err != nil {
		slog.Error("Failed to list session snapshots for recovery", "error", err)
		return
	}
	restored := 0
	for _, snap := range snaps {
		if snap.State == string(flow.StateComplete) {
			continue
		}
		s.sessions.Put(flow.RestoreSession(s.cat, snap))
		restored++
	}
	if restored > 0 {
		slog.Info("Recovered in-flight sessions from snapshots", "count", restored)
	}
}

// Run builds a server over the default catalog and serves until the
// listener fails.
func Run(st store.Store, narrator results.Narrator, opts ...Option) error {
	cfg := Opts{Addr: DefaultAddr, Recover: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv := NewServer(catalog.Default(), st, narrator)
	if cfg.Recover {
		srv.recoverSessions()
	}

	slog.Info("AssessFlow API listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Handler()); err != nil {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
