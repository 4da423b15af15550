// Package store provides storage backends for completed assessments and
// in-flight session snapshots.
//
// The flow engine itself never touches storage; only the hosting layer
// persists through these backends. An in-memory store backs tests and
// single-process setups, with SQLite and PostgreSQL for durable hosting.
package store

import (
	"sort"
	"sync"

	"github.com/vitalpath/assessflow/internal/models"
)

// Store is the persistence surface used by the hosting layer.
type Store interface {
	SaveAssessment(rec models.AssessmentRecord) error
	GetAssessment(id string) (*models.AssessmentRecord, error)
	ListAssessments() ([]models.AssessmentRecord, error)

	SaveSessionSnapshot(snap models.SessionSnapshot) error
	GetSessionSnapshot(sessionID string) (*models.SessionSnapshot, error)
	ListSessionSnapshots() ([]models.SessionSnapshot, error)
	DeleteSessionSnapshot(sessionID string) error

	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, connection URL for
// PostgreSQL).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore keeps records in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]models.AssessmentRecord
	snapshots   map[string]models.SessionSnapshot
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		assessments: make(map[string]models.AssessmentRecord),
		snapshots:   make(map[string]models.SessionSnapshot),
	}
}

func (s *InMemoryStore) SaveAssessment(rec models.AssessmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) GetAssessment(id string) (*models.AssessmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.assessments[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *InMemoryStore) ListAssessments() ([]models.AssessmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AssessmentRecord, 0, len(s.assessments))
	for _, rec := range s.assessments {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) SaveSessionSnapshot(snap models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.SessionID] = snap
	return nil
}

func (s *InMemoryStore) GetSessionSnapshot(sessionID string) (*models.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[sessionID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *InMemoryStore) ListSessionSnapshots() ([]models.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *InMemoryStore) DeleteSessionSnapshot(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
