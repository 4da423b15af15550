// Package store provides storage backends for AssessFlow.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/vitalpath/assessflow/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists assessments and session snapshots in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store from a connection URL.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres store ready")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveAssessment(rec models.AssessmentRecord) error {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment %s: %w", rec.ID, err)
	}
	_, err = s.db.Exec(`INSERT INTO assessments (id, session_id, risk_level, fraud_recommendation, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET risk_level = $3, fraud_recommendation = $4, result = $5`,
		rec.ID, rec.SessionID, rec.RiskLevel, rec.FraudRecommendation, payload, rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveAssessment failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert assessment %s: %w", rec.ID, err)
	}
	slog.Debug("PostgresStore SaveAssessment succeeded", "id", rec.ID, "riskLevel", rec.RiskLevel)
	return nil
}

func (s *PostgresStore) GetAssessment(id string) (*models.AssessmentRecord, error) {
	row := s.db.QueryRow(`SELECT id, session_id, risk_level, fraud_recommendation, result, created_at FROM assessments WHERE id = $1`, id)
	rec, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetAssessment failed", "error", err, "id", id)
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) ListAssessments() ([]models.AssessmentRecord, error) {
	rows, err := s.db.Query(`SELECT id, session_id, risk_level, fraud_recommendation, result, created_at FROM assessments ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListAssessments query failed", "error", err)
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var out []models.AssessmentRecord
	for rows.Next() {
		rec, err := scanAssessment(rows)
		if err != nil {
			slog.Error("PostgresStore ListAssessments scan failed", "error", err)
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveSessionSnapshot(snap models.SessionSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", snap.SessionID, err)
	}
	_, err = s.db.Exec(`INSERT INTO session_snapshots (session_id, state, snapshot, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET state = $2, snapshot = $3, updated_at = $5`,
		snap.SessionID, snap.State, payload, snap.StartedAt, snap.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSessionSnapshot failed", "error", err, "session", snap.SessionID)
		return fmt.Errorf("failed to save snapshot %s: %w", snap.SessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetSessionSnapshot(sessionID string) (*models.SessionSnapshot, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT snapshot FROM session_snapshots WHERE session_id = $1`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSessionSnapshot failed", "error", err, "session", sessionID)
		return nil, err
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (s *PostgresStore) ListSessionSnapshots() ([]models.SessionSnapshot, error) {
	rows, err := s.db.Query(`SELECT snapshot FROM session_snapshots ORDER BY started_at`)
	if err != nil {
		slog.Error("PostgresStore ListSessionSnapshots query failed", "error", err)
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.SessionSnapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var snap models.SessionSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot row: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteSessionSnapshot(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM session_snapshots WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteSessionSnapshot failed", "error", err, "session", sessionID)
		return fmt.Errorf("failed to delete snapshot %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error { return s.db.Close() }
