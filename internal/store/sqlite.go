// Package store provides storage backends for AssessFlow.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitalpath/assessflow/internal/models"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists assessments and session snapshots in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path to the
// database file; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite store ready", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveAssessment(rec models.AssessmentRecord) error {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment %s: %w", rec.ID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO assessments (id, session_id, risk_level, fraud_recommendation, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.RiskLevel, rec.FraudRecommendation, string(payload), rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveAssessment failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert assessment %s: %w", rec.ID, err)
	}
	slog.Debug("SQLiteStore SaveAssessment succeeded", "id", rec.ID, "riskLevel", rec.RiskLevel)
	return nil
}

func (s *SQLiteStore) GetAssessment(id string) (*models.AssessmentRecord, error) {
	row := s.db.QueryRow(`SELECT id, session_id, risk_level, fraud_recommendation, result, created_at FROM assessments WHERE id = ?`, id)
	rec, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetAssessment failed", "error", err, "id", id)
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListAssessments() ([]models.AssessmentRecord, error) {
	rows, err := s.db.Query(`SELECT id, session_id, risk_level, fraud_recommendation, result, created_at FROM assessments ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListAssessments query failed", "error", err)
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var out []models.AssessmentRecord
	for rows.Next() {
		rec, err := scanAssessment(rows)
		if err != nil {
			slog.Error("SQLiteStore ListAssessments scan failed", "error", err)
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessment rows: %w", err)
	}
	slog.Debug("SQLiteStore ListAssessments succeeded", "count", len(out))
	return out, nil
}

func (s *SQLiteStore) SaveSessionSnapshot(snap models.SessionSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", snap.SessionID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO session_snapshots (session_id, state, snapshot, started_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		snap.SessionID, snap.State, string(payload), snap.StartedAt, snap.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSessionSnapshot failed", "error", err, "session", snap.SessionID)
		return fmt.Errorf("failed to save snapshot %s: %w", snap.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSessionSnapshot(sessionID string) (*models.SessionSnapshot, error) {
	var payload string
	err := s.db.QueryRow(`SELECT snapshot FROM session_snapshots WHERE session_id = ?`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSessionSnapshot failed", "error", err, "session", sessionID)
		return nil, err
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (s *SQLiteStore) ListSessionSnapshots() ([]models.SessionSnapshot, error) {
	rows, err := s.db.Query(`SELECT snapshot FROM session_snapshots ORDER BY started_at`)
	if err != nil {
		slog.Error("SQLiteStore ListSessionSnapshots query failed", "error", err)
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.SessionSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var snap models.SessionSnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot row: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSessionSnapshot(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM session_snapshots WHERE session_id = ?`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSessionSnapshot failed", "error", err, "session", sessionID)
		return fmt.Errorf("failed to delete snapshot %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*models.AssessmentRecord, error) {
	var rec models.AssessmentRecord
	var payload string
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.RiskLevel, &rec.FraudRecommendation, &payload, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment %s: %w", rec.ID, err)
	}
	return &rec, nil
}
