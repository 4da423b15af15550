package flow

import (
	"log/slog"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/fraud"
	"github.com/vitalpath/assessflow/internal/models"
)

// Snapshot serializes the session state for persistence, so a restarted
// host can rehydrate in-flight sessions.
func (s *Session) Snapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		SessionID:        s.id,
		State:            string(s.state),
		Responses:        s.responses.Clone(),
		TriggeredDomains: append([]string(nil), s.triggered...),
		CompletedDomains: append([]string(nil), s.completed...),
		CurrentDomain:    s.CurrentDomain(),
		Flags:            s.Flags(),
		RewardPoints:     s.points,
		Badges:           append([]string(nil), s.badges...),
		StartedAt:        s.startedAt,
		UpdatedAt:        s.updatedAt,
	}
}

// RestoreSession rebuilds a session from a snapshot.
func RestoreSession(cat *catalog.Catalog, snap models.SessionSnapshot, opts ...Option) *Session {
	s := NewSession(cat, append([]Option{WithID(snap.SessionID)}, opts...)...)
	s.state = State(snap.State)
	if s.state == "" {
		s.state = StateAwaitingTriage
	}
	if snap.Responses != nil {
		s.responses = snap.Responses.Clone()
	}
	s.triggered = append([]string(nil), snap.TriggeredDomains...)
	s.completed = append([]string(nil), snap.CompletedDomains...)
	for _, f := range snap.Flags {
		key := fraud.Key(f)
		if s.flagKeys[key] {
			continue
		}
		s.flagKeys[key] = true
		s.flags = append(s.flags, f)
	}
	s.points = snap.RewardPoints
	s.badges = append([]string(nil), snap.Badges...)
	if !snap.StartedAt.IsZero() {
		s.startedAt = snap.StartedAt
	}
	if !snap.UpdatedAt.IsZero() {
		s.updatedAt = snap.UpdatedAt
	}
	slog.Debug("Session restored from snapshot", "session", s.id, "state", s.state)
	return s
}
