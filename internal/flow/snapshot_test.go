package flow

import (
	"context"
	"testing"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	cat := catalog.Default()
	s := NewSession(cat)
	walkTriage(t, s, 30, []any{"none"}, 7, 0, false)

	snap := s.Snapshot()
	if snap.SessionID != s.ID() {
		t.Errorf("snapshot id = %q, want %q", snap.SessionID, s.ID())
	}
	if snap.CurrentDomain != "pain_management" {
		t.Errorf("snapshot current domain = %q, want pain_management", snap.CurrentDomain)
	}

	restored := RestoreSession(cat, snap)
	if restored.ID() != s.ID() {
		t.Errorf("restored id = %q, want %q", restored.ID(), s.ID())
	}
	if restored.State() != s.State() {
		t.Errorf("restored state = %v, want %v", restored.State(), s.State())
	}
	if restored.Progress() != s.Progress() {
		t.Errorf("restored progress = %d, want %d", restored.Progress(), s.Progress())
	}
	if restored.CurrentDomain() != "pain_management" {
		t.Errorf("restored current domain = %q, want pain_management", restored.CurrentDomain())
	}
	if len(restored.Responses()) != len(s.Responses()) {
		t.Errorf("restored responses = %d, want %d", len(restored.Responses()), len(s.Responses()))
	}

	// The restored session continues the walk where the original stopped.
	result, err := restored.ProcessResponse(context.Background(), "pain_severity", float64(6), nil)
	if err != nil {
		t.Fatalf("ProcessResponse on restored session: %v", err)
	}
	if result.Type != models.FlowResultQuestion || result.Question.ID != "pain_none" {
		t.Errorf("restored walk step = %+v, want next question pain_none", result)
	}
}

func TestRestoreDedupesFlags(t *testing.T) {
	cat := catalog.Default()
	flag := models.DetectionFlag{RuleID: "validation_pair_contradiction", Type: models.FlagContradiction, Weight: 25, QuestionID: "pain_interference", DomainID: "pain_management"}
	snap := models.SessionSnapshot{
		SessionID: "s1",
		State:     string(StateInDomain),
		Flags:     []models.DetectionFlag{flag, flag},
	}
	s := RestoreSession(cat, snap)
	if got := len(s.Flags()); got != 1 {
		t.Errorf("restored flags = %d, want 1 after dedup", got)
	}
}

func TestRestoreDefaultsEmptyState(t *testing.T) {
	s := RestoreSession(catalog.Default(), models.SessionSnapshot{SessionID: "s1"})
	if s.State() != StateAwaitingTriage {
		t.Errorf("restored empty state = %v, want %v", s.State(), StateAwaitingTriage)
	}
	if len(s.Responses()) != 0 {
		t.Errorf("restored responses = %v, want empty", s.Responses())
	}
}
