package store

import (
	"testing"
	"time"

	"github.com/vitalpath/assessflow/internal/models"
)

func TestInMemoryAssessmentRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	rec := models.AssessmentRecord{
		ID:                  "a1",
		SessionID:           "s1",
		RiskLevel:           models.RiskModerate,
		FraudRecommendation: models.RecommendAccept,
		Result: models.AssessmentResult{
			SessionID:      "s1",
			TotalRiskScore: 12.5,
			RiskLevel:      models.RiskModerate,
		},
		CreatedAt: time.Now(),
	}
	if err := s.SaveAssessment(rec); err != nil {
		t.Fatalf("SaveAssessment: %v", err)
	}

	got, err := s.GetAssessment("a1")
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if got == nil || got.RiskLevel != models.RiskModerate || got.Result.TotalRiskScore != 12.5 {
		t.Errorf("GetAssessment = %+v, want the saved record", got)
	}

	missing, err := s.GetAssessment("nope")
	if err != nil {
		t.Fatalf("GetAssessment missing: %v", err)
	}
	if missing != nil {
		t.Error("missing assessment should return nil, not an error")
	}
}

func TestInMemoryListAssessmentsOrdersByCreation(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Now()
	for i, id := range []string{"later", "earlier"} {
		offset := time.Duration(1-i) * time.Hour
		if err := s.SaveAssessment(models.AssessmentRecord{ID: id, CreatedAt: base.Add(offset)}); err != nil {
			t.Fatalf("SaveAssessment(%s): %v", id, err)
		}
	}
	recs, err := s.ListAssessments()
	if err != nil {
		t.Fatalf("ListAssessments: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "earlier" || recs[1].ID != "later" {
		t.Errorf("ListAssessments order = %v, want earliest first", recs)
	}
}

func TestInMemorySnapshotLifecycle(t *testing.T) {
	s := NewInMemoryStore()

	snap := models.SessionSnapshot{
		SessionID:        "s1",
		State:            "IN_DOMAIN",
		Responses:        models.ResponseSet{"age": {QuestionID: "age", Value: float64(30)}},
		TriggeredDomains: []string{"pain_management"},
		StartedAt:        time.Now(),
	}
	if err := s.SaveSessionSnapshot(snap); err != nil {
		t.Fatalf("SaveSessionSnapshot: %v", err)
	}

	got, err := s.GetSessionSnapshot("s1")
	if err != nil {
		t.Fatalf("GetSessionSnapshot: %v", err)
	}
	if got == nil || got.State != "IN_DOMAIN" || !got.Responses.Answered("age") {
		t.Errorf("GetSessionSnapshot = %+v, want the saved snapshot", got)
	}

	// Overwrite replaces the prior snapshot.
	snap.State = "COMPLETE"
	if err := s.SaveSessionSnapshot(snap); err != nil {
		t.Fatalf("SaveSessionSnapshot overwrite: %v", err)
	}
	got, _ = s.GetSessionSnapshot("s1")
	if got.State != "COMPLETE" {
		t.Errorf("overwritten snapshot state = %q, want COMPLETE", got.State)
	}

	list, err := s.ListSessionSnapshots()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSessionSnapshots = %v (%v), want one snapshot", list, err)
	}

	if err := s.DeleteSessionSnapshot("s1"); err != nil {
		t.Fatalf("DeleteSessionSnapshot: %v", err)
	}
	got, err = s.GetSessionSnapshot("s1")
	if err != nil || got != nil {
		t.Errorf("snapshot after delete = %+v (%v), want nil", got, err)
	}
	if err := s.DeleteSessionSnapshot("s1"); err != nil {
		t.Errorf("deleting an absent snapshot should be a no-op, got %v", err)
	}
}
