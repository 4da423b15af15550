package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/models"
	"github.com/vitalpath/assessflow/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	return NewServer(catalog.Default(), st, nil), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid envelope %q: %v", method, path, rr.Body.String(), err)
	}
	return rr, env
}

// createSession starts a session through the API and returns its id.
func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rr, env := doJSON(t, h, http.MethodPost, "/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /sessions status = %d, want 201", rr.Code)
	}
	view := env.Result.(map[string]any)
	id, _ := view["session_id"].(string)
	if id == "" {
		t.Fatalf("session view missing id: %v", env.Result)
	}
	return id
}

func postResponse(t *testing.T, h http.Handler, sessionID, questionID string, value any) APIResponse {
	t.Helper()
	rr, env := doJSON(t, h, http.MethodPost, "/sessions/"+sessionID+"/responses",
		map[string]any{"question_id": questionID, "value": value})
	if rr.Code != http.StatusOK {
		t.Fatalf("POST response %s status = %d body %s", questionID, rr.Code, rr.Body.String())
	}
	return env
}

func TestHealthAndInfo(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr, env := doJSON(t, h, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK || env.Status != "ok" {
		t.Errorf("GET /health = %d %q, want 200 ok", rr.Code, env.Status)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q, want application/json", rr.Header().Get("Content-Type"))
	}

	_, env = doJSON(t, h, http.MethodGet, "/info", nil)
	info := env.Result.(map[string]any)
	if info["service"] != ServiceName {
		t.Errorf("info service = %v, want %s", info["service"], ServiceName)
	}
}

func TestQuestionsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rr, env := doJSON(t, srv.Handler(), http.MethodGet, "/questions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /questions status = %d", rr.Code)
	}
	questions := env.Result.([]any)
	if len(questions) != len(catalog.Default().AllQuestions()) {
		t.Errorf("questions = %d, want full catalog", len(questions))
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	id := createSession(t, h)

	// A snapshot is persisted at creation.
	if snap, _ := st.GetSessionSnapshot(id); snap == nil {
		t.Error("session snapshot should persist on creation")
	}

	env := postResponse(t, h, id, "age", float64(17))
	if env.Status != string(APIStatusRecorded) {
		t.Errorf("record status = %q, want recorded", env.Status)
	}
	step := env.Result.(map[string]any)
	if step["type"] != "question" {
		t.Errorf("first step type = %v, want question", step["type"])
	}

	for _, qa := range []struct {
		id    string
		value any
	}{
		{"biological_sex", "female"},
		{"emergency_conditions", []string{"none"}},
		{"pain_current", 0},
		{"mood_interest", 0},
		{"chronic_conditions_flag", false},
		{"pain_recheck", 0},
		{"mood_recheck", 0},
	} {
		postResponse(t, h, id, qa.id, qa.value)
	}
	env = postResponse(t, h, id, "confirm_accuracy", true)
	final := env.Result.(map[string]any)
	if final["type"] != "complete" {
		t.Fatalf("final step = %v, want complete", final)
	}
	if final["progress"] != float64(100) {
		t.Errorf("final progress = %v, want 100", final["progress"])
	}

	// Completion persists the assessment and drops the snapshot.
	recs, _ := st.ListAssessments()
	if len(recs) != 1 || recs[0].SessionID != id {
		t.Fatalf("persisted assessments = %v, want one for session %s", recs, id)
	}
	if snap, _ := st.GetSessionSnapshot(id); snap != nil {
		t.Error("snapshot should be deleted after completion")
	}

	// The record is visible through the assessments surface.
	rr, env := doJSON(t, h, http.MethodGet, "/assessments/"+recs[0].ID, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /assessments/{id} status = %d", rr.Code)
	}
	rr, _ = doJSON(t, h, http.MethodGet, "/assessments/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET missing assessment status = %d, want 404", rr.Code)
	}
}

func TestProcessResponseErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSession(t, h)

	rr, env := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/responses",
		map[string]any{"question_id": "ghost", "value": 1})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown question status = %d, want 404", rr.Code)
	}
	if env.Status != string(APIStatusError) {
		t.Errorf("unknown question envelope status = %q, want error", env.Status)
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/sessions/"+id+"/responses", map[string]any{"value": 1})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing question_id status = %d, want 400", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/responses", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d, want 400", rec.Code)
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/sessions/missing/responses",
		map[string]any{"question_id": "age", "value": 1})
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", rr.Code)
	}
}

func TestExplicitNullValueCountsAsAnswered(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSession(t, h)

	postResponse(t, h, id, "age", nil)

	_, env := doJSON(t, h, http.MethodGet, "/sessions/"+id+"/responses", nil)
	responses := env.Result.(map[string]any)
	if _, ok := responses["age"]; !ok {
		t.Error("explicit null answer should be recorded under its key")
	}
}

func TestTriggersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSession(t, h)
	postResponse(t, h, id, "pain_current", float64(7))

	_, env := doJSON(t, h, http.MethodGet, "/sessions/"+id+"/triggers", nil)
	active := env.Result.(map[string]any)
	if active["pain_management"] != true {
		t.Errorf("triggers = %v, want pain_management active", active)
	}
	if active["mental_health"] != false {
		t.Errorf("triggers = %v, want mental_health inactive", active)
	}
}

func TestResultsEndpointMidSession(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSession(t, h)
	postResponse(t, h, id, "age", float64(17))

	rr, env := doJSON(t, h, http.MethodGet, "/sessions/"+id+"/results", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET results status = %d", rr.Code)
	}
	result := env.Result.(map[string]any)
	if result["session_id"] != id {
		t.Errorf("what-if result session = %v, want %s", result["session_id"], id)
	}
}

func TestAdvanceEndpointConflictsOnMissingRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSession(t, h)
	postResponse(t, h, id, "age", float64(17))

	rr, env := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/advance", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("forced advance status = %d, want 409", rr.Code)
	}
	if env.Message == "" {
		t.Error("conflict response should name the missing questions")
	}
}

func TestGamificationEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSession(t, h)
	for _, qa := range []struct {
		id    string
		value any
	}{
		{"age", 17}, {"biological_sex", "female"}, {"emergency_conditions", []string{"none"}},
		{"pain_current", 0}, {"mood_interest", 0}, {"chronic_conditions_flag", false},
	} {
		postResponse(t, h, id, qa.id, qa.value)
	}

	_, env := doJSON(t, h, http.MethodGet, "/gamification/progress?session="+id, nil)
	prog := env.Result.(map[string]any)
	if prog["progress"] != float64(50) {
		t.Errorf("progress = %v, want 50 after triage", prog["progress"])
	}
	if prog["points"] == float64(0) {
		t.Error("triage completion should award points")
	}

	_, env = doJSON(t, h, http.MethodGet, "/gamification/badges?session="+id, nil)
	badges := env.Result.([]any)
	earnedFirstSteps := false
	for _, b := range badges {
		bv := b.(map[string]any)
		if bv["badge"] == "first_steps" && bv["earned"] == true {
			earnedFirstSteps = true
		}
	}
	if !earnedFirstSteps {
		t.Errorf("badges = %v, want first_steps earned", badges)
	}

	rr, _ := doJSON(t, h, http.MethodGet, "/gamification/progress?session=missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("progress for missing session status = %d, want 404", rr.Code)
	}
}

func TestRecoverSessionsSkipsCompleted(t *testing.T) {
	st := store.NewInMemoryStore()
	for i, state := range []string{"IN_DOMAIN", "COMPLETE", "AWAITING_TRIAGE"} {
		if err := st.SaveSessionSnapshot(models.SessionSnapshot{
			SessionID: fmt.Sprintf("s%d", i),
			State:     state,
		}); err != nil {
			t.Fatalf("seed snapshot: %v", err)
		}
	}

	srv := NewServer(catalog.Default(), st, nil)
	srv.recoverSessions()
	if srv.sessions.Count() != 2 {
		t.Errorf("recovered sessions = %d, want 2 (completed snapshot skipped)", srv.sessions.Count())
	}
	if _, ok := srv.sessions.Get("s1"); ok {
		t.Error("completed snapshot should not be rehydrated")
	}
}

func TestWithRecoveryOption(t *testing.T) {
	cfg := Opts{Addr: DefaultAddr, Recover: true}
	WithRecovery(false)(&cfg)
	if cfg.Recover {
		t.Error("WithRecovery(false) should disable snapshot restore")
	}
	WithRecovery(true)(&cfg)
	if !cfg.Recover {
		t.Error("WithRecovery(true) should enable snapshot restore")
	}
}
