// Package api provides HTTP handlers for assessment sessions.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vitalpath/assessflow/internal/flow"
	"github.com/vitalpath/assessflow/internal/models"
)

// processResponseRequest is the payload for recording one answer. Value may
// be any JSON value, including an explicit null: presence of the key in the
// session's response map, not value truthiness, marks a question answered.
type processResponseRequest struct {
	QuestionID     string `json:"question_id"`
	Value          any    `json:"value"`
	ResponseTimeMs *int64 `json:"response_time_ms,omitempty"`
}

// sessionView is the snapshot returned by session read endpoints.
type sessionView struct {
	SessionID              string           `json:"session_id"`
	State                  string           `json:"state"`
	Progress               int              `json:"progress"`
	CurrentDomain          string           `json:"current_domain,omitempty"`
	CurrentQuestion        *models.Question `json:"current_question,omitempty"`
	EstimatedTimeRemaining int              `json:"estimated_time_remaining"`
	CompletedDomains       []string         `json:"completed_domains"`
}

// createSessionHandler starts a new assessment session (POST /sessions).
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	slog.Info("Session created via API", "session", sess.ID())
	s.persistSnapshot(sess)
	writeJSONResponse(w, http.StatusCreated, Success(s.viewOf(sess)))
}

// getSessionHandler returns the session snapshot (GET /sessions/{id}).
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, Success(s.viewOf(sess)))
}

// processResponseHandler records one answer and returns the flow result
// (POST /sessions/{id}/responses).
func (s *Server) processResponseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
		return
	}

	var req processResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("processResponseHandler failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, Error("Invalid JSON format"))
		return
	}
	if req.QuestionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, Error("question_id is required"))
		return
	}

	result, err := sess.ProcessResponse(r.Context(), req.QuestionID, req.Value, req.ResponseTimeMs)
	if err != nil {
		var notFound *models.QuestionNotFoundError
		if errors.As(err, &notFound) {
			writeJSONResponse(w, http.StatusNotFound, Error(notFound.Error()))
			return
		}
		slog.Error("processResponseHandler engine error", "error", err, "session", sess.ID())
		writeJSONResponse(w, http.StatusInternalServerError, Error("Failed to process response"))
		return
	}

	s.persistFlowResult(sess, result)
	writeJSONResponse(w, http.StatusOK, Recorded(result))
}

// listResponsesHandler returns the recorded response map
// (GET /sessions/{id}/responses).
func (s *Server) listResponsesHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, Success(sess.Responses()))
}

// triggersHandler returns the per-domain activation map, usable by
// safety-auditing collaborators (GET /sessions/{id}/triggers).
func (s *Server) triggersHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, Success(sess.EvaluateDomainTriggers()))
}

// resultsHandler compiles a what-if assessment result without requiring
// completion (GET /sessions/{id}/results).
func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, Success(sess.GenerateResults(r.Context())))
}

// advanceDomainHandler forces a domain transition
// (POST /sessions/{id}/advance). Unanswered required questions yield a 409
// naming the missing ids.
func (s *Server) advanceDomainHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
		return
	}
	result, err := sess.AdvanceDomain(r.Context())
	if err != nil {
		var invalid *models.ValidationError
		if errors.As(err, &invalid) {
			writeJSONResponse(w, http.StatusConflict, Error(invalid.Error()))
			return
		}
		slog.Error("advanceDomainHandler engine error", "error", err, "session", sess.ID())
		writeJSONResponse(w, http.StatusInternalServerError, Error("Failed to advance domain"))
		return
	}
	s.persistFlowResult(sess, result)
	writeJSONResponse(w, http.StatusOK, Success(result))
}

// viewOf builds the session snapshot view.
func (s *Server) viewOf(sess *flow.Session) sessionView {
	view := sessionView{
		SessionID:              sess.ID(),
		State:                  string(sess.State()),
		Progress:               sess.Progress(),
		CurrentDomain:          sess.CurrentDomain(),
		EstimatedTimeRemaining: sess.EstimatedTimeRemaining(),
		CompletedDomains:       sess.CompletedDomains(),
	}
	if q, ok := sess.CurrentQuestion(); ok {
		view.CurrentQuestion = &q
	}
	return view
}

// persistFlowResult stores the snapshot after each step and, on completion,
// the final assessment record. Persistence failures are logged and never
// block the result stream back to the participant.
func (s *Server) persistFlowResult(sess *flow.Session, result models.FlowResult) {
	if result.Type == models.FlowResultComplete && result.Results != nil {
		rec := models.AssessmentRecord{
			ID:                  uuid.NewString(),
			SessionID:           sess.ID(),
			RiskLevel:           result.Results.RiskLevel,
			FraudRecommendation: result.Results.FraudRecommendation,
			Result:              *result.Results,
			CreatedAt:           time.Now(),
		}
		if err := s.st.SaveAssessment(rec); err != nil {
			slog.Error("Failed to persist assessment record", "error", err, "session", sess.ID())
		}
		if err := s.st.DeleteSessionSnapshot(sess.ID()); err != nil {
			slog.Warn("Failed to delete session snapshot", "error", err, "session", sess.ID())
		}
		return
	}
	s.persistSnapshot(sess)
}

func (s *Server) persistSnapshot(sess *flow.Session) {
	if err := s.st.SaveSessionSnapshot(sess.Snapshot()); err != nil {
		slog.Warn("Failed to persist session snapshot", "error", err, "session", sess.ID())
	}
}
