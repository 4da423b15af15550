// Package api provides service-level and gamification HTTP handlers.
package api

import "net/http"

// healthHandler reports liveness (GET /health).
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, Success(map[string]string{"status": "healthy"}))
}

// infoHandler reports service identity (GET /info).
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, Success(map[string]any{
		"service":       ServiceName,
		"version":       ServiceVersion,
		"domains":       len(s.cat.Domains()),
		"questions":     len(s.cat.AllQuestions()),
		"live_sessions": s.sessions.Count(),
	}))
}

// questionsHandler returns every catalog question in order
// (GET /questions).
func (s *Server) questionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, Success(s.cat.AllQuestions()))
}

// gamificationProgressHandler returns completion progress and earned
// rewards for a session (GET /gamification/progress?session=).
func (s *Server) gamificationProgressHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.URL.Query().Get("session"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, Success(map[string]any{
		"progress":                 sess.Progress(),
		"estimated_time_remaining": sess.EstimatedTimeRemaining(),
		"points":                   sess.RewardPoints(),
		"badges":                   sess.Badges(),
		"completed_domains":        sess.CompletedDomains(),
	}))
}

// badgeView describes one earnable badge.
type badgeView struct {
	Badge  string `json:"badge"`
	Domain string `json:"domain"`
	Points int    `json:"points"`
	Earned bool   `json:"earned"`
}

// gamificationBadgesHandler lists every earnable badge and, when a session
// is given, which ones it has earned (GET /gamification/badges?session=).
func (s *Server) gamificationBadgesHandler(w http.ResponseWriter, r *http.Request) {
	earned := make(map[string]bool)
	if id := r.URL.Query().Get("session"); id != "" {
		sess, ok := s.sessions.Get(id)
		if !ok {
			writeJSONResponse(w, http.StatusNotFound, Error("Session not found"))
			return
		}
		for _, b := range sess.Badges() {
			earned[b] = true
		}
	}

	var badges []badgeView
	for _, d := range s.cat.Domains() {
		if d.Reward.Badge == "" {
			continue
		}
		badges = append(badges, badgeView{
			Badge:  d.Reward.Badge,
			Domain: d.ID,
			Points: d.Reward.Points,
			Earned: earned[d.Reward.Badge],
		})
	}
	writeJSONResponse(w, http.StatusOK, Success(badges))
}

// listAssessmentsHandler returns persisted assessment records for
// downstream reviewers (GET /assessments).
func (s *Server) listAssessmentsHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.st.ListAssessments()
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, Error("Failed to list assessments"))
		return
	}
	writeJSONResponse(w, http.StatusOK, Success(recs))
}

// getAssessmentHandler returns one persisted assessment record
// (GET /assessments/{id}).
func (s *Server) getAssessmentHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.st.GetAssessment(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, Error("Failed to load assessment"))
		return
	}
	if rec == nil {
		writeJSONResponse(w, http.StatusNotFound, Error("Assessment not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, Success(rec))
}
