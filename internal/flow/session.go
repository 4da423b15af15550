// Package flow orchestrates the per-response assessment state machine.
//
// A Session walks one participant through universal triage, every domain
// their answers trigger, and the terminal validation pass. Calls against a
// single session must be serialized (each depends on the prior recorded
// state); distinct sessions share nothing and may run concurrently.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/fraud"
	"github.com/vitalpath/assessflow/internal/models"
	"github.com/vitalpath/assessflow/internal/progress"
	"github.com/vitalpath/assessflow/internal/results"
	"github.com/vitalpath/assessflow/internal/risk"
	"github.com/vitalpath/assessflow/internal/trigger"
)

// State identifies where the session is in its lifecycle.
type State string

const (
	StateAwaitingTriage State = "AWAITING_TRIAGE"
	StateInDomain       State = "IN_DOMAIN"
	StateTransitioning  State = "TRANSITIONING"
	StateComplete       State = "COMPLETE"
)

// Session holds the full state of one assessment walk.
type Session struct {
	id        string
	cat       *catalog.Catalog
	evaluator *trigger.Evaluator
	estimator *progress.Estimator
	scorer    *risk.Scorer
	detector  *fraud.Engine
	generator *results.Generator
	narrator  results.Narrator

	state     State
	responses models.ResponseSet
	triggered []string
	completed []string
	flags     []models.DetectionFlag
	flagKeys  map[string]bool
	points    int
	badges    []string
	final     *models.AssessmentResult
	startedAt time.Time
	updatedAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithScorer replaces the default risk scorer.
func WithScorer(sc *risk.Scorer) Option {
	return func(s *Session) { s.scorer = sc }
}

// WithDetector replaces the default fraud detection engine.
func WithDetector(d *fraud.Engine) Option {
	return func(s *Session) { s.detector = d }
}

// WithNarrator enables GenAI narration on generated results.
func WithNarrator(n results.Narrator) Option {
	return func(s *Session) { s.narrator = n }
}

// NewSession creates a session over the given catalog.
func NewSession(cat *catalog.Catalog, opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		id:        uuid.NewString(),
		cat:       cat,
		evaluator: trigger.NewEvaluator(cat),
		estimator: progress.NewEstimator(cat),
		scorer:    risk.NewScorer(cat),
		detector:  fraud.NewEngine(cat),
		state:     StateAwaitingTriage,
		responses: make(models.ResponseSet),
		flagKeys:  make(map[string]bool),
		startedAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.generator == nil {
		var gopts []results.Option
		if s.narrator != nil {
			gopts = append(gopts, results.WithNarrator(s.narrator))
		}
		s.generator = results.NewGenerator(s.cat, s.scorer, gopts...)
	}
	slog.Debug("Session created", "session", s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// ProcessResponse records one answer and returns the next flow step: the
// next question, a domain transition, or the completed assessment.
//
// An unknown question id fails with QuestionNotFoundError and leaves the
// response map unmodified. Answers to an already-answered id overwrite the
// prior response. A completed session returns its completion result again.
func (s *Session) ProcessResponse(ctx context.Context, questionID string, value any, responseTimeMs *int64) (models.FlowResult, error) {
	q, ok := s.cat.Question(questionID)
	if !ok {
		slog.Warn("ProcessResponse rejected unknown question", "session", s.id, "question", questionID)
		return models.FlowResult{}, &models.QuestionNotFoundError{QuestionID: questionID}
	}
	if s.state == StateComplete {
		slog.Debug("ProcessResponse on completed session, returning completion", "session", s.id)
		return s.completionResult(ctx), nil
	}
	from := s.currentDomainID()

	now := time.Now()
	resp := models.Response{
		QuestionID:     questionID,
		Value:          value,
		ResponseTimeMs: responseTimeMs,
		AnsweredAt:     now,
	}
	s.responses[questionID] = resp
	s.updatedAt = now
	slog.Debug("Response recorded", "session", s.id, "question", questionID, "domain", q.DomainID)

	s.refreshTriggers()
	s.inspect(resp)

	if s.state == StateAwaitingTriage || s.state == StateTransitioning {
		s.state = StateInDomain
	}
	return s.advance(ctx, from)
}

// SaveResponse records an answer without advancing the state machine. It is
// the low-level accessor for test and diagnostic harnesses.
func (s *Session) SaveResponse(questionID string, value any) error {
	if _, ok := s.cat.Question(questionID); !ok {
		return &models.QuestionNotFoundError{QuestionID: questionID}
	}
	s.responses[questionID] = models.Response{
		QuestionID: questionID,
		Value:      value,
		AnsweredAt: time.Now(),
	}
	return nil
}

// Responses returns a copy of the recorded response map.
func (s *Session) Responses() models.ResponseSet {
	return s.responses.Clone()
}

// EvaluateDomainTriggers returns, for every conditional domain, whether it
// is active in this session. Once triggered a domain stays active even if
// later answers no longer satisfy its conditions.
func (s *Session) EvaluateDomainTriggers() map[string]bool {
	active := make(map[string]bool)
	for _, d := range s.cat.ConditionalDomains() {
		active[d.ID] = false
	}
	for _, id := range s.evaluator.Evaluate(s.responses, s.triggered) {
		active[id] = true
	}
	return active
}

// GenerateResults compiles an assessment result from the current state.
// It does not require the flow walk to have completed.
func (s *Session) GenerateResults(ctx context.Context) models.AssessmentResult {
	triggered := s.evaluator.Evaluate(s.responses, s.triggered)
	return s.generator.Generate(ctx, results.Input{
		SessionID:        s.id,
		Responses:        s.responses,
		TriggeredDomains: triggered,
		CompletedDomains: s.completed,
		Flags:            s.flags,
		RewardPoints:     s.points,
		Badges:           s.badges,
	})
}

// AdvanceDomain forces a transition out of the current domain. It fails
// with ValidationError naming the missing question ids when required
// questions are unanswered.
func (s *Session) AdvanceDomain(ctx context.Context) (models.FlowResult, error) {
	if s.state == StateComplete {
		return s.completionResult(ctx), nil
	}
	cur := s.currentDomainID()
	if missing := s.missingRequired(cur); len(missing) > 0 {
		return models.FlowResult{}, &models.ValidationError{DomainID: cur, MissingQuestionIDs: missing}
	}
	s.completeDomain(cur)
	return s.advance(ctx, cur)
}

// CurrentDomain returns the id of the domain the session is working
// through, or empty once complete.
func (s *Session) CurrentDomain() string {
	if s.state == StateComplete {
		return ""
	}
	return s.currentDomainID()
}

// CurrentQuestion returns the next unanswered question in the current
// domain's sequence.
func (s *Session) CurrentQuestion() (models.Question, bool) {
	if s.state == StateComplete {
		return models.Question{}, false
	}
	return s.nextQuestion(s.currentDomainID())
}

// Progress returns the completion percentage over the currently known
// domain set.
func (s *Session) Progress() int {
	if s.state == StateComplete {
		return 100
	}
	return s.estimator.Progress(s.completed, s.knownDomains())
}

// EstimatedTimeRemaining returns the estimated minutes left, including the
// current domain.
func (s *Session) EstimatedTimeRemaining() int {
	return s.estimator.EstimatedTimeRemaining(s.knownDomains(), s.completed)
}

// Flags returns a copy of the accumulated detection flags.
func (s *Session) Flags() []models.DetectionFlag {
	return append([]models.DetectionFlag(nil), s.flags...)
}

// RewardPoints returns the gamification points earned so far.
func (s *Session) RewardPoints() int { return s.points }

// Badges returns the badges earned from completed domains.
func (s *Session) Badges() []string {
	return append([]string(nil), s.badges...)
}

// CompletedDomains returns the ids of completed domains in completion order.
func (s *Session) CompletedDomains() []string {
	return append([]string(nil), s.completed...)
}

// knownDomains is the current denominator universe: triage, every domain
// triggered so far, and validation. It grows as triggers fire. The middle
// section is walked in descending priority with ties broken by declaration
// order, so a higher-priority domain triggered late still precedes queued
// lower-priority ones that have not started.
func (s *Session) knownDomains() []string {
	mid := append([]string(nil), s.triggered...)
	sort.SliceStable(mid, func(i, j int) bool {
		di, _ := s.cat.Domain(mid[i])
		dj, _ := s.cat.Domain(mid[j])
		if di.Priority != dj.Priority {
			return di.Priority > dj.Priority
		}
		return s.cat.DeclarationIndex(mid[i]) < s.cat.DeclarationIndex(mid[j])
	})
	known := []string{s.cat.TriageDomainID()}
	known = append(known, mid...)
	return append(known, s.cat.ValidationDomainID())
}

// currentDomainID is the first known domain not yet completed.
func (s *Session) currentDomainID() string {
	done := make(map[string]bool, len(s.completed))
	for _, id := range s.completed {
		done[id] = true
	}
	for _, id := range s.knownDomains() {
		if !done[id] {
			return id
		}
	}
	return ""
}

// refreshTriggers re-evaluates trigger conditions and appends any newly
// activated domains behind the already-queued ones, in priority order.
// Activation is monotonic: nothing is ever removed.
func (s *Session) refreshTriggers() {
	have := make(map[string]bool, len(s.triggered))
	for _, id := range s.triggered {
		have[id] = true
	}
	for _, id := range s.evaluator.Evaluate(s.responses, s.triggered) {
		if have[id] {
			continue
		}
		s.triggered = append(s.triggered, id)
		have[id] = true
		slog.Info("Domain triggered", "session", s.id, "domain", id)
	}
}

// inspect runs fraud detection for the recorded response, keeping one flag
// per rule/question/domain key.
func (s *Session) inspect(resp models.Response) {
	for _, f := range s.detector.Inspect(s.responses, resp) {
		key := fraud.Key(f)
		if s.flagKeys[key] {
			continue
		}
		s.flagKeys[key] = true
		s.flags = append(s.flags, f)
	}
}

// nextQuestion is the first question in the domain's fixed sequence without
// a recorded response. Presence in the response map is the only test:
// recorded zeros, empty strings, false, and nulls all count as answered.
func (s *Session) nextQuestion(domainID string) (models.Question, bool) {
	for _, q := range s.cat.QuestionsForDomain(domainID) {
		if !s.responses.Answered(q.ID) {
			return q, true
		}
	}
	return models.Question{}, false
}

// missingRequired lists required questions in the domain without responses.
func (s *Session) missingRequired(domainID string) []string {
	var missing []string
	for _, q := range s.cat.QuestionsForDomain(domainID) {
		if q.Required && !s.responses.Answered(q.ID) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// advance walks from the domain the caller was working in to the next
// actionable step. Exhausted domains along the way are marked complete, so
// a higher-priority domain triggered on a domain's last answer still leaves
// that domain finished. Crossing into a different domain yields a
// transition result; staying put yields the next question.
func (s *Session) advance(ctx context.Context, from string) (models.FlowResult, error) {
	for {
		cur := s.currentDomainID()
		if cur == "" {
			s.state = StateComplete
			slog.Info("Session complete", "session", s.id)
			return s.completionResult(ctx), nil
		}
		q, ok := s.nextQuestion(cur)
		if !ok {
			s.completeDomain(cur)
			continue
		}
		if cur != from {
			s.state = StateTransitioning
			d, _ := s.cat.Domain(cur)
			slog.Info("Domain transition", "session", s.id, "to", cur, "progress", s.Progress())
			return models.FlowResult{
				Type:                   models.FlowResultDomainTransition,
				Domain:                 &d,
				Message:                fmt.Sprintf("Section complete. Next up: %s (about %d min).", d.Name, d.EstimatedMinutes),
				Progress:               s.Progress(),
				CurrentDomain:          cur,
				CurrentLayer:           s.layer(cur),
				EstimatedTimeRemaining: s.EstimatedTimeRemaining(),
			}, nil
		}
		return models.FlowResult{
			Type:                   models.FlowResultQuestion,
			Question:               &q,
			Progress:               s.Progress(),
			CurrentDomain:          cur,
			CurrentLayer:           s.layer(cur),
			EstimatedTimeRemaining: s.EstimatedTimeRemaining(),
		}, nil
	}
}

// completeDomain marks the domain finished and grants its completion
// reward.
func (s *Session) completeDomain(domainID string) {
	if domainID == "" {
		return
	}
	for _, id := range s.completed {
		if id == domainID {
			return
		}
	}
	s.completed = append(s.completed, domainID)
	if d, ok := s.cat.Domain(domainID); ok {
		s.points += d.Reward.Points
		if d.Reward.Badge != "" {
			s.badges = append(s.badges, d.Reward.Badge)
		}
	}
	slog.Debug("Domain completed", "session", s.id, "domain", domainID, "points", s.points)
}

// completionResult generates the final assessment once and returns it for
// every call after completion, so repeated calls never re-run scoring or the
// narrator.
func (s *Session) completionResult(ctx context.Context) models.FlowResult {
	if s.final == nil {
		res := s.GenerateResults(ctx)
		s.final = &res
	}
	return models.FlowResult{
		Type:     models.FlowResultComplete,
		Progress: 100,
		Results:  s.final,
	}
}

func (s *Session) layer(domainID string) models.Layer {
	switch domainID {
	case s.cat.TriageDomainID():
		return models.LayerTriage
	case s.cat.ValidationDomainID():
		return models.LayerValidation
	default:
		return models.LayerDomains
	}
}
