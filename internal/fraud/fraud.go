// Package fraud detects inconsistent or unreliable response patterns.
//
// The rule set is declarative data run by a generic runner: each rule
// inspects the updated response set after one answer is recorded and emits
// zero or more detection flags. Detection never blocks flow completion; it
// only annotates the final result with flags and a review recommendation.
package fraud

import (
	"log/slog"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/models"
)

// Aggregate fraud score boundaries for the review recommendation tiers.
const (
	// MaxFraudScore caps the aggregate score.
	MaxFraudScore = 100
	// AcceptBelow is the exclusive upper bound of the accept tier.
	AcceptBelow = 25
	// ManualReviewAbove is the exclusive lower bound of the manual-review tier.
	ManualReviewAbove = 50
)

// Context carries everything a rule may inspect for one recorded answer.
type Context struct {
	Catalog   *catalog.Catalog
	Responses models.ResponseSet
	Latest    models.Response
	Question  models.Question
}

// Rule is one independently testable detection check.
type Rule struct {
	ID    string
	Type  models.FlagType
	Check func(rc Context) []models.DetectionFlag
}

// Engine runs the rule set incrementally against the response stream.
type Engine struct {
	cat   *catalog.Catalog
	rules []Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule set.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// NewEngine creates an Engine with the default rule set.
func NewEngine(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{cat: cat, rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Inspect runs every rule against the response set as updated by latest.
// The caller owns deduplication across calls (see Key).
func (e *Engine) Inspect(responses models.ResponseSet, latest models.Response) []models.DetectionFlag {
	q, ok := e.cat.Question(latest.QuestionID)
	if !ok {
		slog.Warn("Fraud inspection skipped for unknown question", "question", latest.QuestionID)
		return nil
	}
	rc := Context{Catalog: e.cat, Responses: responses, Latest: latest, Question: q}

	var flags []models.DetectionFlag
	for _, rule := range e.rules {
		for _, f := range rule.Check(rc) {
			f.RuleID = rule.ID
			f.Type = rule.Type
			flags = append(flags, f)
			slog.Debug("Fraud rule raised flag", "rule", rule.ID, "weight", f.Weight, "question", f.QuestionID)
		}
	}
	return flags
}

// Key identifies a flag for cross-call deduplication: re-answering the same
// question must not stack identical flags.
func Key(f models.DetectionFlag) string {
	return f.RuleID + "|" + f.QuestionID + "|" + f.DomainID
}

// Score aggregates flag weights, capped at MaxFraudScore.
func Score(flags []models.DetectionFlag) int {
	total := 0
	for _, f := range flags {
		total += f.Weight
	}
	if total > MaxFraudScore {
		return MaxFraudScore
	}
	return total
}

// Recommendation maps the aggregate score to a review tier.
func Recommendation(score int) models.FraudRecommendation {
	switch {
	case score < AcceptBelow:
		return models.RecommendAccept
	case score <= ManualReviewAbove:
		return models.RecommendAutomatedValidation
	default:
		return models.RecommendManualReview
	}
}
