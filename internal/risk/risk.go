// Package risk aggregates per-domain and overall clinical risk scores and
// classifies the risk level.
//
// Specific catastrophic findings (a life-threatening allergy, near-daily
// suicidal ideation) force an immediate critical classification before any
// threshold bucketing, regardless of the numeric total.
package risk

import (
	"log/slog"
	"strconv"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/models"
	"github.com/vitalpath/assessflow/internal/trigger"
)

// Thresholds are the numeric boundaries separating risk levels:
// low < Moderate, moderate < High, high < Critical, critical >= Critical.
type Thresholds struct {
	Moderate float64
	High     float64
	Critical float64
}

// DefaultThresholds match the standard screening configuration.
var DefaultThresholds = Thresholds{Moderate: 10, High: 20, Critical: 30}

// DefaultCriticalOverrides are findings that force a critical
// classification on their own.
var DefaultCriticalOverrides = []models.TriggerCondition{
	{QuestionID: "medication_allergy_severity", Operator: models.OpContainsAny, Value: []any{"life_threatening"}},
	{QuestionID: "phq9_suicidal_ideation", Operator: models.OpGreaterOrEqual, Value: 2},
}

// Scorer computes risk scores from recorded responses.
type Scorer struct {
	cat        *catalog.Catalog
	eval       *trigger.Evaluator
	thresholds Thresholds
	overrides  []models.TriggerCondition
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithThresholds overrides the default risk-level thresholds.
func WithThresholds(t Thresholds) Option {
	return func(s *Scorer) { s.thresholds = t }
}

// WithCriticalOverrides replaces the forced-critical finding list.
func WithCriticalOverrides(conds []models.TriggerCondition) Option {
	return func(s *Scorer) { s.overrides = conds }
}

// NewScorer creates a Scorer over the given catalog.
func NewScorer(cat *catalog.Catalog, opts ...Option) *Scorer {
	s := &Scorer{
		cat:        cat,
		eval:       trigger.NewEvaluator(cat),
		thresholds: DefaultThresholds,
		overrides:  DefaultCriticalOverrides,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DomainScore sums riskWeight x severity over the domain's answered
// questions.
func (s *Scorer) DomainScore(domainID string, responses models.ResponseSet) float64 {
	total := 0.0
	for _, q := range s.cat.QuestionsForDomain(domainID) {
		resp, answered := responses[q.ID]
		if !answered {
			continue
		}
		total += q.RiskWeight * Severity(q, resp.Value)
	}
	return total
}

// Score computes per-domain scores for the given domains and their sum.
func (s *Scorer) Score(domainIDs []string, responses models.ResponseSet) (map[string]float64, float64) {
	perDomain := make(map[string]float64, len(domainIDs))
	total := 0.0
	for _, id := range domainIDs {
		score := s.DomainScore(id, responses)
		perDomain[id] = score
		total += score
	}
	return perDomain, total
}

// Level classifies the total score, checking forced-critical overrides
// before falling back to threshold bucketing.
func (s *Scorer) Level(total float64, responses models.ResponseSet) models.RiskLevel {
	for _, cond := range s.overrides {
		resp, answered := responses[cond.QuestionID]
		if !answered {
			continue
		}
		if s.eval.Matches(cond, resp) {
			slog.Debug("Risk level forced critical by override", "question", cond.QuestionID)
			return models.RiskCritical
		}
	}
	switch {
	case total < s.thresholds.Moderate:
		return models.RiskLow
	case total < s.thresholds.High:
		return models.RiskModerate
	case total < s.thresholds.Critical:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// Severity converts an answer into the severity multiplier for scoring:
// the matched option's riskScore for selection-type questions, the numeric
// value itself for scale and number questions, 1/0 for bare booleans, and
// 0 for free text.
func Severity(q models.Question, value any) float64 {
	switch q.Type {
	case models.QuestionTypeScale, models.QuestionTypeNumber:
		if f, ok := numeric(value); ok {
			return f
		}
		return 0
	case models.QuestionTypeSelect:
		if sv, ok := value.(string); ok {
			return optionScore(q, sv)
		}
		return 0
	case models.QuestionTypeMultiSelect:
		total := 0.0
		for key := range multiValues(value) {
			total += optionScore(q, key)
		}
		return total
	case models.QuestionTypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return 0
		}
		if len(q.Options) > 0 {
			if b {
				return optionScore(q, "true")
			}
			return optionScore(q, "false")
		}
		if b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func optionScore(q models.Question, value string) float64 {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.RiskScore
		}
	}
	return 0
}

// numeric coerces an answer to a float64 for scoring. Numeric strings are
// accepted, matching how trigger evaluation and fraud inspection read the
// same answers.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func multiValues(v any) map[string]bool {
	out := make(map[string]bool)
	switch vv := v.(type) {
	case []any:
		for _, el := range vv {
			if s, ok := el.(string); ok {
				out[s] = true
			}
		}
	case []string:
		for _, el := range vv {
			out[el] = true
		}
	case string:
		out[vv] = true
	}
	return out
}
