package fraud

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitalpath/assessflow/internal/models"
)

// Rule weights.
const (
	WeightContradiction = 25
	WeightTooFast       = 15
	WeightTooSlow       = 10
	WeightEmergencyGap  = 35
	WeightYoungChronic  = 20
	WeightOutlier       = 20
)

// Statistical-outlier bounds for 0-10 style numeric answers.
const (
	outlierMinAnswers = 3
	outlierLowBound   = 0
	outlierHighBound  = 8
)

// Question ids referenced by the medical-impossibility hard rules.
const (
	questionEmergencyConditions = "emergency_conditions"
	questionAnnualCareVisits    = "annual_care_visits"
	questionAge                 = "age"
	questionChronicCount        = "chronic_conditions_count"

	youngAgeBound        = 25
	implausibleChronicAt = 4
)

// DefaultRules returns the standard detection rule set.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "validation_pair_contradiction", Type: models.FlagContradiction, Check: checkValidationPair},
		{ID: "response_timing", Type: models.FlagTiming, Check: checkResponseTiming},
		{ID: "emergency_without_care", Type: models.FlagMedicalImpossibility, Check: checkEmergencyWithoutCare},
		{ID: "young_chronic_count", Type: models.FlagMedicalImpossibility, Check: checkYoungChronicCount},
		{ID: "statistical_outlier", Type: models.FlagStatisticalOutlier, Check: checkStatisticalOutlier},
	}
}

// checkValidationPair flags a logically inconsistent answer to a declared
// validation pair. For inverted pairs agreement is the contradiction; for
// plain re-ask pairs disagreement is.
func checkValidationPair(rc Context) []models.DetectionFlag {
	pair := rc.Question.ValidationPair
	if pair == nil {
		return nil
	}
	other, answered := rc.Responses[pair.QuestionID]
	if !answered {
		return nil
	}
	otherQ, ok := rc.Catalog.Question(pair.QuestionID)
	if !ok {
		return nil
	}

	s1 := answerSignal(rc.Question, rc.Latest.Value)
	s2 := answerSignal(otherQ, other.Value)
	if s1 == 0 || s2 == 0 {
		return nil
	}

	contradiction := false
	if pair.Inverted {
		// Both affirmative cannot hold at once (e.g. pain-free yet pain
		// affects daily life).
		contradiction = s1 > 0 && s2 > 0
	} else {
		contradiction = s1*s2 < 0
	}
	if !contradiction {
		return nil
	}

	// Canonical question id so re-answering either side dedupes to one flag.
	canonical := rc.Question.ID
	if pair.QuestionID < canonical {
		canonical = pair.QuestionID
	}
	return []models.DetectionFlag{{
		Severity:   models.FlagSeverityHigh,
		Weight:     WeightContradiction,
		Message:    fmt.Sprintf("answers to %s and %s contradict each other", rc.Question.ID, pair.QuestionID),
		QuestionID: canonical,
		DomainID:   rc.Question.DomainID,
	}}
}

// checkResponseTiming flags a latency outside the question's expected
// window. Too fast weighs more than too slow since it suggests the question
// was not read.
func checkResponseTiming(rc Context) []models.DetectionFlag {
	window := rc.Question.ExpectedMs
	if window == nil || rc.Latest.ResponseTimeMs == nil {
		return nil
	}
	latency := *rc.Latest.ResponseTimeMs
	switch {
	case latency < window.MinMs:
		return []models.DetectionFlag{{
			Severity:   models.FlagSeverityMedium,
			Weight:     WeightTooFast,
			Message:    fmt.Sprintf("answered %s in %dms, below the expected minimum of %dms", rc.Question.ID, latency, window.MinMs),
			QuestionID: rc.Question.ID,
			DomainID:   rc.Question.DomainID,
		}}
	case latency > window.MaxMs:
		return []models.DetectionFlag{{
			Severity:   models.FlagSeverityLow,
			Weight:     WeightTooSlow,
			Message:    fmt.Sprintf("answered %s in %dms, above the expected maximum of %dms", rc.Question.ID, latency, window.MaxMs),
			QuestionID: rc.Question.ID,
			DomainID:   rc.Question.DomainID,
		}}
	default:
		return nil
	}
}

// checkEmergencyWithoutCare flags reported emergency symptoms combined with
// zero healthcare visits in the last year.
func checkEmergencyWithoutCare(rc Context) []models.DetectionFlag {
	if rc.Question.ID != questionEmergencyConditions && rc.Question.ID != questionAnnualCareVisits {
		return nil
	}
	emergencies, ok := rc.Responses.Value(questionEmergencyConditions)
	if !ok || !hasAffirmativeElement(emergencies) {
		return nil
	}
	visits, ok := rc.Responses.Value(questionAnnualCareVisits)
	if !ok {
		return nil
	}
	n, ok := asNumber(visits)
	if !ok || n != 0 {
		return nil
	}
	return []models.DetectionFlag{{
		Severity:   models.FlagSeverityHigh,
		Weight:     WeightEmergencyGap,
		Message:    "emergency symptoms reported alongside zero healthcare visits in the last year",
		QuestionID: questionAnnualCareVisits,
	}}
}

// checkYoungChronicCount flags a young age combined with an implausible
// count of chronic conditions.
func checkYoungChronicCount(rc Context) []models.DetectionFlag {
	if rc.Question.ID != questionAge && rc.Question.ID != questionChronicCount {
		return nil
	}
	ageVal, ok := rc.Responses.Value(questionAge)
	if !ok {
		return nil
	}
	age, ok := asNumber(ageVal)
	if !ok || age >= youngAgeBound {
		return nil
	}
	countVal, ok := rc.Responses.Value(questionChronicCount)
	if !ok {
		return nil
	}
	count, ok := asNumber(countVal)
	if !ok || count < implausibleChronicAt {
		return nil
	}
	return []models.DetectionFlag{{
		Severity:   models.FlagSeverityMedium,
		Weight:     WeightYoungChronic,
		Message:    fmt.Sprintf("age %.0f with %.0f chronic conditions is implausible", age, count),
		QuestionID: questionChronicCount,
	}}
}

// checkStatisticalOutlier flags a domain whose scale answers are all
// identical or all at the extremes (all <=0 or all >=8), suggesting
// straight-lining.
func checkStatisticalOutlier(rc Context) []models.DetectionFlag {
	var values []float64
	for _, q := range rc.Catalog.QuestionsForDomain(rc.Question.DomainID) {
		if q.Type != models.QuestionTypeScale {
			continue
		}
		v, answered := rc.Responses.Value(q.ID)
		if !answered {
			continue
		}
		if n, ok := asNumber(v); ok {
			values = append(values, n)
		}
	}
	if len(values) < outlierMinAnswers {
		return nil
	}

	allSame, allLow, allHigh := true, true, true
	for _, v := range values {
		if v != values[0] {
			allSame = false
		}
		if v > outlierLowBound {
			allLow = false
		}
		if v < outlierHighBound {
			allHigh = false
		}
	}
	if !allSame && !allLow && !allHigh {
		return nil
	}
	return []models.DetectionFlag{{
		Severity: models.FlagSeverityMedium,
		Weight:   WeightOutlier,
		Message:  fmt.Sprintf("%d numeric answers in domain %s form a uniform or extreme pattern", len(values), rc.Question.DomainID),
		DomainID: rc.Question.DomainID,
	}}
}

// answerSignal maps an answer to -1 (negation), +1 (affirmation), or 0
// (indeterminate) for contradiction checks.
func answerSignal(q models.Question, v any) int {
	switch vv := v.(type) {
	case nil:
		return 0
	case bool:
		if vv {
			return 1
		}
		return -1
	case float64, int, int64:
		n, _ := asNumber(vv)
		if n > 0 {
			return 1
		}
		return -1
	case string:
		if n, err := strconv.ParseFloat(vv, 64); err == nil {
			if n > 0 {
				return 1
			}
			return -1
		}
		if isNegation(vv) {
			return -1
		}
		if q.Type == models.QuestionTypeSelect {
			// An option carrying risk reads as an affirmative finding.
			for _, opt := range q.Options {
				if opt.Value == vv {
					if opt.RiskScore > 0 {
						return 1
					}
					return -1
				}
			}
		}
		return 1
	case []any:
		if hasAffirmativeElement(vv) {
			return 1
		}
		return -1
	default:
		return 0
	}
}

func isNegation(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "no", "never":
		return true
	default:
		return false
	}
}

// hasAffirmativeElement reports whether a multiselect answer carries any
// element other than an explicit negation.
func hasAffirmativeElement(v any) bool {
	switch vv := v.(type) {
	case []any:
		for _, el := range vv {
			if s, ok := el.(string); ok && !isNegation(s) {
				return true
			}
		}
		return false
	case []string:
		for _, el := range vv {
			if !isNegation(el) {
				return true
			}
		}
		return false
	case string:
		return !isNegation(vv)
	default:
		return false
	}
}

func asNumber(v any) (float64, bool) {
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
