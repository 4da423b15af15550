package results

import "github.com/vitalpath/assessflow/internal/models"

// Entry is one row of the recommendation lookup table. An entry matches
// when the risk level is at least MinLevel (and at most MaxLevel, when set)
// and, if Domain is set, that domain has triggered.
type Entry struct {
	Domain          string
	MinLevel        models.RiskLevel
	MaxLevel        models.RiskLevel
	Recommendations []string
	NextSteps       []string
}

func (e Entry) matches(level models.RiskLevel, triggered map[string]bool) bool {
	if e.Domain != "" && !triggered[e.Domain] {
		return false
	}
	if e.MinLevel != "" && levelRank(level) < levelRank(e.MinLevel) {
		return false
	}
	if e.MaxLevel != "" && levelRank(level) > levelRank(e.MaxLevel) {
		return false
	}
	return true
}

func levelRank(l models.RiskLevel) int {
	switch l {
	case models.RiskLow:
		return 0
	case models.RiskModerate:
		return 1
	case models.RiskHigh:
		return 2
	case models.RiskCritical:
		return 3
	default:
		return 0
	}
}

// DefaultTable returns the standard recommendation lookup table. Low risk
// with no triggered high-priority domains intentionally yields no
// recommendations and a routine follow-up only.
func DefaultTable() []Entry {
	return []Entry{
		{
			MinLevel:  models.RiskLow,
			MaxLevel:  models.RiskLow,
			NextSteps: []string{"Schedule a routine follow-up within the next 12 months."},
		},
		{
			MinLevel:        models.RiskModerate,
			MaxLevel:        models.RiskModerate,
			Recommendations: []string{"Schedule a consultation to review the findings."},
			NextSteps:       []string{"Book an appointment within the next 30 days."},
		},
		{
			MinLevel:        models.RiskHigh,
			MaxLevel:        models.RiskHigh,
			Recommendations: []string{"Urgent referral to a healthcare professional."},
			NextSteps:       []string{"Contact a healthcare provider within 48 hours."},
		},
		{
			MinLevel:        models.RiskCritical,
			Recommendations: []string{"Immediate clinical attention is required."},
			NextSteps:       []string{"Contact a healthcare professional immediately."},
		},
		{
			Domain:          "mental_health",
			MinLevel:        models.RiskHigh,
			Recommendations: []string{"Referral to a mental health professional."},
		},
		{
			Domain:          "pain_management",
			MinLevel:        models.RiskHigh,
			Recommendations: []string{"Referral to a pain management specialist."},
		},
		{
			// Crisis entries are mandatory whenever the domain triggered,
			// independent of the additive score.
			Domain: "crisis_intervention",
			Recommendations: []string{
				"Review the safety plan captured during the assessment.",
				"Share crisis support resources and hotline contacts.",
			},
			NextSteps: []string{"Immediate contact with a crisis professional."},
		},
	}
}
