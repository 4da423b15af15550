// Package models defines result and detection types shared across modules.
package models

import "time"

// FlagType classifies a fraud/inconsistency detection flag.
type FlagType string

const (
	FlagContradiction        FlagType = "contradiction"
	FlagTiming               FlagType = "timing"
	FlagMedicalImpossibility FlagType = "medical_impossibility"
	FlagStatisticalOutlier   FlagType = "statistical_outlier"
)

// FlagSeverity grades how strongly a detection flag suggests an unreliable
// response pattern.
type FlagSeverity string

const (
	FlagSeverityLow    FlagSeverity = "low"
	FlagSeverityMedium FlagSeverity = "medium"
	FlagSeverityHigh   FlagSeverity = "high"
)

// DetectionFlag is a recorded signal of a suspicious or inconsistent
// response pattern. Flags never block flow completion; they only annotate
// the final result for downstream review.
type DetectionFlag struct {
	RuleID     string       `json:"rule_id"`
	Type       FlagType     `json:"type"`
	Severity   FlagSeverity `json:"severity"`
	Weight     int          `json:"weight"`
	Message    string       `json:"message"`
	QuestionID string       `json:"question_id,omitempty"`
	DomainID   string       `json:"domain_id,omitempty"`
}

// FraudRecommendation is the review tier derived from the aggregate fraud
// score: accept (<25), automated_validation (25-50), manual_review (>50).
type FraudRecommendation string

const (
	RecommendAccept              FraudRecommendation = "accept"
	RecommendAutomatedValidation FraudRecommendation = "automated_validation"
	RecommendManualReview        FraudRecommendation = "manual_review"
)

// RiskLevel classifies the aggregate clinical risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// AssessmentResult is the final report compiled when a session completes
// (or on demand for what-if evaluation).
type AssessmentResult struct {
	SessionID           string              `json:"session_id"`
	Responses           ResponseSet         `json:"responses"`
	DomainRiskScores    map[string]float64  `json:"domain_risk_scores"`
	TotalRiskScore      float64             `json:"total_risk_score"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	CompletedDomains    []string            `json:"completed_domains"`
	TriggeredDomains    []string            `json:"triggered_domains"`
	Recommendations     []string            `json:"recommendations"`
	NextSteps           []string            `json:"next_steps"`
	Flags               []DetectionFlag     `json:"flags,omitempty"`
	FraudScore          int                 `json:"fraud_score"`
	FraudRecommendation FraudRecommendation `json:"fraud_recommendation"`
	RewardPoints        int                 `json:"reward_points"`
	Badges              []string            `json:"badges,omitempty"`
	Narrative           string              `json:"narrative,omitempty"`
	GeneratedAt         time.Time           `json:"generated_at"`
}

// FlowResultType distinguishes the three shapes a processResponse call can
// return.
type FlowResultType string

const (
	// FlowResultQuestion carries the next question to present.
	FlowResultQuestion FlowResultType = "question"
	// FlowResultDomainTransition announces entry into a newly activated domain.
	FlowResultDomainTransition FlowResultType = "domain_transition"
	// FlowResultComplete carries the final assessment result.
	FlowResultComplete FlowResultType = "complete"
)

// Layer names the phase of the assessment walk the session is in.
type Layer string

const (
	LayerTriage     Layer = "triage"
	LayerDomains    Layer = "domains"
	LayerValidation Layer = "validation"
)

// FlowResult is the engine's answer to one processed response: the next
// question, a domain transition, or the completed assessment.
type FlowResult struct {
	Type                   FlowResultType    `json:"type"`
	Question               *Question         `json:"question,omitempty"`
	Domain                 *Domain           `json:"domain,omitempty"`
	Message                string            `json:"message,omitempty"`
	Progress               int               `json:"progress"`
	CurrentDomain          string            `json:"current_domain,omitempty"`
	CurrentLayer           Layer             `json:"current_layer,omitempty"`
	EstimatedTimeRemaining int               `json:"estimated_time_remaining"`
	Results                *AssessmentResult `json:"results,omitempty"`
}

// AssessmentRecord is the persisted form of a completed assessment, stored
// by the hosting layer for downstream reviewers.
type AssessmentRecord struct {
	ID                  string              `json:"id"`
	SessionID           string              `json:"session_id"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	FraudRecommendation FraudRecommendation `json:"fraud_recommendation"`
	Result              AssessmentResult    `json:"result"`
	CreatedAt           time.Time           `json:"created_at"`
}

// SessionSnapshot is the serialized state of an in-flight session, saved
// after each processed response so a restarted host can rehydrate it.
type SessionSnapshot struct {
	SessionID        string          `json:"session_id"`
	State            string          `json:"state"`
	Responses        ResponseSet     `json:"responses"`
	TriggeredDomains []string        `json:"triggered_domains"`
	CompletedDomains []string        `json:"completed_domains"`
	CurrentDomain    string          `json:"current_domain"`
	Flags            []DetectionFlag `json:"flags,omitempty"`
	RewardPoints     int             `json:"reward_points"`
	Badges           []string        `json:"badges,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
