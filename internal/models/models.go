// Package models defines the core data structures for AssessFlow.
//
// It includes the question/domain catalog types, response types, and the
// assessment result types shared across modules.
package models

import (
	"errors"
	"time"
)

// QuestionType defines how a question's answer is captured and scored.
type QuestionType string

const (
	// QuestionTypeScale is a bounded numeric scale (e.g. 0-10); the numeric
	// value itself is the severity used for risk scoring.
	QuestionTypeScale QuestionType = "scale"
	// QuestionTypeSelect is a single choice from an option list.
	QuestionTypeSelect QuestionType = "select"
	// QuestionTypeMultiSelect is a multiple choice from an option list.
	QuestionTypeMultiSelect QuestionType = "multiselect"
	// QuestionTypeBoolean is a yes/no answer.
	QuestionTypeBoolean QuestionType = "boolean"
	// QuestionTypeText is free text; it never contributes to risk scoring.
	QuestionTypeText QuestionType = "text"
	// QuestionTypeNumber is an unbounded numeric answer.
	QuestionTypeNumber QuestionType = "number"
)

// Error variables for catalog validation.
var (
	ErrEmptyQuestionID     = errors.New("question id cannot be empty")
	ErrEmptyDomainID       = errors.New("domain id cannot be empty")
	ErrInvalidQuestionType = errors.New("invalid question type")
	ErrMissingOptions      = errors.New("options are required for select questions")
	ErrDanglingPair        = errors.New("validation pair references unknown question")
	ErrDanglingTrigger     = errors.New("trigger condition references unknown question")
	ErrInvalidTimingWindow = errors.New("expected response window min must not exceed max")
	ErrDuplicateQuestionID = errors.New("duplicate question id")
	ErrDuplicateDomainID   = errors.New("duplicate domain id")
)

// IsValidQuestionType checks if the given question type is supported.
func IsValidQuestionType(qt QuestionType) bool {
	switch qt {
	case QuestionTypeScale, QuestionTypeSelect, QuestionTypeMultiSelect,
		QuestionTypeBoolean, QuestionTypeText, QuestionTypeNumber:
		return true
	default:
		return false
	}
}

// Option represents one selectable answer for select-type questions.
type Option struct {
	Value     string  `json:"value"`
	Label     string  `json:"label,omitempty"`
	RiskScore float64 `json:"risk_score"`
}

// ResponseWindow is the expected response latency range for a question, in
// milliseconds. Latencies outside the window raise a timing detection flag.
type ResponseWindow struct {
	MinMs int64 `json:"min_ms"`
	MaxMs int64 `json:"max_ms"`
}

// ValidationPair declares a cross-checked question. When Inverted is set the
// two answers are expected to disagree, so agreement is the contradiction
// (e.g. "no current pain" alongside "pain affects daily life").
type ValidationPair struct {
	QuestionID string `json:"question_id"`
	Inverted   bool   `json:"inverted,omitempty"`
}

// Question is one catalog question definition.
type Question struct {
	ID             string          `json:"id"`
	Prompt         string          `json:"prompt"`
	Type           QuestionType    `json:"type"`
	DomainID       string          `json:"domain_id"`
	RiskWeight     float64         `json:"risk_weight"`
	Options        []Option        `json:"options,omitempty"`
	ValidationPair *ValidationPair `json:"validation_pair,omitempty"`
	Required       bool            `json:"required"`
	ExpectedMs     *ResponseWindow `json:"expected_response_ms,omitempty"`
}

// ComparisonOperator identifies how a trigger condition compares the
// recorded answer against the condition value.
type ComparisonOperator string

const (
	OpGreaterOrEqual ComparisonOperator = "gte"
	OpGreater        ComparisonOperator = "gt"
	OpEqual          ComparisonOperator = "eq"
	OpLessOrEqual    ComparisonOperator = "lte"
	OpLess           ComparisonOperator = "lt"
	OpContainsAny    ComparisonOperator = "contains_any"
	OpContainsNone   ComparisonOperator = "contains_none"
	OpPattern        ComparisonOperator = "pattern"
)

// IsValidOperator checks if the given comparison operator is supported.
func IsValidOperator(op ComparisonOperator) bool {
	switch op {
	case OpGreaterOrEqual, OpGreater, OpEqual, OpLessOrEqual, OpLess,
		OpContainsAny, OpContainsNone, OpPattern:
		return true
	default:
		return false
	}
}

// TriggerCondition is a predicate over one recorded answer. A domain's
// condition list is evaluated as a disjunction: any match activates it.
type TriggerCondition struct {
	QuestionID string             `json:"question_id"`
	Operator   ComparisonOperator `json:"operator"`
	Value      any                `json:"value"`
}

// CompletionReward is the gamification metadata granted when a domain's
// question sequence completes.
type CompletionReward struct {
	Points int    `json:"points"`
	Badge  string `json:"badge,omitempty"`
}

// Domain is a thematic cluster of questions sharing a clinical focus.
type Domain struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Priority         int                `json:"priority"`
	Triggers         []TriggerCondition `json:"triggers,omitempty"`
	Questions        []Question         `json:"questions"`
	EstimatedMinutes int                `json:"estimated_minutes"`
	Reward           CompletionReward   `json:"reward"`
}

// Universal reports whether the domain is part of every session regardless
// of trigger evaluation (the triage opener and the validation closer).
func (d Domain) Universal() bool {
	return len(d.Triggers) == 0
}

// Response is one recorded answer. Value holds whatever the participant
// submitted: string, float64, bool, []any, or nil for an explicit null.
// Presence of the question id in a ResponseSet, never value truthiness,
// determines whether the question was answered.
type Response struct {
	QuestionID     string    `json:"question_id"`
	Value          any       `json:"value"`
	ResponseTimeMs *int64    `json:"response_time_ms,omitempty"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// ResponseSet maps question ids to their latest recorded response. Answers
// to the same question id overwrite, never append.
type ResponseSet map[string]Response

// Answered reports whether the question has a recorded response. Zero,
// empty string, false, and explicit null are all answered states.
func (rs ResponseSet) Answered(questionID string) bool {
	_, ok := rs[questionID]
	return ok
}

// Value returns the recorded answer value and whether one exists.
func (rs ResponseSet) Value(questionID string) (any, bool) {
	r, ok := rs[questionID]
	if !ok {
		return nil, false
	}
	return r.Value, true
}

// Clone returns a shallow copy of the response set.
func (rs ResponseSet) Clone() ResponseSet {
	out := make(ResponseSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}
