// Package models defines typed errors for the assessment flow engine.
package models

import (
	"fmt"
	"strings"
)

// QuestionNotFoundError reports a response submitted for a question id that
// is not present in the catalog. The session's response map is left
// unmodified when this error is returned.
type QuestionNotFoundError struct {
	QuestionID string
}

func (e *QuestionNotFoundError) Error() string {
	return fmt.Sprintf("question not found: %s", e.QuestionID)
}

// ValidationError reports an attempt to transition out of a domain that
// still has unanswered required questions.
type ValidationError struct {
	DomainID           string
	MissingQuestionIDs []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("domain %s has unanswered required questions: %s",
		e.DomainID, strings.Join(e.MissingQuestionIDs, ", "))
}
