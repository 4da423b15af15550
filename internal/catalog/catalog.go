// Package catalog provides the read-only question and domain definitions
// for the assessment flow.
//
// A catalog is loaded once (from the embedded default or caller-supplied
// JSON) and never mutated; lookups that miss return an explicit not-found
// result rather than an error.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vitalpath/assessflow/internal/models"
)

//go:embed default_catalog.json
var defaultCatalogJSON []byte

// document is the on-disk shape of a catalog definition.
type document struct {
	TriageDomainID     string          `json:"triage_domain_id"`
	ValidationDomainID string          `json:"validation_domain_id"`
	Domains            []models.Domain `json:"domains"`
}

// Catalog is an immutable store of domains and questions. Domain order in
// the source document is the declaration order used to break priority ties.
type Catalog struct {
	triageID     string
	validationID string
	domains      []models.Domain
	domainIndex  map[string]int
	questions    map[string]models.Question
}

// Load parses and validates a catalog definition from JSON.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		triageID:     doc.TriageDomainID,
		validationID: doc.ValidationDomainID,
		domains:      doc.Domains,
		domainIndex:  make(map[string]int, len(doc.Domains)),
		questions:    make(map[string]models.Question),
	}

	for i, d := range doc.Domains {
		if d.ID == "" {
			return nil, models.ErrEmptyDomainID
		}
		if _, dup := c.domainIndex[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateDomainID, d.ID)
		}
		c.domainIndex[d.ID] = i
		for j, q := range d.Questions {
			if q.ID == "" {
				return nil, models.ErrEmptyQuestionID
			}
			if _, dup := c.questions[q.ID]; dup {
				return nil, fmt.Errorf("%w: %s", models.ErrDuplicateQuestionID, q.ID)
			}
			if !models.IsValidQuestionType(q.Type) {
				return nil, fmt.Errorf("%w: question %s has type %q", models.ErrInvalidQuestionType, q.ID, q.Type)
			}
			if (q.Type == models.QuestionTypeSelect || q.Type == models.QuestionTypeMultiSelect) && len(q.Options) == 0 {
				return nil, fmt.Errorf("%w: question %s", models.ErrMissingOptions, q.ID)
			}
			if q.ExpectedMs != nil && q.ExpectedMs.MinMs > q.ExpectedMs.MaxMs {
				return nil, fmt.Errorf("%w: question %s", models.ErrInvalidTimingWindow, q.ID)
			}
			q.DomainID = d.ID
			d.Questions[j] = q
			c.questions[q.ID] = q
		}
	}

	if err := c.validateReferences(); err != nil {
		return nil, err
	}

	slog.Debug("Catalog loaded", "domains", len(c.domains), "questions", len(c.questions))
	return c, nil
}

// validateReferences checks that validation pairs and trigger conditions
// point at questions that exist, and that the universal domains are present.
func (c *Catalog) validateReferences() error {
	for _, q := range c.questions {
		if q.ValidationPair != nil {
			if _, ok := c.questions[q.ValidationPair.QuestionID]; !ok {
				return fmt.Errorf("%w: %s -> %s", models.ErrDanglingPair, q.ID, q.ValidationPair.QuestionID)
			}
		}
	}
	for _, d := range c.domains {
		for _, tc := range d.Triggers {
			if !models.IsValidOperator(tc.Operator) {
				return fmt.Errorf("domain %s: unsupported operator %q", d.ID, tc.Operator)
			}
			if _, ok := c.questions[tc.QuestionID]; !ok {
				return fmt.Errorf("%w: domain %s -> question %s", models.ErrDanglingTrigger, d.ID, tc.QuestionID)
			}
		}
	}
	triage, ok := c.Domain(c.triageID)
	if !ok {
		return fmt.Errorf("triage domain %q not defined", c.triageID)
	}
	if !triage.Universal() {
		return fmt.Errorf("triage domain %q must not carry trigger conditions", c.triageID)
	}
	validation, ok := c.Domain(c.validationID)
	if !ok {
		return fmt.Errorf("validation domain %q not defined", c.validationID)
	}
	if !validation.Universal() {
		return fmt.Errorf("validation domain %q must not carry trigger conditions", c.validationID)
	}
	return nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built into the binary. The embedded document
// is validated at first use; a malformed build is a programmer error.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(defaultCatalogJSON)
		if err != nil {
			panic(fmt.Sprintf("embedded default catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// TriageDomainID returns the id of the universal triage domain.
func (c *Catalog) TriageDomainID() string { return c.triageID }

// ValidationDomainID returns the id of the terminal validation domain.
func (c *Catalog) ValidationDomainID() string { return c.validationID }

// Domain returns the domain definition for the given id.
func (c *Catalog) Domain(id string) (models.Domain, bool) {
	i, ok := c.domainIndex[id]
	if !ok {
		return models.Domain{}, false
	}
	return c.domains[i], true
}

// Question returns the question definition for the given id.
func (c *Catalog) Question(id string) (models.Question, bool) {
	q, ok := c.questions[id]
	return q, ok
}

// QuestionsForDomain returns the domain's fixed question sequence, in order.
func (c *Catalog) QuestionsForDomain(id string) []models.Question {
	d, ok := c.Domain(id)
	if !ok {
		return nil
	}
	out := make([]models.Question, len(d.Questions))
	copy(out, d.Questions)
	return out
}

// Domains returns all domains in declaration order.
func (c *Catalog) Domains() []models.Domain {
	out := make([]models.Domain, len(c.domains))
	copy(out, c.domains)
	return out
}

// ConditionalDomains returns all domains that activate through trigger
// conditions, in declaration order.
func (c *Catalog) ConditionalDomains() []models.Domain {
	var out []models.Domain
	for _, d := range c.domains {
		if d.ID == c.triageID || d.ID == c.validationID {
			continue
		}
		out = append(out, d)
	}
	return out
}

// DeclarationIndex returns the domain's position in the source document,
// used to break priority ties deterministically.
func (c *Catalog) DeclarationIndex(id string) int {
	if i, ok := c.domainIndex[id]; ok {
		return i
	}
	return len(c.domains)
}

// AllQuestions returns every catalog question, ordered by domain
// declaration then by each domain's question sequence.
func (c *Catalog) AllQuestions() []models.Question {
	var out []models.Question
	for _, d := range c.domains {
		out = append(out, d.Questions...)
	}
	return out
}
