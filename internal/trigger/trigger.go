// Package trigger evaluates domain trigger conditions against accumulated
// responses.
//
// All comparison-operator semantics live in one place (Matches) so each
// operator is individually testable. Domain activation is monotonic: once a
// domain has triggered in a session it stays active even if later answers
// no longer satisfy its conditions.
package trigger

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/models"
)

// Evaluator computes the ordered set of active conditional domains.
type Evaluator struct {
	cat *catalog.Catalog

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewEvaluator creates an Evaluator over the given catalog.
func NewEvaluator(cat *catalog.Catalog) *Evaluator {
	return &Evaluator{cat: cat, patterns: make(map[string]*regexp.Regexp)}
}

// Evaluate returns the ids of all active conditional domains, ordered by
// descending priority with ties broken by catalog declaration order. Every
// id in alreadyTriggered is included regardless of current conditions.
func (e *Evaluator) Evaluate(responses models.ResponseSet, alreadyTriggered []string) []string {
	sticky := make(map[string]bool, len(alreadyTriggered))
	for _, id := range alreadyTriggered {
		sticky[id] = true
	}

	var active []models.Domain
	for _, d := range e.cat.ConditionalDomains() {
		if sticky[d.ID] || e.DomainActive(d, responses) {
			active = append(active, d)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return e.cat.DeclarationIndex(active[i].ID) < e.cat.DeclarationIndex(active[j].ID)
	})

	out := make([]string, len(active))
	for i, d := range active {
		out[i] = d.ID
	}
	return out
}

// DomainActive reports whether any of the domain's trigger conditions
// matches the current responses (the condition list is a disjunction).
func (e *Evaluator) DomainActive(d models.Domain, responses models.ResponseSet) bool {
	for _, tc := range d.Triggers {
		resp, answered := responses[tc.QuestionID]
		if !answered {
			continue
		}
		if e.Matches(tc, resp) {
			return true
		}
	}
	return false
}

// Matches evaluates a single trigger condition against a recorded response.
func (e *Evaluator) Matches(tc models.TriggerCondition, resp models.Response) bool {
	switch tc.Operator {
	case models.OpGreaterOrEqual, models.OpGreater, models.OpLessOrEqual, models.OpLess:
		got, ok1 := toFloat(resp.Value)
		want, ok2 := toFloat(tc.Value)
		if !ok1 || !ok2 {
			return false
		}
		switch tc.Operator {
		case models.OpGreaterOrEqual:
			return got >= want
		case models.OpGreater:
			return got > want
		case models.OpLessOrEqual:
			return got <= want
		default:
			return got < want
		}
	case models.OpEqual:
		return equal(resp.Value, tc.Value)
	case models.OpContainsAny:
		return intersects(valueSet(resp.Value), valueSet(tc.Value))
	case models.OpContainsNone:
		return !intersects(valueSet(resp.Value), valueSet(tc.Value))
	case models.OpPattern:
		pat, ok := tc.Value.(string)
		if !ok {
			return false
		}
		str, ok := resp.Value.(string)
		if !ok {
			return false
		}
		re, err := e.compile(pat)
		if err != nil {
			slog.Warn("Trigger pattern failed to compile", "pattern", pat, "error", err)
			return false
		}
		return re.MatchString(str)
	default:
		slog.Warn("Trigger condition has unsupported operator", "operator", tc.Operator, "question", tc.QuestionID)
		return false
	}
}

// compile returns a cached compiled pattern.
func (e *Evaluator) compile(pat string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.patterns[pat]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, err
	}
	e.patterns[pat] = re
	return re, nil
}

// toFloat coerces a response or condition value to a float64 for numeric
// comparisons. JSON-decoded numbers arrive as float64; numeric strings are
// accepted since scale answers often travel as text.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
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

// equal compares two values, preferring numeric equality when both sides
// coerce, and falling back to bool or string identity.
func equal(a, b any) bool {
	if fa, ok1 := toFloat(a); ok1 {
		if fb, ok2 := toFloat(b); ok2 {
			return fa == fb
		}
	}
	if ba, ok1 := a.(bool); ok1 {
		if bb, ok2 := b.(bool); ok2 {
			return ba == bb
		}
	}
	sa, ok1 := a.(string)
	sb, ok2 := b.(string)
	return ok1 && ok2 && sa == sb
}

// valueSet normalizes a value to a set of string keys for set-membership
// checks. Arrays become element sets; a scalar behaves as a one-element set.
func valueSet(v any) map[string]bool {
	out := make(map[string]bool)
	switch vv := v.(type) {
	case nil:
		return out
	case []any:
		for _, el := range vv {
			out[setKey(el)] = true
		}
	case []string:
		for _, el := range vv {
			out[el] = true
		}
	default:
		out[setKey(vv)] = true
	}
	return out
}

// intersects reports whether the two sets share any element.
func intersects(a, b map[string]bool) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

func setKey(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case int:
		return strconv.Itoa(vv)
	default:
		return ""
	}
}
