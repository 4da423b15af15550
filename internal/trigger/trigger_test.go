package trigger

import (
	"reflect"
	"testing"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/models"
)

func TestMatchesOperators(t *testing.T) {
	e := NewEvaluator(catalog.Default())

	tests := []struct {
		name     string
		operator models.ComparisonOperator
		want     any
		got      any
		match    bool
	}{
		{"gte satisfied", models.OpGreaterOrEqual, 4, float64(7), true},
		{"gte boundary", models.OpGreaterOrEqual, 4, float64(4), true},
		{"gte below", models.OpGreaterOrEqual, 4, float64(3), false},
		{"gt boundary misses", models.OpGreater, 4, float64(4), false},
		{"lte satisfied", models.OpLessOrEqual, 4, float64(2), true},
		{"lt boundary misses", models.OpLess, 4, float64(4), false},
		{"numeric string coerces", models.OpGreaterOrEqual, 4, "5", true},
		{"non-numeric string never matches", models.OpGreaterOrEqual, 4, "severe", false},
		{"eq numbers across types", models.OpEqual, 2, float64(2), true},
		{"eq bools", models.OpEqual, true, true, true},
		{"eq bool mismatch", models.OpEqual, true, false, false},
		{"eq strings", models.OpEqual, "daily", "daily", true},
		{"contains_any array hit", models.OpContainsAny, []any{"chest_pain", "breathing_difficulty"}, []any{"none", "chest_pain"}, true},
		{"contains_any array miss", models.OpContainsAny, []any{"chest_pain"}, []any{"none"}, false},
		{"contains_any scalar response", models.OpContainsAny, []any{"life_threatening"}, "life_threatening", true},
		{"contains_none holds", models.OpContainsNone, []any{"chest_pain"}, []any{"none"}, true},
		{"contains_none violated", models.OpContainsNone, []any{"chest_pain"}, []any{"chest_pain"}, false},
		{"pattern match", models.OpPattern, "^[0-9]{5}$", "90210", true},
		{"pattern miss", models.OpPattern, "^[0-9]{5}$", "abcde", false},
		{"invalid pattern never matches", models.OpPattern, "([", "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := models.TriggerCondition{QuestionID: "q", Operator: tt.operator, Value: tt.want}
			resp := models.Response{QuestionID: "q", Value: tt.got}
			if got := e.Matches(tc, resp); got != tt.match {
				t.Errorf("Matches(%s, %v vs %v) = %v, want %v", tt.operator, tt.got, tt.want, got, tt.match)
			}
		})
	}
}

func TestDomainActiveIsDisjunction(t *testing.T) {
	cat := catalog.Default()
	e := NewEvaluator(cat)
	mh, _ := cat.Domain("mental_health")

	// mood_interest >= 2 activates even though mood_down is unanswered.
	rs := models.ResponseSet{
		"mood_interest": models.Response{QuestionID: "mood_interest", Value: float64(2)},
	}
	if !e.DomainActive(mh, rs) {
		t.Error("a single satisfied condition should activate the domain")
	}

	// An unanswered trigger question never satisfies a condition, even one
	// that would match a zero value.
	if e.DomainActive(mh, models.ResponseSet{}) {
		t.Error("unanswered trigger questions must not activate the domain")
	}
}

func TestEvaluateOrdersByPriorityThenDeclaration(t *testing.T) {
	cat := catalog.Default()
	e := NewEvaluator(cat)

	rs := models.ResponseSet{
		"age":           models.Response{QuestionID: "age", Value: float64(30)},
		"pain_current":  models.Response{QuestionID: "pain_current", Value: float64(7)},
		"mood_interest": models.Response{QuestionID: "mood_interest", Value: float64(2)},
	}

	got := e.Evaluate(rs, nil)
	want := []string{"mental_health", "pain_management", "lifestyle"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate order = %v, want %v", got, want)
	}
}

func TestEvaluateKeepsTriggeredDomainsSticky(t *testing.T) {
	cat := catalog.Default()
	e := NewEvaluator(cat)

	// pain_current was 7 when pain_management triggered, then revised to 1.
	rs := models.ResponseSet{
		"pain_current": models.Response{QuestionID: "pain_current", Value: float64(1)},
	}

	got := e.Evaluate(rs, []string{"pain_management"})
	if len(got) != 1 || got[0] != "pain_management" {
		t.Errorf("Evaluate with sticky pain_management = %v, want [pain_management]", got)
	}

	if got := e.Evaluate(rs, nil); len(got) != 0 {
		t.Errorf("Evaluate without sticky state = %v, want none active", got)
	}
}

func TestEvaluateActivatesCrisisFromMultipleRoutes(t *testing.T) {
	cat := catalog.Default()
	e := NewEvaluator(cat)

	routes := []models.ResponseSet{
		{"phq9_suicidal_ideation": models.Response{QuestionID: "phq9_suicidal_ideation", Value: float64(1)}},
		{"medication_allergy_severity": models.Response{QuestionID: "medication_allergy_severity", Value: "life_threatening"}},
		{"emergency_conditions": models.Response{QuestionID: "emergency_conditions", Value: []any{"chest_pain"}}},
	}
	for i, rs := range routes {
		got := e.Evaluate(rs, nil)
		if len(got) == 0 || got[0] != "crisis_intervention" {
			t.Errorf("route %d: Evaluate = %v, want crisis_intervention first", i, got)
		}
	}
}
