// Package results compiles the final assessment report from accumulated
// responses, risk scores, and detection flags.
//
// Recommendations and next steps come from a declarative lookup table keyed
// by risk level and triggered domains. Crisis-intervention entries are
// mandatory: they appear in the report whenever the domain triggered,
// regardless of the additive risk score.
package results

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vitalpath/assessflow/internal/catalog"
	"github.com/vitalpath/assessflow/internal/fraud"
	"github.com/vitalpath/assessflow/internal/models"
	"github.com/vitalpath/assessflow/internal/risk"
)

// Narrator produces a plain-language summary from system and user prompts.
// *genai.Client satisfies this interface.
type Narrator interface {
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Input carries the session state the generator compiles a report from.
type Input struct {
	SessionID        string
	Responses        models.ResponseSet
	TriggeredDomains []string
	CompletedDomains []string
	Flags            []models.DetectionFlag
	RewardPoints     int
	Badges           []string
}

// Generator assembles AssessmentResults.
type Generator struct {
	cat      *catalog.Catalog
	scorer   *risk.Scorer
	narrator Narrator
	table    []Entry
}

// Option configures a Generator.
type Option func(*Generator)

// WithNarrator enables GenAI narrative generation on compiled reports.
func WithNarrator(n Narrator) Option {
	return func(g *Generator) { g.narrator = n }
}

// WithTable replaces the default recommendation lookup table.
func WithTable(table []Entry) Option {
	return func(g *Generator) { g.table = table }
}

// NewGenerator creates a Generator over the given catalog and scorer.
func NewGenerator(cat *catalog.Catalog, scorer *risk.Scorer, opts ...Option) *Generator {
	g := &Generator{cat: cat, scorer: scorer, table: DefaultTable()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate compiles the assessment result. It is callable at any point in
// the session walk for what-if evaluation; completion is not required.
func (g *Generator) Generate(ctx context.Context, in Input) models.AssessmentResult {
	known := g.knownDomains(in.TriggeredDomains)
	perDomain, total := g.scorer.Score(known, in.Responses)
	level := g.scorer.Level(total, in.Responses)
	fraudScore := fraud.Score(in.Flags)

	recs, steps := g.lookup(level, in.TriggeredDomains)

	result := models.AssessmentResult{
		SessionID:           in.SessionID,
		Responses:           in.Responses.Clone(),
		DomainRiskScores:    perDomain,
		TotalRiskScore:      total,
		RiskLevel:           level,
		CompletedDomains:    append([]string(nil), in.CompletedDomains...),
		TriggeredDomains:    append([]string(nil), in.TriggeredDomains...),
		Recommendations:     recs,
		NextSteps:           steps,
		Flags:               append([]models.DetectionFlag(nil), in.Flags...),
		FraudScore:          fraudScore,
		FraudRecommendation: fraud.Recommendation(fraudScore),
		RewardPoints:        in.RewardPoints,
		Badges:              append([]string(nil), in.Badges...),
		GeneratedAt:         time.Now(),
	}
	result.Narrative = g.narrate(ctx, result)

	slog.Debug("Assessment result generated",
		"session", in.SessionID, "riskLevel", level, "totalScore", total,
		"fraudScore", fraudScore, "recommendations", len(recs))
	return result
}

// knownDomains is triage + triggered + validation, the scoring universe.
func (g *Generator) knownDomains(triggered []string) []string {
	known := []string{g.cat.TriageDomainID()}
	known = append(known, triggered...)
	return append(known, g.cat.ValidationDomainID())
}

// lookup walks the table and collects every matching entry's
// recommendations and next steps, deduplicated in table order.
func (g *Generator) lookup(level models.RiskLevel, triggered []string) (recs, steps []string) {
	active := make(map[string]bool, len(triggered))
	for _, id := range triggered {
		active[id] = true
	}
	seenRec := make(map[string]bool)
	seenStep := make(map[string]bool)
	recs = []string{}
	steps = []string{}
	for _, e := range g.table {
		if !e.matches(level, active) {
			continue
		}
		for _, r := range e.Recommendations {
			if !seenRec[r] {
				seenRec[r] = true
				recs = append(recs, r)
			}
		}
		for _, s := range e.NextSteps {
			if !seenStep[s] {
				seenStep[s] = true
				steps = append(steps, s)
			}
		}
	}
	return recs, steps
}

// narrate asks the configured narrator for a plain-language summary.
// Failures degrade to the empty narrative and never block the result.
func (g *Generator) narrate(ctx context.Context, r models.AssessmentResult) string {
	if g.narrator == nil {
		return ""
	}
	user := fmt.Sprintf(
		"Risk level: %s (score %.1f). Recommendations: %v. Next steps: %v. Completed sections: %v.",
		r.RiskLevel, r.TotalRiskScore, r.Recommendations, r.NextSteps, r.CompletedDomains)
	narrative, err := g.narrator.GeneratePrompt(ctx, narrativeSystemPrompt, user)
	if err != nil {
		slog.Warn("Narrative generation failed, continuing without it", "error", err, "session", r.SessionID)
		return ""
	}
	return narrative
}

const narrativeSystemPrompt = "You summarize a completed health-risk assessment for the person who took it. " +
	"Use plain, supportive language. Restate the risk level, recommendations, and next steps exactly as given. " +
	"Do not add medical advice beyond the provided recommendations."
