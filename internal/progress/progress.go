// Package progress computes completion percentage and remaining-time
// estimates for an assessment session.
//
// The denominator is the currently known domain count (triage + validation
// + every domain triggered so far), so discovering a new domain mid-session
// can lower the percentage. That non-monotonic behavior is deliberate: the
// estimate always reflects what the session now knows it owes.
package progress

import (
	"math"

	"github.com/vitalpath/assessflow/internal/catalog"
)

// Estimator computes progress and time estimates from domain lists.
type Estimator struct {
	cat *catalog.Catalog
}

// NewEstimator creates an Estimator over the given catalog.
func NewEstimator(cat *catalog.Catalog) *Estimator {
	return &Estimator{cat: cat}
}

// Progress returns round(completed / known * 100), clamped to [0,100].
func (e *Estimator) Progress(completed, known []string) int {
	if len(known) == 0 {
		return 0
	}
	p := int(math.Round(float64(len(completed)) / float64(len(known)) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// EstimatedTimeRemaining sums the estimated minutes of every known domain
// that has not completed, including the current one. The result can grow
// across steps as new domains are discovered; it is never negative.
func (e *Estimator) EstimatedTimeRemaining(known, completed []string) int {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	total := 0
	for _, id := range known {
		if done[id] {
			continue
		}
		if d, ok := e.cat.Domain(id); ok {
			total += d.EstimatedMinutes
		}
	}
	if total < 0 {
		return 0
	}
	return total
}
