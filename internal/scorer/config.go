// Package scorer implements the deterministic fallback quality scorer used
// when AI relevance analysis is unavailable.
package scorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Weights are the score and confidence increments applied per signal.
type Weights struct {
	BaseScore      float64
	BaseConfidence float64

	NameMention  float64
	PainPoint    float64
	PainPointCap float64
	Feature      float64
	FeatureCap   float64
	BuyingIntent float64
	Question     float64
	Popular      float64
	Discussed    float64
	Last24h      float64
	Last7d       float64

	// Confidence increments.
	ConfNameMention  float64
	ConfProfileMatch float64
	ConfBuyingIntent float64
	ConfQuestion     float64
	ConfEngagement   float64

	// Thresholds.
	PopularScore   int
	DiscussedCount int
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		BaseScore:      3,
		BaseConfidence: 3,

		NameMention:  3,
		PainPoint:    1.5,
		PainPointCap: 3,
		Feature:      1,
		FeatureCap:   2,
		BuyingIntent: 2,
		Question:     1,
		Popular:      0.5,
		Discussed:    0.5,
		Last24h:      1,
		Last7d:       0.5,

		ConfNameMention:  2,
		ConfProfileMatch: 1,
		ConfBuyingIntent: 2,
		ConfQuestion:     1,
		ConfEngagement:   1,

		PopularScore:   10,
		DiscussedCount: 5,
	}
}

// Validate checks that every weight is usable.
func (w Weights) Validate() error {
	var errs []string

	named := map[string]float64{
		"base_score":      w.BaseScore,
		"base_confidence": w.BaseConfidence,
		"name_mention":    w.NameMention,
		"pain_point":      w.PainPoint,
		"feature":         w.Feature,
		"buying_intent":   w.BuyingIntent,
		"question":        w.Question,
		"popular":         w.Popular,
		"discussed":       w.Discussed,
		"last_24h":        w.Last24h,
		"last_7d":         w.Last7d,
	}
	for name, v := range named {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if w.BaseScore > 10 || w.BaseConfidence > 10 {
		errs = append(errs, "base values must be <= 10")
	}
	if w.PopularScore < 0 || w.DiscussedCount < 0 {
		errs = append(errs, "engagement thresholds must be >= 0")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("scorer: invalid weights: %s", strings.Join(errs, "; "))
	}
	return nil
}

