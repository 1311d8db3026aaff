package scorer

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/lead-radar/internal/model"
)

// buyingIntent lists phrases that signal someone is shopping for a solution.
var buyingIntent = []string{
	"looking for",
	"recommend",
	"recommendation",
	"any suggestions",
	"alternative to",
	"alternatives to",
	"best tool",
	"best app",
	"best software",
	"willing to pay",
	"budget for",
	"pricing",
	"is there a tool",
	"is there an app",
	"switching from",
	"need a solution",
	"need help with",
	"what do you use",
	"what are you using",
}

var questionPattern = regexp.MustCompile(`(?i)\?|^\s*(how|what|which|where|why|is there|does anyone|can anyone|should i|any)\b`)

// Result is the fallback assessment of one candidate.
type Result struct {
	Score      int      `json:"score"`
	Confidence int      `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Score rates a candidate against a profile. It is a pure function of its
// inputs; now is only used for the recency signal.
func Score(c model.Candidate, p model.ProductProfile, now time.Time) Result {
	return ScoreWith(DefaultWeights(), c, p, now)
}

// ScoreWith is Score with explicit weights.
func ScoreWith(w Weights, c model.Candidate, p model.ProductProfile, now time.Time) Result {
	text := strings.ToLower(c.Title + " " + c.Body)
	score := w.BaseScore
	conf := w.BaseConfidence
	var reasons []string

	if name := strings.ToLower(strings.TrimSpace(p.Name)); name != "" && strings.Contains(text, name) {
		score += w.NameMention
		conf += w.ConfNameMention
		reasons = append(reasons, "mentions product name")
	}

	if hits := matchPhrases(p.PainPoints, text); len(hits) > 0 {
		score += math.Min(float64(len(hits))*w.PainPoint, w.PainPointCap)
		conf += w.ConfProfileMatch
		reasons = append(reasons, "pain points: "+strings.Join(hits, ", "))
	}

	fb := append(append([]string{}, p.Features...), p.Benefits...)
	if hits := matchPhrases(fb, text); len(hits) > 0 {
		score += math.Min(float64(len(hits))*w.Feature, w.FeatureCap)
		conf += w.ConfProfileMatch
		reasons = append(reasons, "features/benefits: "+strings.Join(hits, ", "))
	}

	if hits := matchPhrases(buyingIntent, text); len(hits) > 0 {
		score += w.BuyingIntent
		conf += w.ConfBuyingIntent
		reasons = append(reasons, "buying intent: "+strings.Join(hits, ", "))
	}

	if questionPattern.MatchString(c.Title) || strings.Contains(c.Body, "?") {
		score += w.Question
		conf += w.ConfQuestion
		reasons = append(reasons, "asks a question")
	}

	engaged := false
	if c.Score >= w.PopularScore {
		score += w.Popular
		engaged = true
		reasons = append(reasons, fmt.Sprintf("popular (%d points)", c.Score))
	}
	if c.NumComments >= w.DiscussedCount {
		score += w.Discussed
		engaged = true
		reasons = append(reasons, fmt.Sprintf("active discussion (%d replies)", c.NumComments))
	}
	if engaged {
		conf += w.ConfEngagement
	}

	if !c.CreatedAt.IsZero() {
		age := now.Sub(c.CreatedAt)
		switch {
		case age >= 0 && age <= 24*time.Hour:
			score += w.Last24h
			reasons = append(reasons, "posted within 24h")
		case age >= 0 && age <= 7*24*time.Hour:
			score += w.Last7d
			reasons = append(reasons, "posted within 7d")
		}
	}

	return Result{
		Score:      clamp(score),
		Confidence: clamp(conf),
		Reasons:    reasons,
	}
}

// matchPhrases returns the phrases that appear in text, either verbatim or
// with most of their significant words present.
func matchPhrases(phrases []string, text string) []string {
	var matched []string
	seen := make(map[string]struct{})
	for _, ph := range phrases {
		p := strings.ToLower(strings.TrimSpace(ph))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		if strings.Contains(text, p) || nearMatch(p, text) {
			seen[p] = struct{}{}
			matched = append(matched, p)
		}
	}
	return matched
}

// nearMatch reports whether at least 60% of the phrase's words of four or
// more letters occur in text. Phrases with fewer than two such words never
// near-match.
func nearMatch(phrase, text string) bool {
	var words []string
	for _, w := range strings.FieldsFunc(phrase, notWordRune) {
		if len([]rune(w)) >= 4 {
			words = append(words, w)
		}
	}
	if len(words) < 2 {
		return false
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			hits++
		}
	}
	return float64(hits)/float64(len(words)) >= 0.6
}

func notWordRune(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
}

func clamp(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
