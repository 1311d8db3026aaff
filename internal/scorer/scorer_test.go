package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-radar/internal/model"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func profile() model.ProductProfile {
	return model.ProductProfile{
		Name:       "InvoiceBot",
		Features:   []string{"automatic reminders"},
		Benefits:   []string{"get paid faster"},
		PainPoints: []string{"late payments", "manual invoicing"},
	}
}

func TestScore_StrongLead(t *testing.T) {
	c := model.Candidate{
		Title:       "Looking for a tool to stop late payments?",
		Body:        "Manual invoicing is killing us. Any recommendation?",
		Score:       15,
		NumComments: 8,
		CreatedAt:   now.Add(-2 * time.Hour),
	}

	r := Score(c, profile(), now)
	assert.Equal(t, 10, r.Score, "clamped at 10")
	assert.Equal(t, 8, r.Confidence)
	assert.Contains(t, r.Reasons, "pain points: late payments, manual invoicing")
	assert.Contains(t, r.Reasons, "asks a question")
	assert.Contains(t, r.Reasons, "posted within 24h")
}

func TestScore_WeakLead(t *testing.T) {
	c := model.Candidate{
		Title:     "Weekend photos",
		Score:     1,
		CreatedAt: now.Add(-30 * 24 * time.Hour),
	}

	r := Score(c, profile(), now)
	assert.Equal(t, 3, r.Score)
	assert.Equal(t, 3, r.Confidence)
	assert.Empty(t, r.Reasons)
}

func TestScore_NameMentionAndRecency(t *testing.T) {
	c := model.Candidate{
		Title:     "Anyone tried InvoiceBot",
		CreatedAt: now.Add(-3 * 24 * time.Hour),
	}

	r := Score(c, profile(), now)
	assert.Equal(t, 7, r.Score)
	assert.Equal(t, 5, r.Confidence)
	assert.Equal(t, []string{"mentions product name", "posted within 7d"}, r.Reasons)
}

func TestScore_Deterministic(t *testing.T) {
	c := model.Candidate{
		Title:       "What do you use for automatic payment reminders?",
		Body:        "we need to get paid faster",
		Score:       4,
		NumComments: 12,
		CreatedAt:   now.Add(-time.Hour),
	}
	p := profile()

	first := Score(c, p, now)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(c, p, now))
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	w := DefaultWeights()
	w.BaseScore = 0
	w.BaseConfidence = 0

	r := ScoreWith(w, model.Candidate{Title: "x"}, model.ProductProfile{}, now)
	assert.Equal(t, 1, r.Score)
	assert.Equal(t, 1, r.Confidence)
}

func TestScore_FutureTimestampIgnored(t *testing.T) {
	r := Score(model.Candidate{Title: "hello", CreatedAt: now.Add(time.Hour)}, model.ProductProfile{}, now)
	assert.Equal(t, 3, r.Score)
}

func TestMatchPhrases(t *testing.T) {
	tests := []struct {
		name    string
		phrases []string
		text    string
		want    []string
	}{
		{"verbatim", []string{"late payments"}, "so many late payments lately", []string{"late payments"}},
		{"near match", []string{"automatic payment reminders"}, "we want reminders that are automatic", []string{"automatic payment reminders"}},
		{"single short word never near-matches", []string{"crm"}, "nothing here", nil},
		{"dedupes case", []string{"Late Payments", "late payments"}, "late payments", []string{"late payments"}},
		{"blank skipped", []string{"  "}, "anything", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPhrases(tt.phrases, tt.text))
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	w := DefaultWeights()
	w.NameMention = -1
	w.BaseScore = 11
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name_mention must be >= 0")
	assert.Contains(t, err.Error(), "base values must be <= 10")
}
