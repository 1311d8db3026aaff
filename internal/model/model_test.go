package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundJob_Due(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		status  JobStatus
		nextRun time.Time
		want    bool
	}{
		{"active past", JobStatusActive, now.Add(-time.Minute), true},
		{"active exactly now", JobStatusActive, now, true},
		{"active future", JobStatusActive, now.Add(time.Second), false},
		{"error retried", JobStatusError, now.Add(-time.Hour), true},
		{"paused", JobStatusPaused, now.Add(-time.Hour), false},
		{"stopped", JobStatusStopped, now.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := BackgroundJob{Status: tt.status, NextRun: tt.nextRun}
			assert.Equal(t, tt.want, j.Due(now))
		})
	}
}

func TestBackgroundJob_Interval(t *testing.T) {
	assert.Equal(t, 90*time.Minute, BackgroundJob{IntervalMinutes: 90}.Interval())
}

func TestNewLead(t *testing.T) {
	posted := time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)
	sc := ScoredCandidate{
		Candidate: Candidate{
			ID:        "t3_abc",
			Title:     "What do you use for invoicing?",
			Body:      strings.Repeat("é", 20),
			Community: "freelance",
			Author:    "sam",
			Permalink: "https://www.reddit.com/r/freelance/comments/abc/",
			CreatedAt: posted,
		},
		RelevanceScore: 9,
		QualityScore:   7,
		Reasoning:      "direct ask",
		ScoringSource:  ScoringAI,
	}

	l := NewLead("u1", "p1", sc, 5)
	assert.Equal(t, "u1", l.UserID)
	assert.Equal(t, "p1", l.ProductID)
	assert.Equal(t, "t3_abc", l.PostID)
	assert.Equal(t, "ééééé", l.Excerpt)
	assert.Equal(t, posted, l.PostedAt)
	assert.Equal(t, 9, l.RelevanceScore)
	assert.Equal(t, ScoringAI, l.ScoringSource)
	assert.Equal(t, LeadStatusNew, l.Status)

	full := NewLead("u1", "p1", sc, 0)
	assert.Equal(t, sc.Body, full.Excerpt)
}

func TestSearchTermSet_GroupAccess(t *testing.T) {
	var s SearchTermSet
	for i, g := range AllGroups {
		s.Set(g, []string{string(g), strings.Repeat("x", i)})
	}
	for i, g := range AllGroups {
		assert.Equal(t, []string{string(g), strings.Repeat("x", i)}, s.Terms(g))
	}
	assert.Nil(t, s.Terms(TermGroup("unknown")))
	assert.Equal(t, 2*len(AllGroups), s.Total())
}

func TestProductProfile_Text(t *testing.T) {
	p := ProductProfile{
		Name:       "ShipFast",
		Features:   []string{"reminders"},
		PainPoints: []string{"late payments"},
	}
	text := p.Text()
	assert.Contains(t, text, "ShipFast")
	assert.Contains(t, text, "reminders")
	assert.Contains(t, text, "late payments")
}
