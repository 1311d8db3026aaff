package model

import "time"

// Candidate is one external post surfaced by search, prior to relevance filtering.
type Candidate struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Community   string    `json:"community"`
	Author      string    `json:"author"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedAt   time.Time `json:"created_at"`
	Permalink   string    `json:"permalink"`
	URL         string    `json:"url"`
	IsSelf      bool      `json:"is_self"`
	Group       TermGroup `json:"group"`
	Term        string    `json:"term"`
}

// ScoringSource records how a candidate's score was produced.
type ScoringSource string

const (
	// ScoringAI means the relevance judge scored the candidate.
	ScoringAI ScoringSource = "ai"
	// ScoringHeuristic means AI was unavailable and the fallback scorer decided.
	ScoringHeuristic ScoringSource = "heuristic"
	// ScoringPassthrough means AI was unavailable and the candidate was admitted unfiltered.
	ScoringPassthrough ScoringSource = "passthrough"
)

// ScoredCandidate is a Candidate annotated by the relevance filter.
type ScoredCandidate struct {
	Candidate
	Relevant       bool          `json:"relevant"`
	RelevanceScore int           `json:"relevance_score"`
	Reasoning      string        `json:"reasoning"`
	QualityScore   int           `json:"quality_score"`
	Confidence     int           `json:"confidence"`
	SuggestedReply string        `json:"suggested_reply,omitempty"`
	Degraded       bool          `json:"degraded"`
	ScoringSource  ScoringSource `json:"scoring_source"`
}

// Failure pairs an item identifier with the error that excluded it.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}
