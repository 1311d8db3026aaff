package model

import "time"

// LeadStatus is the outreach state of a lead, driven by the human workflow.
type LeadStatus string

// Lead statuses.
const (
	LeadStatusNew     LeadStatus = "new"
	LeadStatusEngaged LeadStatus = "engaged"
	LeadStatusDeleted LeadStatus = "deleted"
)

// Lead is a persisted, accepted candidate. At most one exists per (UserID, Permalink).
type Lead struct {
	ID             string        `json:"id" db:"id"`
	UserID         string        `json:"user_id" db:"user_id"`
	ProductID      string        `json:"product_id" db:"product_id"`
	PostID         string        `json:"post_id" db:"post_id"`
	Title          string        `json:"title" db:"title"`
	Excerpt        string        `json:"excerpt" db:"excerpt"`
	Community      string        `json:"community" db:"community"`
	Author         string        `json:"author" db:"author"`
	PostScore      int           `json:"post_score" db:"post_score"`
	NumComments    int           `json:"num_comments" db:"num_comments"`
	URL            string        `json:"url" db:"url"`
	Permalink      string        `json:"permalink" db:"permalink"`
	PostedAt       time.Time     `json:"posted_at" db:"posted_at"`
	RelevanceScore int           `json:"relevance_score" db:"relevance_score"`
	QualityScore   int           `json:"quality_score" db:"quality_score"`
	Reasoning      string        `json:"reasoning" db:"reasoning"`
	SuggestedReply string        `json:"suggested_reply" db:"suggested_reply"`
	ScoringSource  ScoringSource `json:"scoring_source" db:"scoring_source"`
	Status         LeadStatus    `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// NewLead builds a new-status lead from an accepted candidate.
func NewLead(userID, productID string, sc ScoredCandidate, excerptChars int) Lead {
	excerpt := sc.Body
	if excerptChars > 0 {
		if r := []rune(excerpt); len(r) > excerptChars {
			excerpt = string(r[:excerptChars])
		}
	}
	return Lead{
		UserID:         userID,
		ProductID:      productID,
		PostID:         sc.ID,
		Title:          sc.Title,
		Excerpt:        excerpt,
		Community:      sc.Community,
		Author:         sc.Author,
		PostScore:      sc.Score,
		NumComments:    sc.NumComments,
		URL:            sc.URL,
		Permalink:      sc.Permalink,
		PostedAt:       sc.CreatedAt,
		RelevanceScore: sc.RelevanceScore,
		QualityScore:   sc.QualityScore,
		Reasoning:      sc.Reasoning,
		SuggestedReply: sc.SuggestedReply,
		ScoringSource:  sc.ScoringSource,
		Status:         LeadStatusNew,
	}
}

// LeadFilter selects leads for listing and export.
type LeadFilter struct {
	UserID       string
	ProductID    string
	Status       LeadStatus
	CreatedAfter time.Time
	Limit        int
}
