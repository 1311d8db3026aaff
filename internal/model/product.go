// Package model defines the domain types shared across the lead-discovery pipeline.
package model

import (
	"strings"
	"time"
)

// ProductProfile is a read-only snapshot of the product a pipeline run searches leads for.
type ProductProfile struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	Name              string    `json:"name" db:"name"`
	Description       string    `json:"description" db:"description"`
	Features          []string  `json:"features" db:"features"`
	Benefits          []string  `json:"benefits" db:"benefits"`
	PainPoints        []string  `json:"pain_points" db:"pain_points"`
	IdealCustomer     string    `json:"ideal_customer" db:"ideal_customer"`
	TargetCommunities []string  `json:"target_communities" db:"target_communities"`
	Active            bool      `json:"active" db:"active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Text returns the free-text fields of the profile joined for keyword matching.
func (p ProductProfile) Text() string {
	parts := []string{p.Name, p.Description, p.IdealCustomer}
	parts = append(parts, p.Features...)
	parts = append(parts, p.Benefits...)
	parts = append(parts, p.PainPoints...)
	return strings.Join(parts, " ")
}

// TermGroup names one keyword group. Each group shares a single dedup scope.
type TermGroup string

// Keyword groups in generation order.
const (
	GroupProblem      TermGroup = "problem"
	GroupSolution     TermGroup = "solution"
	GroupIndustry     TermGroup = "industry"
	GroupConversation TermGroup = "conversation"
	GroupUrgency      TermGroup = "urgency"
	GroupTool         TermGroup = "tool"
)

// AllGroups lists every keyword group in the stable processing order.
var AllGroups = []TermGroup{
	GroupProblem,
	GroupSolution,
	GroupIndustry,
	GroupConversation,
	GroupUrgency,
	GroupTool,
}

// SearchTermSet holds the six labeled term categories generated for one run.
type SearchTermSet struct {
	ProblemTerms      []string `json:"problemTerms"`
	SolutionTerms     []string `json:"solutionTerms"`
	IndustryTerms     []string `json:"industryTerms"`
	ConversationTerms []string `json:"conversationTerms"`
	UrgencyTerms      []string `json:"urgencyTerms"`
	ToolTerms         []string `json:"toolTerms"`
}

// Terms returns the ordered terms of a group.
func (s SearchTermSet) Terms(g TermGroup) []string {
	switch g {
	case GroupProblem:
		return s.ProblemTerms
	case GroupSolution:
		return s.SolutionTerms
	case GroupIndustry:
		return s.IndustryTerms
	case GroupConversation:
		return s.ConversationTerms
	case GroupUrgency:
		return s.UrgencyTerms
	case GroupTool:
		return s.ToolTerms
	default:
		return nil
	}
}

// Set replaces the terms of a group.
func (s *SearchTermSet) Set(g TermGroup, terms []string) {
	switch g {
	case GroupProblem:
		s.ProblemTerms = terms
	case GroupSolution:
		s.SolutionTerms = terms
	case GroupIndustry:
		s.IndustryTerms = terms
	case GroupConversation:
		s.ConversationTerms = terms
	case GroupUrgency:
		s.UrgencyTerms = terms
	case GroupTool:
		s.ToolTerms = terms
	}
}

// Total returns the number of terms across all groups.
func (s SearchTermSet) Total() int {
	n := 0
	for _, g := range AllGroups {
		n += len(s.Terms(g))
	}
	return n
}
