package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	// maxBatchSize is the Salesforce Collections API limit per request.
	maxBatchSize = 200

	// maxDescription is the Lead.Description long text area limit.
	maxDescription = 32000

	// LeadSource is written to Lead.LeadSource on every exported record.
	LeadSource = "Reddit"
)

// Lead is the subset of the Salesforce Lead SObject the export reads back.
type Lead struct {
	ID         string `json:"Id" salesforce:"Id"`
	LastName   string `json:"LastName" salesforce:"LastName"`
	Company    string `json:"Company" salesforce:"Company"`
	Website    string `json:"Website" salesforce:"Website"`
	LeadSource string `json:"LeadSource" salesforce:"LeadSource"`
	Rating     string `json:"Rating" salesforce:"Rating"`
}

var leadFields = []string{"Id", "LastName", "Company", "Website", "LeadSource", "Rating"}

// LeadInput describes one discovered conversation to push as a Lead.
type LeadInput struct {
	Author         string
	Community      string
	Title          string
	Permalink      string
	Score          int
	Reasoning      string
	SuggestedReply string
}

// Rating maps a relevance score onto the standard Lead rating picklist.
func Rating(score int) string {
	switch {
	case score >= 9:
		return "Hot"
	case score >= 7:
		return "Warm"
	default:
		return "Cold"
	}
}

// Fields renders the Lead record fields for in. The permalink is stored in
// Website and acts as the natural key.
func (in LeadInput) Fields() map[string]any {
	last := in.Author
	if last == "" {
		last = "[deleted]"
	}

	var desc strings.Builder
	desc.WriteString(in.Title)
	if in.Reasoning != "" {
		desc.WriteString("\n\nWhy: ")
		desc.WriteString(in.Reasoning)
	}
	if in.SuggestedReply != "" {
		desc.WriteString("\n\nSuggested reply: ")
		desc.WriteString(in.SuggestedReply)
	}
	d := desc.String()
	if r := []rune(d); len(r) > maxDescription {
		d = string(r[:maxDescription])
	}

	return map[string]any{
		"LastName":    last,
		"Company":     "r/" + in.Community,
		"Website":     in.Permalink,
		"LeadSource":  LeadSource,
		"Rating":      Rating(in.Score),
		"Description": d,
	}
}

// FindLeadByWebsite returns the Lead whose Website equals website, or nil.
func FindLeadByWebsite(ctx context.Context, c Client, website string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Website = '%s' LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(website),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by website %s", website))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpdateLeadRating refreshes the rating of an existing Lead from score.
func UpdateLeadRating(ctx context.Context, c Client, id string, score int) error {
	if id == "" {
		return eris.New("sf: lead id is required")
	}
	if err := c.UpdateOne(ctx, "Lead", id, map[string]any{"Rating": Rating(score)}); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update lead rating %s", id))
	}
	return nil
}

// BulkInsertLeads splits inputs into batches of 200 (SF Collections API limit)
// and inserts them via InsertCollection. Results are returned in input order.
// On a batch error the results of the earlier batches are still returned.
func BulkInsertLeads(ctx context.Context, c Client, inputs []LeadInput) ([]CollectionResult, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	var all []CollectionResult
	for start := 0; start < len(inputs); start += maxBatchSize {
		end := min(start+maxBatchSize, len(inputs))

		records := make([]map[string]any, 0, end-start)
		for _, in := range inputs[start:end] {
			records = append(records, in.Fields())
		}

		results, err := c.InsertCollection(ctx, "Lead", records)
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: bulk insert leads batch %d-%d", start, end))
		}
		all = append(all, results...)
	}
	return all, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
