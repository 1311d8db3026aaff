package export

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/salesforce"
)

// SalesforceSink pushes leads as Salesforce Lead records. Leads already
// present (matched on Website = permalink) get their rating refreshed; the
// rest are inserted through the Collections API.
type SalesforceSink struct {
	Client salesforce.Client
}

// Name implements Sink.
func (s *SalesforceSink) Name() string { return "salesforce" }

// Export implements Sink.
func (s *SalesforceSink) Export(ctx context.Context, leads []model.Lead) (*Report, error) {
	rep := &Report{Sink: s.Name(), Total: len(leads)}

	var pending []model.Lead
	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return rep, eris.Wrap(err, "export: salesforce cancelled")
		}
		if l.Permalink == "" {
			rep.fail(leadKey(l), eris.New("export: lead has no permalink"))
			continue
		}
		existing, err := salesforce.FindLeadByWebsite(ctx, s.Client, l.Permalink)
		if err != nil {
			rep.fail(leadKey(l), err)
			continue
		}
		if existing == nil {
			pending = append(pending, l)
			continue
		}
		if err := salesforce.UpdateLeadRating(ctx, s.Client, existing.ID, l.RelevanceScore); err != nil {
			rep.fail(leadKey(l), err)
			continue
		}
		rep.Updated++
	}

	if len(pending) == 0 {
		return rep, nil
	}

	inputs := make([]salesforce.LeadInput, 0, len(pending))
	for _, l := range pending {
		inputs = append(inputs, leadInput(l))
	}
	results, err := salesforce.BulkInsertLeads(ctx, s.Client, inputs)
	for i, l := range pending {
		switch {
		case i >= len(results):
			cause := err
			if cause == nil {
				cause = eris.New("export: no result for lead")
			}
			rep.fail(leadKey(l), cause)
		case results[i].Success:
			rep.Created++
		default:
			rep.fail(leadKey(l), eris.Errorf("export: insert lead: %s", strings.Join(results[i].Errors, "; ")))
		}
	}
	return rep, nil
}

func leadInput(l model.Lead) salesforce.LeadInput {
	return salesforce.LeadInput{
		Author:         l.Author,
		Community:      l.Community,
		Title:          l.Title,
		Permalink:      l.Permalink,
		Score:          l.RelevanceScore,
		Reasoning:      l.Reasoning,
		SuggestedReply: l.SuggestedReply,
	}
}
