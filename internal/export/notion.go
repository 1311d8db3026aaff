package export

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/notion"
)

// NotionSink upserts leads into a Notion review database keyed by permalink.
type NotionSink struct {
	Client     notion.Client
	DatabaseID string
}

// Name implements Sink.
func (s *NotionSink) Name() string { return "notion" }

// Export implements Sink. A failed page is recorded and the rest continue.
func (s *NotionSink) Export(ctx context.Context, leads []model.Lead) (*Report, error) {
	rep := &Report{Sink: s.Name(), Total: len(leads)}
	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return rep, eris.Wrap(err, "export: notion cancelled")
		}
		created, err := notion.UpsertLead(ctx, s.Client, s.DatabaseID, leadPage(l))
		if err != nil {
			rep.fail(leadKey(l), err)
			continue
		}
		if created {
			rep.Created++
		} else {
			rep.Updated++
		}
	}
	return rep, nil
}

func leadPage(l model.Lead) notion.LeadPage {
	return notion.LeadPage{
		Title:          l.Title,
		Permalink:      l.Permalink,
		Community:      l.Community,
		Author:         l.Author,
		Score:          l.RelevanceScore,
		ScoringSource:  string(l.ScoringSource),
		Status:         string(l.Status),
		Reasoning:      l.Reasoning,
		SuggestedReply: l.SuggestedReply,
		PostedAt:       l.PostedAt,
	}
}
