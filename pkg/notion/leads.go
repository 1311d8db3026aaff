package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead database property names.
const (
	PropName      = "Name"
	PropPermalink = "Permalink"
	PropLink      = "Link"
	PropCommunity = "Community"
	PropAuthor    = "Author"
	PropScore     = "Score"
	PropSource    = "Scoring"
	PropStatus    = "Status"
	PropReasoning = "Reasoning"
	PropReply     = "Suggested Reply"
	PropPostedAt  = "Posted"
)

// maxRichText is Notion's limit on a single rich-text content block.
const maxRichText = 2000

// LeadPage is one lead row in the review database.
type LeadPage struct {
	Title          string
	Permalink      string
	Community      string
	Author         string
	Score          int
	ScoringSource  string
	Status         string
	Reasoning      string
	SuggestedReply string
	PostedAt       time.Time
}

// Properties renders the page properties for l.
func (l LeadPage) Properties() notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(l.Title),
		},
		PropPermalink: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(l.Permalink),
		},
		PropLink: notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  l.Permalink,
		},
		PropCommunity: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: l.Community},
		},
		PropAuthor: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(l.Author),
		},
		PropScore: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(l.Score),
		},
		PropSource: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: l.ScoringSource},
		},
		PropStatus: notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: l.Status},
		},
		PropReasoning: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(l.Reasoning),
		},
		PropReply: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(l.SuggestedReply),
		},
	}
	if !l.PostedAt.IsZero() {
		d := notionapi.Date(l.PostedAt)
		props[PropPostedAt] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &d},
		}
	}
	return props
}

// UpsertLead creates the lead page, or refreshes score and status on the
// existing page with the same permalink. It reports whether a page was created.
func UpsertLead(ctx context.Context, c Client, dbID string, l LeadPage) (bool, error) {
	if l.Permalink == "" {
		return false, eris.New("notion: lead permalink is required")
	}

	existing, err := FindByText(ctx, c, dbID, PropPermalink, l.Permalink)
	if err != nil {
		return false, err
	}
	if existing != nil {
		all := l.Properties()
		_, err := c.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{
			Properties: notionapi.Properties{
				PropScore:  all[PropScore],
				PropSource: all[PropSource],
				PropStatus: all[PropStatus],
			},
		})
		if err != nil {
			return false, eris.Wrapf(err, "notion: refresh lead %s", l.Permalink)
		}
		return false, nil
	}

	_, err = c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: l.Properties(),
	})
	if err != nil {
		return false, eris.Wrapf(err, "notion: create lead %s", l.Permalink)
	}
	return true, nil
}

func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > maxRichText {
		s = string(r[:maxRichText])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
