package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jomei/notionapi"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/salesforce"
)

func testLeads(n int) []model.Lead {
	leads := make([]model.Lead, n)
	for i := range leads {
		leads[i] = model.Lead{
			ID:             fmt.Sprintf("lead-%d", i+1),
			Title:          fmt.Sprintf("Need a tool for thing %d", i+1),
			Community:      "smallbusiness",
			Author:         fmt.Sprintf("user%d", i+1),
			Permalink:      fmt.Sprintf("https://www.reddit.com/r/smallbusiness/comments/p%d/", i+1),
			PostedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			RelevanceScore: 8,
			QualityScore:   6,
			ScoringSource:  model.ScoringAI,
			Status:         model.LeadStatusNew,
			Reasoning:      "explicit ask",
		}
	}
	return leads
}

// fakeNotion keeps pages keyed by permalink.
type fakeNotion struct {
	mu        sync.Mutex
	pages     map[string]string
	created   int
	updated   int
	createErr map[string]error
}

func newFakeNotion() *fakeNotion {
	return &fakeNotion{pages: map[string]string{}, createErr: map[string]error{}}
}

func (f *fakeNotion) QueryDatabase(_ context.Context, _ string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pf, ok := req.Filter.(notionapi.PropertyFilter)
	if !ok || pf.RichText == nil {
		return nil, errors.New("unexpected filter")
	}
	resp := &notionapi.DatabaseQueryResponse{}
	if id, ok := f.pages[pf.RichText.Equals]; ok {
		resp.Results = []notionapi.Page{{ID: notionapi.ObjectID(id)}}
	}
	return resp, nil
}

func (f *fakeNotion) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link := req.Properties["Link"].(notionapi.URLProperty).URL
	if err := f.createErr[link]; err != nil {
		return nil, err
	}
	f.created++
	id := fmt.Sprintf("page-%d", len(f.pages)+1)
	f.pages[link] = id
	return &notionapi.Page{ID: notionapi.ObjectID(id)}, nil
}

func (f *fakeNotion) UpdatePage(_ context.Context, pageID string, _ *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated++
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

// fakeSalesforce keeps Lead IDs keyed by Website.
type fakeSalesforce struct {
	existing     map[string]string
	queryErr     error
	insertErr    error
	rejectSite   string
	inserted     []map[string]any
	ratings      map[string]any
	collectCalls int
}

func newFakeSalesforce() *fakeSalesforce {
	return &fakeSalesforce{existing: map[string]string{}, ratings: map[string]any{}}
}

func (f *fakeSalesforce) Query(_ context.Context, soql string, out any) error {
	if f.queryErr != nil {
		return f.queryErr
	}
	leads := out.(*[]salesforce.Lead)
	for site, id := range f.existing {
		if strings.Contains(soql, "'"+site+"'") {
			*leads = []salesforce.Lead{{ID: id, Website: site}}
		}
	}
	return nil
}

func (f *fakeSalesforce) InsertOne(context.Context, string, map[string]any) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeSalesforce) InsertCollection(_ context.Context, _ string, records []map[string]any) ([]salesforce.CollectionResult, error) {
	f.collectCalls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	results := make([]salesforce.CollectionResult, len(records))
	for i, r := range records {
		if r["Website"] == f.rejectSite {
			results[i] = salesforce.CollectionResult{Errors: []string{"DUPLICATES_DETECTED"}}
			continue
		}
		f.inserted = append(f.inserted, r)
		results[i] = salesforce.CollectionResult{ID: fmt.Sprintf("00Q%d", len(f.inserted)), Success: true}
	}
	return results, nil
}

func (f *fakeSalesforce) UpdateOne(_ context.Context, _ string, id string, fields map[string]any) error {
	f.ratings[id] = fields["Rating"]
	return nil
}
