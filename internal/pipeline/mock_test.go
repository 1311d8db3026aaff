package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-radar/internal/credential"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/relevance"
	"github.com/sells-group/lead-radar/internal/search"
	"github.com/sells-group/lead-radar/internal/terms"
)

// --- Term generator ---

type mockTerms struct {
	mock.Mock
}

func (m *mockTerms) Generate(ctx context.Context, p model.ProductProfile) (model.SearchTermSet, terms.Source) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.SearchTermSet), args.Get(1).(terms.Source)
}

// --- Token source ---

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Token(ctx context.Context, userID string) (credential.Token, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(credential.Token), args.Error(1)
}

// --- Searcher ---

// fakeSearcher returns canned results per term list and advances a fake
// clock on every call.
type fakeSearcher struct {
	results map[string]search.Result
	clock   *fakeClock
	step    time.Duration
	calls   []string
}

func (f *fakeSearcher) SearchTerms(_ context.Context, _, community string, terms []string, _ int) search.Result {
	key := community + ":" + terms[0]
	f.calls = append(f.calls, key)
	if f.clock != nil {
		f.clock.advance(f.step)
	}
	if r, ok := f.results[key]; ok {
		return r
	}
	return search.Result{Status: search.StatusEmpty, Calls: 1}
}

// blockingSearcher waits for its context to end on every call.
type blockingSearcher struct {
	calls int
}

func (b *blockingSearcher) SearchTerms(ctx context.Context, _, _ string, _ []string, _ int) search.Result {
	b.calls++
	<-ctx.Done()
	return search.Result{Status: search.StatusFailed, Err: ctx.Err(), Calls: 1, Failures: 1}
}

// --- Relevance filter ---

// passFilter accepts every candidate with a fixed score.
type passFilter struct {
	score    int
	degraded bool
	seen     [][]model.Candidate
}

func (f *passFilter) Filter(_ context.Context, cands []model.Candidate, _ model.ProductProfile) relevance.Report {
	f.seen = append(f.seen, cands)
	rep := relevance.Report{Batches: 1, Degraded: f.degraded}
	for _, c := range cands {
		sc := model.ScoredCandidate{Candidate: c, Relevant: true, RelevanceScore: f.score, ScoringSource: model.ScoringAI}
		rep.Scored = append(rep.Scored, sc)
		if f.score >= relevance.DefaultThreshold {
			rep.Accepted = append(rep.Accepted, sc)
		}
	}
	return rep
}

// --- Lead writer ---

type memLeads struct {
	leads     map[string]model.Lead
	existsErr map[string]error
	insertErr map[string]error
}

func newMemLeads() *memLeads {
	return &memLeads{
		leads:     make(map[string]model.Lead),
		existsErr: make(map[string]error),
		insertErr: make(map[string]error),
	}
}

func (m *memLeads) LeadExists(_ context.Context, userID, permalink string) (bool, error) {
	if err := m.existsErr[permalink]; err != nil {
		return false, err
	}
	_, ok := m.leads[userID+"|"+permalink]
	return ok, nil
}

func (m *memLeads) InsertLead(_ context.Context, l *model.Lead) (bool, error) {
	if err := m.insertErr[l.Permalink]; err != nil {
		return false, err
	}
	key := l.UserID + "|" + l.Permalink
	if _, ok := m.leads[key]; ok {
		return false, nil
	}
	m.leads[key] = *l
	return true, nil
}

// --- Clock ---

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
