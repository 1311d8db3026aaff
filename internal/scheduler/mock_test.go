package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/pipeline"
	"github.com/sells-group/lead-radar/internal/store"
)

// memStore is an in-memory Store with the same bookkeeping semantics as the
// SQL stores.
type memStore struct {
	mu       sync.Mutex
	products map[string]model.ProductProfile
	jobs     map[string]model.BackgroundJob
	leads    map[string]model.Lead // user_id|permalink
	runs     []model.RunRecord
	dueErr   error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]model.ProductProfile{},
		jobs:     map[string]model.BackgroundJob{},
		leads:    map[string]model.Lead{},
	}
}

func (m *memStore) GetProduct(_ context.Context, id string) (*model.ProductProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "mem: product %s", id)
	}
	return &p, nil
}

func (m *memStore) GetJob(_ context.Context, id string) (*model.BackgroundJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "mem: job %s", id)
	}
	return &j, nil
}

func (m *memStore) DueJobs(_ context.Context, now time.Time) ([]model.BackgroundJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	var out []model.BackgroundJob
	for _, j := range m.jobs {
		if j.Due(now) {
			out = append(out, j)
		}
	}
	// Stable order for assertions.
	for i := 1; i < len(out); i++ {
		for k := i; k > 0 && out[k].ID < out[k-1].ID; k-- {
			out[k], out[k-1] = out[k-1], out[k]
		}
	}
	return out, nil
}

func (m *memStore) RecordJobRun(_ context.Context, id string, u model.JobRunUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	j.Status = u.Status
	j.ErrorMessage = u.ErrorMessage
	if !u.LastRun.IsZero() {
		t := u.LastRun
		j.LastRun = &t
	}
	if u.NextRun != nil {
		j.NextRun = *u.NextRun
	}
	if u.IncrementRun {
		j.RunCount++
	}
	m.jobs[id] = j
	return nil
}

func (m *memStore) SaveRun(_ context.Context, rec *model.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *rec)
	return nil
}

func (m *memStore) LeadExists(_ context.Context, userID, permalink string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.leads[userID+"|"+permalink]
	return ok, nil
}

func (m *memStore) InsertLead(_ context.Context, l *model.Lead) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := l.UserID + "|" + l.Permalink
	if _, ok := m.leads[key]; ok {
		return false, nil
	}
	m.leads[key] = *l
	return true, nil
}

func (m *memStore) job(id string) model.BackgroundJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

// fakeRunner returns a canned result per product, or runs fn when set.
type fakeRunner struct {
	mu      sync.Mutex
	fn      func(req pipeline.Request) (*pipeline.Result, error)
	calls   []string
	results map[string]*pipeline.Result
}

func (r *fakeRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req.Profile.ID)
	fn := r.fn
	res := r.results[req.Profile.ID]
	r.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	if res == nil {
		res = &pipeline.Result{}
	}
	return res, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// denyLocker refuses every lease.
type denyLocker struct{}

func (denyLocker) Acquire(context.Context, string) (func(), bool, error) {
	return nil, false, nil
}

// brokenLocker fails every acquire.
type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context, string) (func(), bool, error) {
	return nil, false, eris.New("lease: redis down")
}

func accepted(ids ...string) []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.ScoredCandidate{
			Candidate: model.Candidate{
				ID:        id,
				Title:     "Looking for a tool " + id,
				Community: "saas",
				Permalink: "https://www.reddit.com/r/saas/comments/" + id + "/",
			},
			Relevant:       true,
			RelevanceScore: 8,
			ScoringSource:  model.ScoringAI,
		})
	}
	return out
}
