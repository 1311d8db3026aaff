// Package search runs keyword searches against the content API and maps the
// returned posts into pipeline candidates.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-radar/internal/extract"
	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/reddit"
)

// Defaults used when no option overrides them.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxTerms    = 3
	DefaultResultLimit = 25
)

// Status distinguishes an empty search from a failed one. Both are
// non-fatal to the pipeline.
type Status string

// Search outcomes.
const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Result is the outcome of one or more searches in a community.
type Result struct {
	Candidates []model.Candidate
	Status     Status
	Err        error
	Calls      int
	Failures   int
}

// Searcher executes rate-limited, time-boxed searches.
type Searcher struct {
	client   reddit.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	maxTerms int
	limit    int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithTimeout sets the hard per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRateLimit sets the request rate in calls per second. A non-positive
// value disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(s *Searcher) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithMaxTerms caps how many term variants are tried per community.
func WithMaxTerms(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxTerms = n
		}
	}
}

// WithResultLimit sets the default per-query result limit.
func WithResultLimit(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSearcher creates a Searcher over the content API client.
func NewSearcher(client reddit.Client, opts ...Option) *Searcher {
	s := &Searcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		timeout:  DefaultTimeout,
		maxTerms: DefaultMaxTerms,
		limit:    DefaultResultLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxTerms returns the per-community term cap.
func (s *Searcher) MaxTerms() int { return s.maxTerms }

// Search runs a single query in community.
func (s *Searcher) Search(ctx context.Context, token, community, query string) Result {
	return s.search(ctx, token, community, query, s.limit)
}

// SearchTerms tries up to MaxTerms of terms in community and concatenates the
// candidates in term order. It stops before the next term once ctx is done.
// The result is failed only when every call failed.
func (s *Searcher) SearchTerms(ctx context.Context, token, community string, terms []string, limit int) Result {
	if limit <= 0 {
		limit = s.limit
	}
	if len(terms) > s.maxTerms {
		terms = terms[:s.maxTerms]
	}

	var out Result
	for _, term := range terms {
		if ctx.Err() != nil {
			break
		}
		r := s.search(ctx, token, community, term, limit)
		out.Calls++
		out.Candidates = append(out.Candidates, r.Candidates...)
		if r.Status == StatusFailed {
			out.Failures++
			out.Err = r.Err
		}
	}

	switch {
	case len(out.Candidates) > 0:
		out.Status = StatusOK
	case out.Calls > 0 && out.Failures == out.Calls:
		out.Status = StatusFailed
	default:
		out.Status = StatusEmpty
	}
	return out
}

func (s *Searcher) search(ctx context.Context, token, community, query string, limit int) Result {
	log := zap.L().With(
		zap.String("component", "search"),
		zap.String("community", community),
		zap.String("query", query),
	)

	if err := s.limiter.Wait(ctx); err != nil {
		return s.failed(log, eris.Wrap(err, "search: rate limiter"))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.client.Search(callCtx, token, community, query, limit)
	if err != nil {
		return s.failed(log, err)
	}
	if len(posts) == 0 {
		metrics.SearchCalls.WithLabelValues(string(StatusEmpty)).Inc()
		log.Debug("search: no results")
		return Result{Status: StatusEmpty, Calls: 1}
	}

	cands := make([]model.Candidate, 0, len(posts))
	for _, p := range posts {
		cands = append(cands, toCandidate(p, community, query))
	}
	metrics.SearchCalls.WithLabelValues(string(StatusOK)).Inc()
	log.Debug("search: results", zap.Int("count", len(cands)))
	return Result{Candidates: cands, Status: StatusOK, Calls: 1}
}

func (s *Searcher) failed(log *zap.Logger, err error) Result {
	metrics.SearchCalls.WithLabelValues(string(StatusFailed)).Inc()
	log.Warn("search: call failed", zap.Error(err))
	return Result{Status: StatusFailed, Err: err, Calls: 1, Failures: 1}
}

func toCandidate(p reddit.Post, community, term string) model.Candidate {
	sub := p.Subreddit
	if sub == "" {
		sub = community
	}
	return model.Candidate{
		ID:          p.ID,
		Title:       strings.TrimSpace(p.Title),
		Body:        extract.Text(p.SelfText),
		Community:   sub,
		Author:      p.Author,
		Score:       p.Score,
		NumComments: p.NumComments,
		CreatedAt:   p.CreatedAt,
		Permalink:   p.Permalink,
		URL:         p.URL,
		IsSelf:      p.IsSelf,
		Term:        term,
	}
}
