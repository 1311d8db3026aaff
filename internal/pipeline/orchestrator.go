package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/credential"
	"github.com/sells-group/lead-radar/internal/dedup"
	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/relevance"
	"github.com/sells-group/lead-radar/internal/search"
	"github.com/sells-group/lead-radar/internal/terms"
)

// DefaultBudget is the wall-clock budget of one run.
const DefaultBudget = 50 * time.Second

// TermGenerator produces the keyword groups for a profile.
type TermGenerator interface {
	Generate(ctx context.Context, profile model.ProductProfile) (model.SearchTermSet, terms.Source)
}

// TokenSource resolves a bearer token for the content API.
type TokenSource interface {
	Token(ctx context.Context, userID string) (credential.Token, error)
}

// Searcher runs the term variants of one group in one community.
type Searcher interface {
	SearchTerms(ctx context.Context, token, community string, terms []string, limit int) search.Result
}

// RelevanceFilter judges the unique candidates of one group.
type RelevanceFilter interface {
	Filter(ctx context.Context, cands []model.Candidate, profile model.ProductProfile) relevance.Report
}

// Request is the input of one run.
type Request struct {
	Profile     model.ProductProfile
	Communities []string // defaults to Profile.TargetCommunities
	UserID      string   // defaults to Profile.UserID
}

// Result is the output of one run. Posts holds every scored candidate,
// Accepted the ones that passed the filter, ranked by score.
type Result struct {
	Terms          model.SearchTermSet
	TermSource     terms.Source
	CredentialTier credential.Tier
	Posts          []model.ScoredCandidate
	Accepted       []model.ScoredCandidate
	Groups         []model.GroupStats
	Skipped        []model.TermGroup
	BudgetExceeded bool
	Degraded       bool
	StartedAt      time.Time
	Elapsed        time.Duration
}

// Record summarizes r for persistence.
func (r *Result) Record(userID, productID string) model.RunRecord {
	return model.RunRecord{
		UserID:         userID,
		ProductID:      productID,
		StartedAt:      r.StartedAt,
		DurationMs:     r.Elapsed.Milliseconds(),
		TermSource:     string(r.TermSource),
		CredentialTier: string(r.CredentialTier),
		Posts:          len(r.Posts),
		Accepted:       len(r.Accepted),
		Degraded:       r.Degraded,
		BudgetExceeded: r.BudgetExceeded,
		Groups:         r.Groups,
	}
}

// Orchestrator sequences term generation, search, dedup and filtering for
// one product under a wall-clock budget.
type Orchestrator struct {
	terms    TermGenerator
	tokens   TokenSource
	searcher Searcher
	filter   RelevanceFilter
	budget   time.Duration
	limit    int
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBudget sets the wall-clock budget.
func WithBudget(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.budget = d
		}
	}
}

// WithResultLimit sets the per-query search result limit.
func WithResultLimit(n int) Option {
	return func(o *Orchestrator) { o.limit = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(tg TermGenerator, ts TokenSource, s Searcher, f RelevanceFilter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		terms:    tg,
		tokens:   ts,
		searcher: s,
		filter:   f,
		budget:   DefaultBudget,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one pipeline pass. Keyword groups are processed in generation
// order. The budget is checked before each group and before each community
// search within a group; once it is spent the remaining work is skipped and
// in-flight searches are cancelled at the deadline. Only a credential failure
// returns an error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	profile := req.Profile
	userID := req.UserID
	if userID == "" {
		userID = profile.UserID
	}
	communities := req.Communities
	if len(communities) == 0 {
		communities = profile.TargetCommunities
	}

	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("product_id", profile.ID),
		zap.String("user_id", userID),
	)

	start := o.now()
	deadline := start.Add(o.budget)
	res := &Result{StartedAt: start}
	defer func() {
		res.Elapsed = o.now().Sub(start)
		metrics.PipelineDuration.Observe(res.Elapsed.Seconds())
	}()

	res.Terms, res.TermSource = o.terms.Generate(ctx, profile)
	log.Info("pipeline: terms generated",
		zap.String("source", string(res.TermSource)),
		zap.Int("terms", res.Terms.Total()),
	)

	if len(communities) == 0 {
		log.Warn("pipeline: no target communities, nothing to search")
		return res, nil
	}

	tok, err := o.tokens.Token(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: acquire credentials")
	}
	res.CredentialTier = tok.Tier

	scopes := dedup.NewRegistry()
	allDegraded := true
	filtered := 0

	for _, g := range model.AllGroups {
		groupTerms := res.Terms.Terms(g)
		if len(groupTerms) == 0 {
			continue
		}

		if !o.now().Before(deadline) {
			res.BudgetExceeded = true
			res.Skipped = append(res.Skipped, g)
			continue
		}

		stats := o.runGroup(ctx, deadline, tok.Value, g, groupTerms, communities, profile, scopes, res, log)
		res.Groups = append(res.Groups, stats)
		if stats.Unique > 0 {
			filtered++
			allDegraded = allDegraded && stats.Degraded
		}
	}

	if len(res.Skipped) > 0 {
		metrics.GroupsSkipped.Add(float64(len(res.Skipped)))
		log.Warn("pipeline: budget exceeded, remaining groups skipped",
			zap.Duration("budget", o.budget),
			zap.Int("skipped", len(res.Skipped)),
		)
	}

	res.Degraded = filtered > 0 && allDegraded
	sort.SliceStable(res.Accepted, func(i, j int) bool {
		return res.Accepted[i].RelevanceScore > res.Accepted[j].RelevanceScore
	})

	log.Info("pipeline: run complete",
		zap.Int("groups", len(res.Groups)),
		zap.Int("posts", len(res.Posts)),
		zap.Int("accepted", len(res.Accepted)),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("elapsed", o.now().Sub(start)),
	)
	return res, nil
}

func (o *Orchestrator) runGroup(
	ctx context.Context,
	deadline time.Time,
	token string,
	g model.TermGroup,
	groupTerms []string,
	communities []string,
	profile model.ProductProfile,
	scopes *dedup.Registry,
	res *Result,
	log *zap.Logger,
) model.GroupStats {
	groupStart := o.now()
	stats := model.GroupStats{Group: g, Terms: len(groupTerms)}

	var raw []model.Candidate
	searched := 0
	for _, community := range communities {
		remaining := deadline.Sub(o.now())
		if remaining <= 0 {
			res.BudgetExceeded = true
			break
		}
		sr := o.search(ctx, remaining, token, community, groupTerms)
		searched++
		if sr.Status == search.StatusFailed {
			stats.SearchFailures++
		}
		for _, c := range sr.Candidates {
			c.Group = g
			raw = append(raw, c)
		}
	}
	stats.Raw = len(raw)
	if searched < len(communities) {
		log.Warn("pipeline: budget exceeded mid-group, remaining communities skipped",
			zap.String("group", string(g)),
			zap.Int("searched", searched),
			zap.Int("communities", len(communities)),
		)
	}

	unique := scopes.Dedupe(raw, string(g))
	stats.Unique = len(unique)

	if len(unique) > 0 {
		rep := o.filter.Filter(ctx, unique, profile)
		stats.Accepted = len(rep.Accepted)
		stats.BatchFailures = len(rep.Failures)
		stats.Degraded = rep.Degraded
		res.Posts = append(res.Posts, rep.Scored...)
		res.Accepted = append(res.Accepted, rep.Accepted...)
	}

	stats.DurationMs = o.now().Sub(groupStart).Milliseconds()
	log.Info("pipeline: group complete",
		zap.String("group", string(g)),
		zap.Int("raw", stats.Raw),
		zap.Int("unique", stats.Unique),
		zap.Int("accepted", stats.Accepted),
		zap.Int("search_failures", stats.SearchFailures),
		zap.Int("batch_failures", stats.BatchFailures),
	)
	return stats
}

// search runs one community search bounded by the remaining budget.
func (o *Orchestrator) search(ctx context.Context, remaining time.Duration, token, community string, groupTerms []string) search.Result {
	searchCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()
	return o.searcher.SearchTerms(searchCtx, token, community, groupTerms, o.limit)
}
