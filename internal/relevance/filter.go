// Package relevance judges candidates in batches with the AI provider and
// degrades explicitly when the provider is unavailable.
package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/extract"
	"github.com/sells-group/lead-radar/internal/llm"
	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/scorer"
	"github.com/sells-group/lead-radar/pkg/anthropic"
)

// Defaults.
const (
	DefaultBatchSize    = 10
	DefaultThreshold    = 7
	DefaultExcerptChars = 500
	DefaultBatchDelay   = 500 * time.Millisecond

	// PassthroughScore is the mid-range score given to every candidate when
	// all batches fail in passthrough mode.
	PassthroughScore = 5
)

// UnavailableReason annotates candidates admitted without AI judgement.
const UnavailableReason = "AI filtering unavailable"

// DegradeMode selects what happens when every batch fails.
type DegradeMode string

const (
	// DegradePassthrough returns every candidate with PassthroughScore.
	DegradePassthrough DegradeMode = "passthrough"
	// DegradeHeuristic scores every candidate with the fallback scorer.
	DegradeHeuristic DegradeMode = "heuristic"
)

// ParseDegradeMode maps a config value to a DegradeMode.
func ParseDegradeMode(s string) (DegradeMode, error) {
	switch DegradeMode(strings.ToLower(strings.TrimSpace(s))) {
	case DegradePassthrough, "":
		return DegradePassthrough, nil
	case DegradeHeuristic:
		return DegradeHeuristic, nil
	default:
		return "", eris.Errorf("relevance: unknown degrade mode %q", s)
	}
}

const judgePrompt = `You qualify Reddit posts as sales leads for a product.
For every post you are given, decide whether the author is plausibly a potential customer who
would welcome hearing about the product right now.

Respond with a JSON array and nothing else. Include one object per post:
{"index": <post index>, "relevant": <true|false>, "score": <1-10>, "reason": "<one line>", "reply": "<short helpful reply, or empty>"}

Scoring: 9-10 explicit request for this kind of product; 7-8 clear pain the product solves;
4-6 loosely related; 1-3 unrelated, self-promotion, or news.`

// BatchFailure records one failed judge call.
type BatchFailure struct {
	Batch        int      `json:"batch"`
	Kind         string   `json:"kind"`
	Error        string   `json:"error"`
	CandidateIDs []string `json:"candidate_ids"`
}

// Report is the outcome of one Filter call.
type Report struct {
	// Scored holds every candidate that received a judgement, in input order.
	Scored []model.ScoredCandidate
	// Accepted is the subset of Scored that passed the acceptance rule.
	Accepted []model.ScoredCandidate

	Batches  int
	Failures []BatchFailure
	Degraded bool
	Mode     DegradeMode
}

// Filter batches candidates through the relevance judge.
type Filter struct {
	completer *llm.Completer
	batchSize int
	delay     time.Duration
	threshold int
	excerpt   int
	mode      DegradeMode
	weights   scorer.Weights
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Filter.
type Option func(*Filter)

// WithBatchSize sets the candidates per judge call.
func WithBatchSize(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between judge calls.
func WithBatchDelay(d time.Duration) Option {
	return func(f *Filter) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithThreshold sets the minimum accepted score.
func WithThreshold(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.threshold = n
		}
	}
}

// WithExcerptChars sets the body truncation length sent to the judge.
func WithExcerptChars(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.excerpt = n
		}
	}
}

// WithDegradeMode sets the total-failure behavior.
func WithDegradeMode(m DegradeMode) Option {
	return func(f *Filter) { f.mode = m }
}

// WithWeights sets the fallback scorer weights.
func WithWeights(w scorer.Weights) Option {
	return func(f *Filter) { f.weights = w }
}

// WithClock overrides time.Now for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

// NewFilter creates a Filter.
func NewFilter(completer *llm.Completer, opts ...Option) *Filter {
	f := &Filter{
		completer: completer,
		batchSize: DefaultBatchSize,
		delay:     DefaultBatchDelay,
		threshold: DefaultThreshold,
		excerpt:   DefaultExcerptChars,
		mode:      DegradePassthrough,
		weights:   scorer.DefaultWeights(),
		now:       time.Now,
		sleep:     sleepCtx,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Threshold returns the acceptance threshold.
func (f *Filter) Threshold() int { return f.threshold }

// Mode returns the configured degrade mode.
func (f *Filter) Mode() DegradeMode { return f.mode }

// Accept reports whether a judged candidate passes: the relevance flag must
// be set and the score must reach the threshold.
func (f *Filter) Accept(relevant bool, score int) bool {
	return relevant && score >= f.threshold
}

type verdict struct {
	Index    int    `json:"index"`
	Relevant bool   `json:"relevant"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
	Reply    string `json:"reply"`
}

type promptPost struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Community string `json:"community"`
	Score     int    `json:"score"`
	Comments  int    `json:"comments"`
}

// Filter judges cands for profile. A failed batch drops its candidates; if
// every batch fails the configured degrade mode decides the output.
func (f *Filter) Filter(ctx context.Context, cands []model.Candidate, profile model.ProductProfile) Report {
	rep := Report{Mode: f.mode}
	if len(cands) == 0 {
		return rep
	}
	log := zap.L().With(zap.String("component", "relevance"), zap.String("product_id", profile.ID))

	batches := chunk(cands, f.batchSize)
	rep.Batches = len(batches)

	if !f.completer.Available() {
		for i, b := range batches {
			rep.Failures = append(rep.Failures, failure(i, llm.KindProviderError, llm.ErrUnavailable, b))
		}
		return f.degrade(cands, profile, rep, log)
	}

	system := anthropic.CachedSystem(judgePrompt + "\n\nProduct:\n" + describe(profile))

	for i, b := range batches {
		if i > 0 && f.delay > 0 {
			if err := f.sleep(ctx, f.delay); err != nil {
				for j := i; j < len(batches); j++ {
					rep.Failures = append(rep.Failures, failure(j, llm.KindProviderError, err, batches[j]))
					metrics.RelevanceBatches.WithLabelValues("failed").Inc()
				}
				break
			}
		}

		res := llm.Decode(ctx, f.completer, llm.Prompt{
			Phase:  "relevance",
			System: system,
			User:   f.batchPrompt(b),
		}, func(v []verdict) error { return validate(v, len(b)) })

		if !res.Ok() {
			metrics.RelevanceBatches.WithLabelValues("failed").Inc()
			log.Warn("relevance: batch failed, excluding its candidates",
				zap.Int("batch", i),
				zap.Int("size", len(b)),
				zap.String("kind", res.Kind.String()),
				zap.Error(res.Err),
			)
			rep.Failures = append(rep.Failures, failure(i, res.Kind, res.Err, b))
			continue
		}
		metrics.RelevanceBatches.WithLabelValues("ok").Inc()

		byIndex := make(map[int]verdict, len(res.Value))
		for _, v := range res.Value {
			if _, dup := byIndex[v.Index]; !dup {
				byIndex[v.Index] = v
			}
		}
		for idx, c := range b {
			v, ok := byIndex[idx]
			if !ok {
				continue
			}
			sc, _ := f.annotate(c, profile)
			sc.Relevant = v.Relevant
			sc.RelevanceScore = clampScore(v.Score)
			sc.Reasoning = strings.TrimSpace(v.Reason)
			sc.ScoringSource = model.ScoringAI
			if f.Accept(sc.Relevant, sc.RelevanceScore) {
				sc.SuggestedReply = strings.TrimSpace(v.Reply)
				rep.Accepted = append(rep.Accepted, sc)
			}
			rep.Scored = append(rep.Scored, sc)
		}
	}

	if len(rep.Failures) == rep.Batches {
		return f.degrade(cands, profile, rep, log)
	}

	log.Info("relevance: filter complete",
		zap.Int("candidates", len(cands)),
		zap.Int("batches", rep.Batches),
		zap.Int("failed_batches", len(rep.Failures)),
		zap.Int("accepted", len(rep.Accepted)),
	)
	return rep
}

func (f *Filter) degrade(cands []model.Candidate, profile model.ProductProfile, rep Report, log *zap.Logger) Report {
	rep.Degraded = true
	rep.Scored = make([]model.ScoredCandidate, 0, len(cands))
	rep.Accepted = nil
	metrics.DegradedFilters.WithLabelValues(string(f.mode)).Inc()

	for _, c := range cands {
		sc, reasons := f.annotate(c, profile)
		sc.Degraded = true
		switch f.mode {
		case DegradeHeuristic:
			sc.ScoringSource = model.ScoringHeuristic
			sc.RelevanceScore = sc.QualityScore
			sc.Relevant = sc.QualityScore >= f.threshold
			sc.Reasoning = strings.Join(append([]string{UnavailableReason}, reasons...), "; ")
			if sc.Relevant {
				rep.Accepted = append(rep.Accepted, sc)
			}
		default:
			sc.ScoringSource = model.ScoringPassthrough
			sc.RelevanceScore = PassthroughScore
			sc.Relevant = true
			sc.Reasoning = UnavailableReason
		}
		rep.Scored = append(rep.Scored, sc)
	}

	log.Warn("relevance: every batch failed, degrading",
		zap.String("mode", string(f.mode)),
		zap.Int("candidates", len(cands)),
		zap.Int("accepted", len(rep.Accepted)),
	)
	return rep
}

// annotate attaches the fallback quality score and confidence.
func (f *Filter) annotate(c model.Candidate, profile model.ProductProfile) (model.ScoredCandidate, []string) {
	q := scorer.ScoreWith(f.weights, c, profile, f.now())
	return model.ScoredCandidate{
		Candidate:    c,
		QualityScore: q.Score,
		Confidence:   q.Confidence,
	}, q.Reasons
}

func (f *Filter) batchPrompt(b []model.Candidate) string {
	posts := make([]promptPost, len(b))
	for i, c := range b {
		posts[i] = promptPost{
			Index:     i,
			Title:     c.Title,
			Body:      extract.Truncate(c.Body, f.excerpt),
			Community: c.Community,
			Score:     c.Score,
			Comments:  c.NumComments,
		}
	}
	data, _ := json.Marshal(posts)
	return fmt.Sprintf("Judge these %d posts:\n%s", len(b), data)
}

func validate(v []verdict, n int) error {
	valid := 0
	for _, x := range v {
		if x.Index >= 0 && x.Index < n {
			valid++
		}
	}
	if valid == 0 {
		return eris.Errorf("relevance: no verdicts for %d posts", n)
	}
	return nil
}

func describe(p model.ProductProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	if len(p.Features) > 0 {
		fmt.Fprintf(&b, "Features: %s\n", strings.Join(p.Features, "; "))
	}
	if len(p.Benefits) > 0 {
		fmt.Fprintf(&b, "Benefits: %s\n", strings.Join(p.Benefits, "; "))
	}
	if len(p.PainPoints) > 0 {
		fmt.Fprintf(&b, "Pain points: %s\n", strings.Join(p.PainPoints, "; "))
	}
	if p.IdealCustomer != "" {
		fmt.Fprintf(&b, "Ideal customer: %s\n", p.IdealCustomer)
	}
	return b.String()
}

func failure(batch int, kind llm.Kind, err error, b []model.Candidate) BatchFailure {
	ids := make([]string, len(b))
	for i, c := range b {
		ids[i] = c.ID
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return BatchFailure{Batch: batch, Kind: kind.String(), Error: msg, CandidateIDs: ids}
}

func chunk(cands []model.Candidate, size int) [][]model.Candidate {
	var out [][]model.Candidate
	for start := 0; start < len(cands); start += size {
		end := start + size
		if end > len(cands) {
			end = len(cands)
		}
		out = append(out, cands[start:end])
	}
	return out
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
