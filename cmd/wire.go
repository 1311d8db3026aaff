package main

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/credential"
	"github.com/sells-group/lead-radar/internal/llm"
	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/pipeline"
	"github.com/sells-group/lead-radar/internal/relevance"
	"github.com/sells-group/lead-radar/internal/resilience"
	"github.com/sells-group/lead-radar/internal/search"
	"github.com/sells-group/lead-radar/internal/store"
	"github.com/sells-group/lead-radar/internal/terms"
	anthropicpkg "github.com/sells-group/lead-radar/pkg/anthropic"
	"github.com/sells-group/lead-radar/pkg/reddit"
)

// initStore opens and migrates the configured store. Callers close it.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newCompleter builds the Claude completer behind a circuit breaker. Without
// an API key the completer reports unavailable and callers degrade.
func newCompleter() *llm.Completer {
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("anthropic key not set, term generation and relevance filtering will degrade")
		return llm.NewCompleter(nil, cfg.Anthropic.Model)
	}

	cbCfg := resilience.CircuitFromConfig("anthropic", cfg.Resilience)
	cbCfg.OnStateChange = func(name string, _, to resilience.CircuitState) {
		metrics.CircuitState.WithLabelValues(name).Set(float64(to))
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key,
		option.WithRequestTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second))

	return llm.NewCompleter(client, cfg.Anthropic.Model,
		llm.WithBreaker(resilience.NewCircuitBreaker(cbCfg)),
		llm.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second),
		llm.WithMaxTokens(cfg.Anthropic.MaxTokens),
	)
}

func newRedditClient() reddit.Client {
	return reddit.NewClient(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret,
		reddit.WithBaseURL(cfg.Reddit.BaseURL),
		reddit.WithAuthURL(cfg.Reddit.AuthURL),
		reddit.WithUserAgent(cfg.Reddit.UserAgent),
	)
}

// newOrchestrator wires the pipeline. degrade overrides the configured
// degrade mode when non-empty.
func newOrchestrator(st store.CredentialStore, degrade string) (*pipeline.Orchestrator, error) {
	if degrade == "" {
		degrade = cfg.Pipeline.DegradeMode
	}
	mode, err := relevance.ParseDegradeMode(degrade)
	if err != nil {
		return nil, err
	}

	completer := newCompleter()
	rc := newRedditClient()

	tokens := credential.NewProvider(rc, st,
		credential.WithRefreshMargin(time.Duration(cfg.Reddit.RefreshMarginSecs)*time.Second),
		credential.WithRetry(resilience.RetryFromConfig(cfg.Resilience)),
	)

	searcher := search.NewSearcher(rc,
		search.WithTimeout(time.Duration(cfg.Reddit.TimeoutSecs)*time.Second),
		search.WithRateLimit(cfg.Reddit.RateLimit),
		search.WithMaxTerms(cfg.Reddit.MaxTermsPerCommunity),
		search.WithResultLimit(cfg.Reddit.ResultLimit),
	)

	filter := relevance.NewFilter(completer,
		relevance.WithBatchSize(cfg.Pipeline.BatchSize),
		relevance.WithBatchDelay(time.Duration(cfg.Pipeline.BatchDelayMs)*time.Millisecond),
		relevance.WithThreshold(cfg.Pipeline.AcceptanceThreshold),
		relevance.WithExcerptChars(cfg.Pipeline.BodyExcerptChars),
		relevance.WithDegradeMode(mode),
	)

	return pipeline.NewOrchestrator(terms.NewGenerator(completer), tokens, searcher, filter,
		pipeline.WithBudget(time.Duration(cfg.Pipeline.BudgetSecs)*time.Second),
		pipeline.WithResultLimit(cfg.Reddit.ResultLimit),
	), nil
}
