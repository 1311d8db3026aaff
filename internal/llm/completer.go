// Package llm adapts the Anthropic client for the pipeline's structured
// prompts: timeouts, a circuit breaker, and tagged decode results.
package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/resilience"
	"github.com/sells-group/lead-radar/pkg/anthropic"
)

// ErrUnavailable is returned when no API client is configured.
var ErrUnavailable = eris.New("llm: no client configured")

// Prompt is one structured completion request.
type Prompt struct {
	Phase  string // term_generation, relevance, ...
	System []anthropic.SystemBlock
	User   string
}

// Completer runs prompts against the AI provider.
type Completer struct {
	client    anthropic.Client
	breaker   *resilience.CircuitBreaker
	model     string
	maxTokens int64
	timeout   time.Duration
}

// Option configures a Completer.
type Option func(*Completer)

// WithBreaker guards calls with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Completer) { c.breaker = cb }
}

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Completer) { c.timeout = d }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int64) Option {
	return func(c *Completer) { c.maxTokens = n }
}

// NewCompleter creates a Completer. A nil client makes every call fail with
// ErrUnavailable so callers take their fallback path without a network call.
func NewCompleter(client anthropic.Client, model string, opts ...Option) *Completer {
	c := &Completer{
		client:    client,
		model:     model,
		maxTokens: 2048,
		timeout:   20 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Available reports whether a client is configured.
func (c *Completer) Available() bool {
	return c != nil && c.client != nil
}

// Complete sends the prompt and returns the concatenated response text.
func (c *Completer) Complete(ctx context.Context, p Prompt) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			System:    p.System,
			Messages:  []anthropic.Message{{Role: "user", Content: p.User}},
		})
		if err != nil {
			if code := anthropic.StatusCode(err); code == 529 || resilience.IsTransientHTTPStatus(code) {
				return nil, resilience.NewTransientError(err, code)
			}
			return nil, err
		}
		return resp, nil
	}

	var resp *anthropic.MessageResponse
	var err error
	if c.breaker != nil {
		resp, err = resilience.ExecuteVal(ctx, c.breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s", p.Phase)
	}

	resp.Usage.LogCost(c.model, p.Phase)
	return resp.Text(), nil
}

// Decode completes the prompt and unmarshals the JSON payload into T. The
// validate hook may reject structurally valid but incomplete payloads; a
// rejection is reported as a ParseError.
func Decode[T any](ctx context.Context, c *Completer, p Prompt, validate func(T) error) Result[T] {
	text, err := c.Complete(ctx, p)
	if err != nil {
		return record(p.Phase, ProviderFailure[T](err))
	}

	var v T
	if err := UnmarshalLoose(text, &v); err != nil {
		zap.L().Debug("llm: unparseable response",
			zap.String("phase", p.Phase),
			zap.Int("length", len(text)),
		)
		return record(p.Phase, ParseFailure[T](err))
	}
	if validate != nil {
		if err := validate(v); err != nil {
			return record(p.Phase, ParseFailure[T](eris.Wrapf(err, "llm: %s: invalid payload", p.Phase)))
		}
	}
	return record(p.Phase, OK(v))
}

func record[T any](phase string, r Result[T]) Result[T] {
	metrics.AICalls.WithLabelValues(phase, r.Kind.String()).Inc()
	return r
}
