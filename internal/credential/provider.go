// Package credential resolves bearer tokens for the content API using the
// user OAuth token first and the application client-credentials token second.
package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/resilience"
	"github.com/sells-group/lead-radar/pkg/reddit"
)

// DefaultRefreshMargin is how close to expiry a token is refreshed.
const DefaultRefreshMargin = 5 * time.Minute

// ErrNoCredentials is returned when neither tier can be used.
var ErrNoCredentials = eris.New("credential: no credentials configured")

// Tier identifies which credential produced a token.
type Tier string

const (
	// TierUser is the user-scoped OAuth token.
	TierUser Tier = "user"
	// TierApp is the application client-credentials token.
	TierApp Tier = "app"
)

// Token is a resolved bearer token.
type Token struct {
	Value     string
	Tier      Tier
	ExpiresAt time.Time
}

// Store reads and writes per-user OAuth credentials. GetCredential returns
// nil, nil when the user has none.
type Store interface {
	GetCredential(ctx context.Context, userID string) (*model.Credential, error)
	SaveCredential(ctx context.Context, cred model.Credential) error
}

// Provider hands out tokens, refreshing them proactively.
type Provider struct {
	client  reddit.Client
	store   Store
	margin  time.Duration
	timeout time.Duration
	retry   resilience.RetryConfig
	now     func() time.Time

	mu  sync.Mutex
	app *reddit.Token
}

// Option configures a Provider.
type Option func(*Provider)

// WithRefreshMargin sets how close to expiry tokens are refreshed.
func WithRefreshMargin(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.margin = d
		}
	}
}

// WithRefreshTimeout bounds each refresh attempt.
func WithRefreshTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetry sets the refresh retry policy.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(p *Provider) { p.retry = rc }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a Provider. store may be nil, in which case only the
// application tier is used.
func NewProvider(client reddit.Client, store Store, opts ...Option) *Provider {
	p := &Provider{
		client:  client,
		store:   store,
		margin:  DefaultRefreshMargin,
		timeout: 15 * time.Second,
		retry:   resilience.DefaultRetryConfig(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Token returns a usable bearer token for userID. A failed refresh is
// returned as a transient error so callers retry on their next cycle.
func (p *Provider) Token(ctx context.Context, userID string) (Token, error) {
	if p.client == nil {
		return Token{}, ErrNoCredentials
	}
	log := zap.L().With(zap.String("component", "credential"), zap.String("user_id", userID))

	if userID != "" && p.store != nil {
		tok, ok, err := p.userToken(ctx, userID, log)
		if err != nil {
			return Token{}, err
		}
		if ok {
			return tok, nil
		}
	}
	return p.appToken(ctx)
}

// userToken returns ok=false when the caller should fall back to the app tier.
func (p *Provider) userToken(ctx context.Context, userID string, log *zap.Logger) (Token, bool, error) {
	cred, err := p.store.GetCredential(ctx, userID)
	if err != nil {
		log.Warn("credential: read user credential failed, using app token", zap.Error(err))
		return Token{}, false, nil
	}
	if cred == nil || cred.AccessToken == "" {
		return Token{}, false, nil
	}

	now := p.now()
	if now.Add(p.margin).Before(cred.ExpiresAt) {
		return Token{Value: cred.AccessToken, Tier: TierUser, ExpiresAt: cred.ExpiresAt}, true, nil
	}

	if cred.RefreshToken == "" {
		if now.Before(cred.ExpiresAt) {
			return Token{Value: cred.AccessToken, Tier: TierUser, ExpiresAt: cred.ExpiresAt}, true, nil
		}
		log.Info("credential: user token expired without refresh token, using app token")
		return Token{}, false, nil
	}

	fresh, err := p.refresh(ctx, string(TierUser), func(ctx context.Context) (*reddit.Token, error) {
		return p.client.Refresh(ctx, cred.RefreshToken)
	})
	if err != nil {
		return Token{}, false, eris.Wrap(err, "credential: refresh user token")
	}

	updated := model.Credential{
		UserID:       userID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		ExpiresAt:    fresh.ExpiresAt,
		UpdatedAt:    now.UTC(),
	}
	if err := p.store.SaveCredential(ctx, updated); err != nil {
		log.Warn("credential: write back refreshed token failed", zap.Error(err))
	}
	return Token{Value: fresh.AccessToken, Tier: TierUser, ExpiresAt: fresh.ExpiresAt}, true, nil
}

func (p *Provider) appToken(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.app != nil && p.now().Add(p.margin).Before(p.app.ExpiresAt) {
		return Token{Value: p.app.AccessToken, Tier: TierApp, ExpiresAt: p.app.ExpiresAt}, nil
	}

	fresh, err := p.refresh(ctx, string(TierApp), p.client.ClientCredentials)
	if err != nil {
		return Token{}, eris.Wrap(err, "credential: app token")
	}
	p.app = fresh
	return Token{Value: fresh.AccessToken, Tier: TierApp, ExpiresAt: fresh.ExpiresAt}, nil
}

// refresh runs fn with bounded attempts, each under its own timeout. The
// returned error is always transient.
func (p *Provider) refresh(ctx context.Context, tier string, fn func(context.Context) (*reddit.Token, error)) (*reddit.Token, error) {
	rc := p.retry
	rc.OnRetry = resilience.RetryLogger("reddit", tier+"_token_refresh")

	tok, err := resilience.DoVal(ctx, rc, func(ctx context.Context) (*reddit.Token, error) {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		tok, err := fn(ctx)
		return tok, classify(err)
	})
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(tier, "failed").Inc()
		var te *resilience.TransientError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, resilience.NewTransientError(err, 0)
	}
	metrics.TokenRefreshes.WithLabelValues(tier, "ok").Inc()
	return tok, nil
}

// classify marks retryable HTTP statuses as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *reddit.StatusError
	if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
		return resilience.NewTransientError(err, se.StatusCode)
	}
	return err
}
