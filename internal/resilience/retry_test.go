package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sells-group/lead-radar/internal/config"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls, retries int
	cfg := fastRetry(3)
	cfg.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if retries != 2 {
		t.Errorf("expected 2 retry callbacks, got %d", retries)
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		return errors.New("invalid_grant")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second}

	var calls int
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("temporary"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancel, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	v, err := DoVal(context.Background(), fastRetry(2), func(_ context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewTransientError(errors.New("temporary"), 429)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestBackoff_CappedAndNonNegative(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}.withDefaults()
	cfg.JitterFraction = 0

	if got := cfg.backoff(0); got != 100*time.Millisecond {
		t.Errorf("attempt 0: expected 100ms, got %s", got)
	}
	if got := cfg.backoff(5); got != 300*time.Millisecond {
		t.Errorf("attempt 5: expected cap of 300ms, got %s", got)
	}
}

func TestFromConfig(t *testing.T) {
	rc := RetryFromConfig(config.ResilienceConfig{RetryMaxAttempts: 4, RetryInitialBackoffMs: 10})
	if rc.MaxAttempts != 4 || rc.InitialBackoff != 10*time.Millisecond {
		t.Errorf("unexpected retry config %+v", rc)
	}
	if rc.MaxBackoff != DefaultRetryConfig().MaxBackoff {
		t.Errorf("expected default max backoff, got %s", rc.MaxBackoff)
	}

	cc := CircuitFromConfig("anthropic", config.ResilienceConfig{CircuitFailureThreshold: 2, CircuitResetSecs: 5})
	if cc.Name != "anthropic" || cc.FailureThreshold != 2 || cc.ResetTimeout != 5*time.Second {
		t.Errorf("unexpected circuit config %+v", cc)
	}
}
