package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func tripBreaker(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("fail")
		})
	}
}

func TestCircuitBreaker_ClosedState_PassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	var calls int
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	tripBreaker(cb, 3)

	if cb.State() != CircuitOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	tripBreaker(cb, 2)
	if cb.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", cb.Failures())
	}

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return nil })
	if cb.Failures() != 0 {
		t.Errorf("expected 0 failures after success, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenProbeCloses(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: 100 * time.Millisecond})
	cb.nowFunc = func() time.Time { return now }
	tripBreaker(cb, 2)

	cb.nowFunc = func() time.Time { return now.Add(200 * time.Millisecond) }
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open state, got %s", cb.State())
	}

	if err := cb.Execute(context.Background(), func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state after probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: 100 * time.Millisecond})
	cb.nowFunc = func() time.Time { return now }
	tripBreaker(cb, 2)

	later := now.Add(200 * time.Millisecond)
	cb.nowFunc = func() time.Time { return later }
	tripBreaker(cb, 1)

	if cb.State() != CircuitOpen {
		t.Errorf("expected open state after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	type change struct {
		name     string
		from, to CircuitState
	}
	var changes []change
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "anthropic",
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(name string, from, to CircuitState) {
			changes = append(changes, change{name, from, to})
		},
	})
	tripBreaker(cb, 3)

	if len(changes) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(changes))
	}
	if changes[0] != (change{"anthropic", CircuitClosed, CircuitOpen}) {
		t.Errorf("unexpected transition %+v", changes[0])
	}

	cb.Reset()
	if len(changes) != 2 || changes[1].to != CircuitClosed {
		t.Errorf("expected reset to record open->closed, got %+v", changes)
	}
}

func TestCircuitBreaker_ShouldTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip: func(err error) bool {
			return err != nil && IsTransient(err)
		},
	})

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return errors.New("bad request")
	})
	if cb.State() != CircuitClosed {
		t.Fatalf("non-transient error should not trip, got %s", cb.State())
	}

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return NewTransientError(errors.New("overloaded"), 529)
	})
	if cb.State() != CircuitOpen {
		t.Errorf("transient error should trip, got %s", cb.State())
	}
}

func TestExecuteVal_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("expected ok, got %q, %v", v, err)
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(42): "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
