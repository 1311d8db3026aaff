package resilience

import (
	"time"

	"github.com/sells-group/lead-radar/internal/config"
)

// RetryFromConfig builds a RetryConfig from the resilience settings,
// keeping defaults for unset values.
func RetryFromConfig(cfg config.ResilienceConfig) RetryConfig {
	rc := DefaultRetryConfig()
	if cfg.RetryMaxAttempts > 0 {
		rc.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoffMs > 0 {
		rc.InitialBackoff = time.Duration(cfg.RetryInitialBackoffMs) * time.Millisecond
	}
	if cfg.RetryMaxBackoffMs > 0 {
		rc.MaxBackoff = time.Duration(cfg.RetryMaxBackoffMs) * time.Millisecond
	}
	if cfg.RetryMultiplier > 0 {
		rc.Multiplier = cfg.RetryMultiplier
	}
	if cfg.RetryJitterFraction >= 0 {
		rc.JitterFraction = cfg.RetryJitterFraction
	}
	return rc
}

// CircuitFromConfig builds a named CircuitBreakerConfig from the resilience settings.
func CircuitFromConfig(name string, cfg config.ResilienceConfig) CircuitBreakerConfig {
	cc := DefaultCircuitBreakerConfig()
	cc.Name = name
	if cfg.CircuitFailureThreshold > 0 {
		cc.FailureThreshold = cfg.CircuitFailureThreshold
	}
	if cfg.CircuitResetSecs > 0 {
		cc.ResetTimeout = time.Duration(cfg.CircuitResetSecs) * time.Second
	}
	return cc
}
