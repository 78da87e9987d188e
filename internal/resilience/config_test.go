package resilience

import (
	"testing"
	"time"

	"github.com/sells-group/autolink/internal/config"
)

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(config.RetryConfig{
		MaxAttempts:      5,
		InitialBackoffMs: 250,
		MaxBackoffMs:     4000,
		Multiplier:       3,
		JitterFraction:   0.1,
	})
	if cfg.MaxAttempts != 5 || cfg.InitialBackoff != 250*time.Millisecond ||
		cfg.MaxBackoff != 4*time.Second || cfg.Multiplier != 3 || cfg.JitterFraction != 0.1 {
		t.Errorf("unexpected retry config %+v", cfg)
	}
}

func TestFromRetryConfig_ZeroKeepsDefaults(t *testing.T) {
	cfg := FromRetryConfig(config.RetryConfig{})
	def := DefaultRetryConfig()
	if cfg.MaxAttempts != def.MaxAttempts || cfg.InitialBackoff != def.InitialBackoff {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestFromCircuitConfig(t *testing.T) {
	cfg := FromCircuitConfig(config.CircuitConfig{FailureThreshold: 2, ResetTimeoutSecs: 7})
	if cfg.FailureThreshold != 2 || cfg.ResetTimeout != 7*time.Second {
		t.Errorf("unexpected circuit config %+v", cfg)
	}
	if def := FromCircuitConfig(config.CircuitConfig{}); def.FailureThreshold != 5 {
		t.Errorf("expected default threshold, got %d", def.FailureThreshold)
	}
}
