package evaluation

import (
	"time"

	"github.com/phrazzld/recall-api/internal/config"
)

// Config controls judgment retries and reconciliation.
type Config struct {
	// MaxAttempts is the number of judge calls made before a submission is
	// marked failed.
	MaxAttempts uint

	// InitialBackoff and MaxBackoff bound the exponential delay between attempts.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// AttemptTimeout limits a single judge call.
	AttemptTimeout time.Duration

	// ReconcileInterval is how often RunReconciler repairs missing commits.
	// Zero disables the periodic run.
	ReconcileInterval time.Duration

	// ReconcileBatch caps the submissions repaired per Reconcile call.
	ReconcileBatch int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		AttemptTimeout:    30 * time.Second,
		ReconcileInterval: 10 * time.Minute,
		ReconcileBatch:    100,
	}
}

// ConfigFrom converts application settings, keeping defaults for zero values.
func ConfigFrom(cfg config.EvaluationConfig) Config {
	out := DefaultConfig()
	if cfg.MaxAttempts > 0 {
		out.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff > 0 {
		out.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		out.MaxBackoff = cfg.MaxBackoff
	}
	if cfg.AttemptTimeout > 0 {
		out.AttemptTimeout = cfg.AttemptTimeout
	}
	out.ReconcileInterval = cfg.ReconcileInterval
	return out
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.ReconcileBatch <= 0 {
		c.ReconcileBatch = d.ReconcileBatch
	}
	return c
}
