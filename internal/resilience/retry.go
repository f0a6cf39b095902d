package resilience

import (
	"context"
	"time"
)

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	// MaxDelay caps the doubled delay between attempts. Zero keeps the delay constant.
	MaxDelay time.Duration
}

// Retry calls op until it succeeds, the attempts run out or ctx is done.
// onRetry, if set, sees every failed attempt that will be retried.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	delay := cfg.Delay
	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if cfg.MaxDelay > 0 {
			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}
	return err
}

// Policy combines retries with a circuit breaker. The whole retry sequence
// counts as a single call against the breaker.
type Policy struct {
	breaker *CircuitBreaker
	retry   RetryConfig
}

type PolicyConfig struct {
	Name          string
	MaxFailures   int
	OpenTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange StateChangeFunc
}

func NewPolicy(cfg PolicyConfig) *Policy {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Policy{
		breaker: NewCircuitBreaker(CircuitBreakerConfig{
			Name:          cfg.Name,
			MaxFailures:   cfg.MaxFailures,
			Timeout:       cfg.OpenTimeout,
			OnStateChange: cfg.OnStateChange,
		}),
		retry: RetryConfig{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, MaxDelay: 4 * cfg.RetryDelay},
	}
}

func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	return p.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return Retry(ctx, p.retry, op, onRetry)
	})
}

func (p *Policy) State() State {
	return p.breaker.State()
}

func (p *Policy) Reset() {
	p.breaker.Reset()
}
