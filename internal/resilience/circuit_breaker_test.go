package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errUpstream = errors.New("upstream down")

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        CircuitBreakerConfig
		setup         func(cb *CircuitBreaker)
		expectedState State
	}{
		{
			name:          "success stays closed",
			config:        CircuitBreakerConfig{MaxFailures: 3},
			setup:         func(cb *CircuitBreaker) { cb.Execute(succeed) },
			expectedState: StateClosed,
		},
		{
			name:   "opens after max failures",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
			setup: func(cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(fail)
				}
			},
			expectedState: StateOpen,
		},
		{
			name:   "success resets failure count",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
			setup: func(cb *CircuitBreaker) {
				cb.Execute(fail)
				cb.Execute(fail)
				cb.Execute(succeed)
				cb.Execute(fail)
				cb.Execute(fail)
			},
			expectedState: StateClosed,
		},
		{
			name:   "half-open after timeout",
			config: CircuitBreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond, HalfOpenMax: 2},
			setup: func(cb *CircuitBreaker) {
				cb.Execute(fail)
				time.Sleep(40 * time.Millisecond)
				cb.Execute(succeed)
			},
			expectedState: StateHalfOpen,
		},
		{
			name:   "closes after enough half-open successes",
			config: CircuitBreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond, HalfOpenMax: 2},
			setup: func(cb *CircuitBreaker) {
				cb.Execute(fail)
				time.Sleep(40 * time.Millisecond)
				cb.Execute(succeed)
				cb.Execute(succeed)
			},
			expectedState: StateClosed,
		},
		{
			name:   "half-open failure reopens",
			config: CircuitBreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond},
			setup: func(cb *CircuitBreaker) {
				cb.Execute(fail)
				time.Sleep(40 * time.Millisecond)
				cb.Execute(fail)
			},
			expectedState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker(tt.config)
			tt.setup(cb)
			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_RejectsWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute})
	cb.Execute(fail)

	var called bool
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_CancellationIsNotAFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})

	err := cb.ExecuteContext(context.Background(), func(context.Context) error { return context.Canceled })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_DeadlineIsAFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})

	err := cb.ExecuteContext(context.Background(), func(context.Context) error { return context.DeadlineExceeded })

	assert.ErrorIs(t, err, ErrCircuitTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	changes := make(chan State, 4)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "predictor",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "predictor", name)
			changes <- to
		},
	})

	cb.Execute(fail)

	select {
	case to := <-changes:
		assert.Equal(t, StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("state change callback not invoked")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute})
	cb.Execute(fail)
	cb.Reset()

	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(succeed))
}

func TestRetry(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), RetryConfig{Attempts: 3, Delay: time.Millisecond}, func(context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errUpstream
		}
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	var retried []int
	err := Retry(context.Background(), RetryConfig{Attempts: 2, Delay: time.Millisecond}, func(context.Context) error {
		return errUpstream
	}, func(attempt int, err error) {
		retried = append(retried, attempt)
	})

	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, []int{1}, retried)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int

	err := Retry(ctx, RetryConfig{Attempts: 5, Delay: time.Second}, func(context.Context) error {
		calls++
		cancel()
		return errUpstream
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicy_CountsRetriesAsOneFailure(t *testing.T) {
	p := NewPolicy(PolicyConfig{Name: "collector", MaxFailures: 2, OpenTimeout: time.Minute, RetryAttempts: 2, RetryDelay: time.Millisecond})
	op := func(context.Context) error { return errUpstream }

	assert.ErrorIs(t, p.Do(context.Background(), op, nil), errUpstream)
	assert.Equal(t, StateClosed, p.State())

	assert.ErrorIs(t, p.Do(context.Background(), op, nil), errUpstream)
	assert.Equal(t, StateOpen, p.State())

	assert.ErrorIs(t, p.Do(context.Background(), op, nil), ErrCircuitOpen)

	p.Reset()
	assert.Equal(t, StateClosed, p.State())
}
