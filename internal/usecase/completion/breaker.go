package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// BreakerSettings configures the circuit breaker around the generative model.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32 // probes allowed in half-open state
	Interval    time.Duration
	OpenTimeout time.Duration
	// Trip when at least MinRequests were seen and the failure ratio reaches
	// FailureRatio, or after ConsecutiveFailures failures in a row.
	MinRequests         uint32
	FailureRatio        float64
	ConsecutiveFailures uint32
}

// BreakerCompleter short-circuits generation calls while the upstream is failing,
// so searches degrade immediately instead of waiting for the timeout each time.
type BreakerCompleter struct {
	inner domain.Completer
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerCompleter wraps inner with a gobreaker circuit breaker.
func NewBreakerCompleter(inner domain.Completer, s BreakerSettings, logger *zap.Logger) *BreakerCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.Name == "" {
		s.Name = "generation"
	}

	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if s.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= s.ConsecutiveFailures {
				return true
			}
			if counts.Requests < s.MinRequests || counts.Requests == 0 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return s.FailureRatio > 0 && ratio >= s.FailureRatio
		},
		// A caller that hangs up or a spent token budget is not evidence of an unhealthy upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrTokenBudgetExhausted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	metrics.BreakerState.WithLabelValues(s.Name).Set(float64(gobreaker.StateClosed))

	return &BreakerCompleter{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

// Complete implements domain.Completer.
func (b *BreakerCompleter) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.CompletionResult{}, fmt.Errorf("circuit %s: %w: %w", b.cb.Name(), domain.ErrGenerationUnavailable, err)
		}
		return domain.CompletionResult{}, err
	}
	return res.(domain.CompletionResult), nil
}

// State reports the current breaker state.
func (b *BreakerCompleter) State() gobreaker.State {
	return b.cb.State()
}
