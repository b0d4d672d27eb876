// Package completion holds decorators around the generative model:
// deadlines, usage accounting and a circuit breaker.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

// InstrumentedCompleter applies a per-call deadline, records generation tokens
// on the request usage collector and logs each call.
type InstrumentedCompleter struct {
	inner    domain.Completer
	provider string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInstrumentedCompleter wraps a completer. timeout <= 0 disables the deadline.
func NewInstrumentedCompleter(
	inner domain.Completer, provider, model string,
	timeout time.Duration, logger *zap.Logger,
) *InstrumentedCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedCompleter{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// Complete implements domain.Completer.
func (c *InstrumentedCompleter) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.inner.Complete(ctx, prompt)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("Generation request failed",
			zap.String("provider", c.provider),
			zap.String("model", c.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if !errors.Is(err, domain.ErrGenerationUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
		}
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}

	domain.UsageFromContext(ctx).AddGenerationTokens(result.PromptTokens + result.CompletionTokens)

	c.logger.Debug("Generation request completed",
		zap.String("provider", c.provider),
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.Int("response_chars", len(result.Text)),
	)

	return result, nil
}
