package budget

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

// Embedder refuses calls once the tracker's budget is spent and records the
// tokens of every successful call. Calls whose provider reports no usage are
// charged an estimate from the input length.
type Embedder struct {
	inner   domain.Embedder
	tracker *Tracker
}

// NewEmbedder wraps inner. A nil tracker returns inner unchanged.
func NewEmbedder(inner domain.Embedder, t *Tracker) domain.Embedder {
	if t == nil {
		return inner
	}
	return &Embedder{inner: inner, tracker: t}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := e.tracker.Check(ctx); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("budget check: %w", err)
	}
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("budgeted embed: %w", err)
	}
	tokens := res.TotalTokens
	if tokens <= 0 {
		tokens = domain.EstimateTokens(text)
	}
	e.tracker.Record(ctx, int64(tokens))
	return res, nil
}

// Completer is the generative-model counterpart of Embedder.
type Completer struct {
	inner   domain.Completer
	tracker *Tracker
}

// NewCompleter wraps inner. A nil tracker returns inner unchanged.
func NewCompleter(inner domain.Completer, t *Tracker) domain.Completer {
	if t == nil {
		return inner
	}
	return &Completer{inner: inner, tracker: t}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	if err := c.tracker.Check(ctx); err != nil {
		return domain.CompletionResult{}, fmt.Errorf("budget check: %w", err)
	}
	res, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("budgeted completion: %w", err)
	}
	c.tracker.Record(ctx, int64(res.PromptTokens+res.CompletionTokens))
	return res, nil
}
