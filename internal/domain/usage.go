package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// Usage collects upstream token consumption for a single request.
// The handler puts a pointer into the context, decorators add to it, and the
// wide-event log line reads it. Ingestion embeds concurrently, so counters are atomic.
type Usage struct {
	embeddingTokens  atomic.Int64
	generationTokens atomic.Int64
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records consumed embedding tokens. Safe on a nil receiver.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.embeddingTokens.Add(int64(n))
	}
}

// AddGenerationTokens records consumed generation tokens. Safe on a nil receiver.
func (u *Usage) AddGenerationTokens(n int) {
	if u != nil {
		u.generationTokens.Add(int64(n))
	}
}

// EmbeddingTokens returns the embedding token total.
func (u *Usage) EmbeddingTokens() int64 {
	if u == nil {
		return 0
	}
	return u.embeddingTokens.Load()
}

// GenerationTokens returns the generation token total.
func (u *Usage) GenerationTokens() int64 {
	if u == nil {
		return 0
	}
	return u.generationTokens.Load()
}
