package domain

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"
)

// Embedder is the shared text vectorization contract between layers.
// Implementations must fail with ErrEmbeddingUnavailable rather than return a zero vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies upstream provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// charsPerToken is the rule of thumb Google and OpenAI publish for English text.
const charsPerToken = 4

// EstimateTokens approximates the token count of text for providers that do
// not report usage. Non-empty text costs at least one token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// CheckVector fails with ErrEmbeddingUnavailable when v is empty, has a
// non-finite component or has zero norm. Such vectors have no direction and
// score NaN under cosine similarity.
func CheckVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("zero-length vector: %w", ErrEmbeddingUnavailable)
	}
	var norm float64
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite component at %d: %w", i, ErrEmbeddingUnavailable)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("zero-norm vector: %w", ErrEmbeddingUnavailable)
	}
	return nil
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
// Asymmetric models want different prefixes for stored profiles and for queries.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
// An empty instruction returns inner unchanged.
func NewInstructionEmbedder(inner Embedder, instruction string) Embedder {
	if instruction == "" {
		return inner
	}
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// HealthCheck delegates to the wrapped embedder when it can be probed.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
