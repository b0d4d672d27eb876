package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// RateLimitedEmbedder throttles outbound embedding calls so a large import
// does not exhaust the provider quota shared with live searches.
type RateLimitedEmbedder struct {
	inner   domain.Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps inner with a token bucket. rps <= 0 returns inner unchanged.
func NewRateLimitedEmbedder(inner domain.Embedder, rps float64, burst int) domain.Embedder {
	return WithLimiter(inner, NewLimiter(rps, burst))
}

// NewLimiter returns a token bucket, or nil when rps <= 0.
// One limiter is shared by every embedder that draws on the same provider quota.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// WithLimiter wraps inner with an existing limiter. A nil limiter returns inner unchanged.
func WithLimiter(inner domain.Embedder, l *rate.Limiter) domain.Embedder {
	if l == nil {
		return inner
	}
	return &RateLimitedEmbedder{inner: inner, limiter: l}
}

// Embed waits for a token, then delegates. A wait that cannot finish before the
// context deadline fails fast with ErrRateLimited.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embedding rate limit: %w: %w", domain.ErrRateLimited, err)
	}
	metrics.EmbeddingRateLimitWait.Observe(time.Since(start).Seconds())

	return r.inner.Embed(ctx, text)
}
