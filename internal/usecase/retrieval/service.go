// Package retrieval embeds a recruiter query and fetches the most similar candidates.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// Defaults applied when Options leaves a field at zero.
const (
	DefaultThreshold = 0.7
	DefaultLimit     = 10
)

var tracer = otel.Tracer("talentmatch/usecase/retrieval")

// Options sets the similarity policy.
type Options struct {
	Threshold float64
	Limit     int
}

// Service is the retrieval engine.
type Service struct {
	store  CandidateSearcher
	embed  Embedder
	opts   Options
	logger *zap.Logger
}

// New creates a retrieval service.
func New(store CandidateSearcher, embed Embedder, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return &Service{store: store, embed: embed, opts: opts, logger: logger}
}

// Retrieve returns candidates with similarity >= threshold, best first, at most
// limit long. The embedding call is made exactly once; its failure fails the request.
func (s *Service) Retrieve(ctx context.Context, q search.Query) ([]search.Match, error) {
	if q.Text() == "" {
		return nil, domain.ErrInvalidQuery
	}

	ctx, span := tracer.Start(ctx, "retrieval.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.Int("query_len", len(q.Text())),
		attribute.Float64("threshold", s.opts.Threshold),
		attribute.Int("limit", s.opts.Limit),
	)

	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	emb, err := s.embed.Embed(ctx, q.Text())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed query")
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.SearchBySimilarity(ctx, emb.Embedding, s.opts.Threshold, s.opts.Limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "similarity search")
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	metrics.RetrievedCandidates.Observe(float64(len(matches)))
	span.SetAttributes(attribute.Int("matches", len(matches)))

	if len(q.Filters()) > 0 {
		s.logger.Debug("Query filters are not applied to similarity search",
			zap.Int("filters", len(q.Filters())))
	}
	return matches, nil
}
