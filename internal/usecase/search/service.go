// Package search orchestrates retrieval and re-ranking. Retrieval failures
// fail the request; re-ranking failures only remove the analysis.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
	"github.com/kailas-cloud/talentmatch/internal/logger"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

var tracer = otel.Tracer("talentmatch/usecase/search")

// Service is the search orchestrator.
type Service struct {
	retriever Retriever
	explainer Explainer
	logger    *zap.Logger
}

// New creates a search orchestrator.
func New(retriever Retriever, explainer Explainer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: retriever, explainer: explainer, logger: logger}
}

// Search validates the query, retrieves matches and attaches the model analysis.
func (s *Service) Search(ctx context.Context, text string, filters map[string]any) (search.Result, error) {
	q, err := search.NewQuery(text, filters)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		return search.Result{}, err
	}

	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()

	matches, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrInvalidQuery) {
			outcome = "invalid"
		}
		metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieve")
		return search.Result{}, fmt.Errorf("retrieve: %w", err)
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))

	if len(matches) == 0 {
		metrics.RerankOutcomesTotal.WithLabelValues("skipped").Inc()
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
		return search.Result{Matches: matches, Analysis: search.NoMatchesAnalysis()}, nil
	}

	analysis, err := s.explainer.Explain(ctx, q, matches)
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("Re-ranking failed, returning similarity results only",
			zap.Int("matches", len(matches)),
			zap.Error(err),
		)
		span.SetAttributes(attribute.Bool("degraded", true))
		metrics.SearchRequestsTotal.WithLabelValues("degraded").Inc()
		return search.Result{Matches: matches, Analysis: nil}, nil
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	return search.Result{Matches: matches, Analysis: analysis}, nil
}
