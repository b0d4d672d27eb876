// Package rerank asks a generative model to pick and justify the best
// retrieved candidates. Its output is best effort and never reorders or
// filters the similarity ranking.
package rerank

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

// DefaultTopN is how many candidates the model is asked to explain.
const DefaultTopN = 3

var tracer = otel.Tracer("talentmatch/usecase/rerank")

// Completer is the generative model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (domain.CompletionResult, error)
}

// Service is the re-ranking and explanation stage.
type Service struct {
	model  Completer
	topN   int
	logger *zap.Logger
}

// New creates a rerank service. topN <= 0 means DefaultTopN.
func New(model Completer, topN int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Service{model: model, topN: topN, logger: logger}
}

// Explain returns the model's analysis of matches. Malformed model output
// degrades to the fallback analysis; only a failed model call is an error.
func (s *Service) Explain(ctx context.Context, q search.Query, matches []search.Match) (*search.Analysis, error) {
	ctx, span := tracer.Start(ctx, "rerank.Explain")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(matches)), attribute.Int("top_n", s.topN))

	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues("rerank").Observe(time.Since(start).Seconds())
	}()

	prompt, err := BuildPrompt(q.Text(), matches, s.topN)
	if err != nil {
		metrics.RerankOutcomesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	res, err := s.model.Complete(ctx, prompt)
	if err != nil {
		metrics.RerankOutcomesTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion")
		return nil, fmt.Errorf("complete: %w", err)
	}

	allowed := make(map[string]bool, len(matches))
	for _, m := range matches {
		allowed[m.Profile.Username()] = true
	}

	analysis, outcome := ParseAnalysis(res.Text, allowed, s.topN)
	metrics.RerankOutcomesTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))

	if outcome == OutcomeFallback {
		s.logger.Warn("Model output could not be parsed, using fallback analysis",
			zap.Int("response_chars", len(res.Text)))
	}
	return analysis, nil
}
