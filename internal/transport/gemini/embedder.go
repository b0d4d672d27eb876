package gemini

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

const providerName = "gemini"

// EmbedderConfig holds Gemini embedding settings.
type EmbedderConfig struct {
	Model      string
	Dimensions int    // OutputDimensionality; 0 keeps the model default
	TaskType   string // TaskRetrievalDocument or TaskRetrievalQuery
	Logger     *zap.Logger
}

// Embedder implements domain.Embedder on top of Models.EmbedContent.
type Embedder struct {
	client *genai.Client
	cfg    EmbedderConfig
	logger *zap.Logger
}

// NewEmbedder creates a Gemini embedder. Use one per task type.
func NewEmbedder(client *genai.Client, cfg EmbedderConfig) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{client: client, cfg: cfg, logger: logger}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	resp, err := e.client.Models.EmbedContent(ctx, e.cfg.Model, genai.Text(text), e.embedConfig())
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.cfg.Model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.cfg.Model, "api_error").Inc()
		e.logger.Debug("gemini embed failed", zap.Error(err), zap.Duration("duration", duration))
		return domain.EmbeddingResult{}, wrapAPIError("embedding", err, domain.ErrEmbeddingUnavailable)
	}

	values, err := firstEmbedding(resp)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.cfg.Model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.cfg.Model, "empty_response").Inc()
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.cfg.Model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.cfg.Model).Observe(duration.Seconds())

	// the Gemini API reports no embedding usage, so budgets are charged an estimate
	tokens := domain.EstimateTokens(text)
	metrics.EmbeddingTokensTotal.WithLabelValues(providerName, e.cfg.Model, "total").Add(float64(tokens))
	return domain.EmbeddingResult{Embedding: values, PromptTokens: tokens, TotalTokens: tokens}, nil
}

// HealthCheck embeds a fixed probe string.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("gemini embed probe: %w", err)
	}
	return nil
}

func (e *Embedder) embedConfig() *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{TaskType: e.cfg.TaskType}
	if e.cfg.Dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(e.cfg.Dimensions))
	}
	return cfg
}

func firstEmbedding(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingUnavailable)
	}
	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, fmt.Errorf("embedding without values: %w", domain.ErrEmbeddingUnavailable)
	}
	return values, nil
}
