package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// GeneratorConfig holds Gemini text generation settings.
type GeneratorConfig struct {
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// Generator implements domain.Completer on top of Models.GenerateContent.
type Generator struct {
	client *genai.Client
	cfg    GeneratorConfig
	logger *zap.Logger
}

// NewGenerator creates a Gemini generator.
func NewGenerator(client *genai.Client, cfg GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, cfg: cfg, logger: logger}
}

// Complete implements domain.Completer. The response MIME type is pinned to JSON.
func (g *Generator) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.CompletionResult{}, errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.cfg.Temperature),
		ResponseMIMEType: "application/json",
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), config)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.cfg.Model, "error").Inc()
		g.logger.Debug("gemini generate failed", zap.Error(err), zap.Duration("duration", duration))
		return domain.CompletionResult{}, wrapAPIError("generation", err, domain.ErrGenerationUnavailable)
	}

	output := joinCandidateText(resp)
	if output == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.cfg.Model, "empty").Inc()
		return domain.CompletionResult{}, fmt.Errorf("gemini api returned empty response: %w", domain.ErrGenerationUnavailable)
	}

	res := domain.CompletionResult{Text: output}
	if u := resp.UsageMetadata; u != nil {
		res.PromptTokens = int(u.PromptTokenCount)
		res.CompletionTokens = int(u.CandidatesTokenCount)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.cfg.Model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(providerName, g.cfg.Model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(providerName, g.cfg.Model, "prompt").Add(float64(res.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(providerName, g.cfg.Model, "completion").Add(float64(res.CompletionTokens))

	return res, nil
}

// HealthCheck fetches model metadata, which costs no tokens.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.cfg.Model, nil); err != nil {
		return fmt.Errorf("gemini get model: %w", err)
	}
	return nil
}

// joinCandidateText concatenates the non-empty text parts of every candidate.
func joinCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
