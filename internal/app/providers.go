package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/talentmatch/internal/config"
	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/talentmatch/internal/repository/budget"
	"github.com/kailas-cloud/talentmatch/internal/repository/embcache"
	"github.com/kailas-cloud/talentmatch/internal/transport/gemini"
	openaiTransport "github.com/kailas-cloud/talentmatch/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/talentmatch/internal/usecase/budget"
	completionuc "github.com/kailas-cloud/talentmatch/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/talentmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/talentmatch/internal/usecase/health"
)

// kvStore backs the embedding cache and the shared token counters.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Embedding roles. Asymmetric models embed stored profiles and queries differently.
const (
	roleDocument = "document"
	roleQuery    = "query"
)

type providers struct {
	document         domain.Embedder
	query            domain.Embedder
	completer        domain.Completer
	embeddingHealth  healthuc.Checker
	generationHealth healthuc.Checker
	embeddingBudget  *budgetuc.Tracker
	generationBudget *budgetuc.Tracker
}

func newProviders(ctx context.Context, cfg config.Config, kv kvStore, logger *zap.Logger) (*providers, error) {
	docBase, queryBase, err := embeddingBases(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	p := &providers{
		embeddingBudget:  newTracker(ctx, budgetuc.KindEmbedding, cfg.Budget.Embedding, cfg.Storage.KeyPrefix, kv, logger),
		generationBudget: newTracker(ctx, budgetuc.KindGeneration, cfg.Budget.Generation, cfg.Storage.KeyPrefix, kv, logger),
	}

	// both chains draw on one provider quota and one token budget
	limiter := embeddinguc.NewLimiter(cfg.Embedding.RateLimitRPS, cfg.Embedding.RateBurst)
	p.document = embeddingChain(docBase, roleDocument, cfg, kv, limiter, p.embeddingBudget, logger)
	p.query = embeddingChain(queryBase, roleQuery, cfg, kv, limiter, p.embeddingBudget, logger)
	p.embeddingHealth = providerHealth(queryBase)

	base, err := completerBase(ctx, cfg.Generation, logger)
	if err != nil {
		return nil, err
	}
	g := cfg.Generation
	var completer domain.Completer = completionuc.NewInstrumentedCompleter(
		base, g.Provider, g.Model, time.Duration(g.TimeoutSec)*time.Second, logger,
	)
	var breaker *completionuc.BreakerCompleter
	if g.Breaker.Enabled {
		breaker = completionuc.NewBreakerCompleter(completer, completionuc.BreakerSettings{
			Name:                "generation",
			MaxRequests:         g.Breaker.MaxRequests,
			Interval:            time.Duration(g.Breaker.IntervalSec) * time.Second,
			OpenTimeout:         time.Duration(g.Breaker.OpenTimeoutSec) * time.Second,
			MinRequests:         g.Breaker.MinRequests,
			FailureRatio:        g.Breaker.FailureRatio,
			ConsecutiveFailures: g.Breaker.ConsecutiveFailures,
		}, logger)
		completer = breaker
	}
	// budget rejections never reach the breaker
	p.completer = budgetuc.NewCompleter(completer, p.generationBudget)

	probe := providerHealth(base)
	p.generationHealth = healthuc.CheckFunc(func(ctx context.Context) error {
		if breaker != nil && breaker.State() == gobreaker.StateOpen {
			return fmt.Errorf("circuit open: %w", domain.ErrGenerationUnavailable)
		}
		return probe(ctx)
	})
	return p, nil
}

// embeddingBases returns the raw provider clients for profiles and for queries.
func embeddingBases(ctx context.Context, e config.EmbeddingConfig, logger *zap.Logger) (doc, query domain.Embedder, err error) {
	switch e.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, e.APIKey, e.BaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini embedding client: %w", err)
		}
		doc = gemini.NewEmbedder(client, gemini.EmbedderConfig{
			Model: e.Model, Dimensions: e.Dimensions, TaskType: gemini.TaskRetrievalDocument, Logger: logger,
		})
		query = gemini.NewEmbedder(client, gemini.EmbedderConfig{
			Model: e.Model, Dimensions: e.Dimensions, TaskType: gemini.TaskRetrievalQuery, Logger: logger,
		})
		return doc, query, nil

	case config.ProviderOpenAI:
		base := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     e.APIKey,
			BaseURL:    e.BaseURL,
			Model:      e.Model,
			Dimensions: e.Dimensions,
			Provider:   e.Provider,
			Logger:     logger,
		})
		return domain.NewInstructionEmbedder(base, e.DocumentInstruction),
			domain.NewInstructionEmbedder(base, e.QueryInstruction), nil

	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", e.Provider)
	}
}

// newTracker counts tokens for one model kind, shared across replicas when a
// key-value store is available.
func newTracker(
	ctx context.Context, kind string, b config.TokenBudget, keyPrefix string, kv kvStore, logger *zap.Logger,
) *budgetuc.Tracker {
	t := budgetuc.NewTracker(kind, keyPrefix, budgetuc.Limits{
		Daily:   b.DailyTokens,
		Monthly: b.MonthlyTokens,
		Action:  budgetuc.Action(b.Action),
	}, logger)
	if kv != nil {
		t.WithStore(ctx, budgetrepo.New(kv, 0, 0))
	}
	return t
}

// embeddingChain assembles provider -> budget -> rate limit -> cache -> instrumented.
// Cache hits skip the limiter and cost no tokens; the instrumented deadline
// bounds the limiter wait.
func embeddingChain(
	base domain.Embedder,
	role string,
	cfg config.Config,
	kv kvStore,
	limiter *rate.Limiter,
	tracker *budgetuc.Tracker,
	logger *zap.Logger,
) domain.Embedder {
	e := cfg.Embedding
	emb := embeddinguc.WithLimiter(budgetuc.NewEmbedder(base, tracker), limiter)

	if kv != nil && e.Cache {
		emb = embcache.New(emb, kv, embcache.Options{
			KeyPrefix:  cfg.Storage.KeyPrefix,
			Namespace:  fmt.Sprintf("%s:%s:%d:%s", e.Provider, e.Model, e.Dimensions, role),
			CacheTotal: metrics.EmbeddingCacheTotal,
		}, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(emb, e.Provider, e.Model, time.Duration(e.TimeoutSec)*time.Second, logger)
}

func completerBase(ctx context.Context, g config.GenerationConfig, logger *zap.Logger) (domain.Completer, error) {
	switch g.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, g.APIKey, g.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("gemini generation client: %w", err)
		}
		return gemini.NewGenerator(client, gemini.GeneratorConfig{
			Model: g.Model, Temperature: g.Temperature, Logger: logger,
		}), nil

	case config.ProviderOpenAI:
		return openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:      g.APIKey,
			BaseURL:     g.BaseURL,
			Model:       g.Model,
			Temperature: g.Temperature,
			Provider:    g.Provider,
			Logger:      logger,
		}), nil

	default:
		return nil, fmt.Errorf("unknown generation provider %q", g.Provider)
	}
}
