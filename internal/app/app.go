// Package app is the composition root shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/config"
	dbRedis "github.com/kailas-cloud/talentmatch/internal/db/redis"
	"github.com/kailas-cloud/talentmatch/internal/domain"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
	candidaterepo "github.com/kailas-cloud/talentmatch/internal/repository/candidate"
	"github.com/kailas-cloud/talentmatch/internal/repository/memory"
	chiTransport "github.com/kailas-cloud/talentmatch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/talentmatch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
	rerankuc "github.com/kailas-cloud/talentmatch/internal/usecase/rerank"
	retrievaluc "github.com/kailas-cloud/talentmatch/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/talentmatch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/talentmatch/internal/usecase/usage"
)

// candidateStore is what the pipelines need from either storage driver.
type candidateStore interface {
	Dimensions() int
	EnsureIndex(ctx context.Context) error
	Exists(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, p domcand.Profile) (string, error)
	SearchBySimilarity(ctx context.Context, vector []float32, threshold float64, limit int) ([]search.Match, error)
}

var (
	_ candidateStore = (*candidaterepo.Repo)(nil)
	_ candidateStore = (*memory.Repo)(nil)
)

// App holds the wired services.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	Search *searchuc.Service
	Ingest *ingestuc.Service
	Health *healthuc.Service
	Usage  *usageuc.Service

	closers []func()
}

// New connects to storage and model providers and wires every service.
// Close releases what New acquired, also after a partial failure.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg

	store, kv, pinger, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	providers, err := newProviders(ctx, cfg, kv, a.logger)
	if err != nil {
		return err
	}

	a.Ingest, err = ingestuc.New(store, providers.document, ingestuc.Options{
		BatchSize:   cfg.Ingest.BatchSize,
		Concurrency: cfg.Ingest.Concurrency,
		MaxRecords:  cfg.Ingest.MaxRecords,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("ingest service: %w", err)
	}
	a.closers = append(a.closers, a.Ingest.Close)

	retriever := retrievaluc.New(store, providers.query, retrievaluc.Options{
		Threshold: cfg.Search.Threshold,
		Limit:     cfg.Search.Limit,
	}, a.logger)
	reranker := rerankuc.New(providers.completer, cfg.Generation.TopCandidates, a.logger)
	a.Search = searchuc.New(retriever, reranker, a.logger)
	a.Usage = usageuc.New(providers.embeddingBudget, providers.generationBudget)

	components := []healthuc.Component{
		{Name: "embedding", Checker: providers.embeddingHealth, Critical: true},
		{Name: "generation", Checker: providers.generationHealth},
	}
	if pinger != nil {
		components = append(components, healthuc.Component{
			Name: "database", Checker: healthuc.Pinger(pinger), Critical: true,
		})
	}
	a.Health = healthuc.New(components...)

	a.logger.Info("Services wired",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", store.Dimensions()),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("generation_model", cfg.Generation.Model),
		zap.Bool("embedding_cache", kv != nil && cfg.Embedding.Cache),
		zap.Bool("breaker", cfg.Generation.Breaker.Enabled),
		zap.Int64("embedding_daily_tokens", cfg.Budget.Embedding.DailyTokens),
		zap.Int64("generation_daily_tokens", cfg.Budget.Generation.DailyTokens),
	)
	return nil
}

// openStore returns the candidate store plus, for server-backed drivers, the
// key-value store used by the embedding cache and the health pinger.
func (a *App) openStore(ctx context.Context) (candidateStore, kvStore, healthuc.DBPinger, error) {
	cfg := a.cfg
	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create database store: %w", err)
		}
		a.closers = append(a.closers, rs.Close)

		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(ctx, timeout); err != nil {
			return nil, nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		a.logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

		repo := candidaterepo.New(rs, candidaterepo.Config{
			KeyPrefix:   cfg.Storage.KeyPrefix,
			IndexName:   cfg.Storage.IndexName,
			Dimensions:  cfg.Embedding.Dimensions,
			HNSWM:       cfg.Storage.HNSWM,
			EFConstruct: cfg.Storage.HNSWEFConstruct,
		})
		if err := repo.EnsureIndex(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("ensure index: %w", err)
		}
		return repo, rs, rs, nil

	case config.DriverMemory:
		repo, err := memory.New(cfg.Embedding.Dimensions)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create memory store: %w", err)
		}
		a.logger.Warn("Using in-process candidate store; data is lost on restart")
		return repo, nil, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// Handler returns the HTTP API with its middleware stack.
func (a *App) Handler() http.Handler {
	srv := chiTransport.NewServer(a.Search, a.Ingest, a.Health, chiTransport.Options{
		MaxBodyBytes: a.cfg.HTTP.MaxBodyBytes,
		Usage:        a.Usage,
	}, a.logger)
	return chiTransport.NewRouter(srv, chiTransport.RouterOptions{
		APIKeys: a.cfg.Auth.APIKeys,
		CORS: chiTransport.CORSConfig{
			AllowedOrigin:  a.cfg.CORS.AllowedOrigin,
			AllowedHeaders: a.cfg.CORS.AllowedHeaders,
		},
	}, a.logger)
}

// Close releases pools and connections in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// providerHealth probes target when it supports it; providers without a probe count as healthy.
func providerHealth(target any) healthuc.CheckFunc {
	return func(ctx context.Context) error {
		hc, ok := target.(domain.HealthChecker)
		if !ok {
			return nil
		}
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("provider health check: %w", err)
		}
		return nil
	}
}
