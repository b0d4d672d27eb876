package talentmatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/talentmatch/internal/db/redis"
	"github.com/kailas-cloud/talentmatch/internal/domain"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
	candidaterepo "github.com/kailas-cloud/talentmatch/internal/repository/candidate"
	"github.com/kailas-cloud/talentmatch/internal/repository/memory"
	completionuc "github.com/kailas-cloud/talentmatch/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/talentmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/talentmatch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
	rerankuc "github.com/kailas-cloud/talentmatch/internal/usecase/rerank"
	retrievaluc "github.com/kailas-cloud/talentmatch/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/talentmatch/internal/usecase/search"
)

const readinessTimeout = 10 * time.Second

// candidateStore is satisfied by both storage drivers.
type candidateStore interface {
	ingestuc.CandidateWriter
	retrievaluc.CandidateSearcher
	EnsureIndex(ctx context.Context) error
}

// Client runs imports and searches in process.
type Client struct {
	ingest *ingestuc.Service
	search *searchuc.Service
	health *healthuc.Service
	obs    *observer

	closers []func()
}

// New creates a Client. WithEmbedder is required; storage defaults to memory.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.documentEmbedder == nil || cfg.queryEmbedder == nil {
		return nil, errors.New("talentmatch: embedder is required (use WithEmbedder)")
	}
	if cfg.vectorDimensions <= 0 {
		return nil, fmt.Errorf("talentmatch: vector dimensions must be positive, got %d", cfg.vectorDimensions)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	if err := c.wire(ctx, cfg); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) wire(ctx context.Context, cfg *clientConfig) error {
	logger := c.obs.logger

	store, pinger, err := c.createStore(ctx, cfg)
	if err != nil {
		return err
	}

	document := embeddinguc.NewInstrumentedEmbedder(
		&embedderAdapter{inner: cfg.documentEmbedder}, cfg.providerName, "document", 0, logger)
	query := embeddinguc.NewInstrumentedEmbedder(
		&embedderAdapter{inner: cfg.queryEmbedder}, cfg.providerName, "query", 0, logger)

	c.ingest, err = ingestuc.New(store, document, ingestuc.Options{
		BatchSize:   cfg.batchSize,
		Concurrency: cfg.concurrency,
		MaxRecords:  cfg.maxRecords,
	}, logger)
	if err != nil {
		return fmt.Errorf("talentmatch: ingest service: %w", err)
	}
	c.closers = append(c.closers, c.ingest.Close)

	retriever := retrievaluc.New(store, query, retrievaluc.Options{
		Threshold: cfg.threshold,
		Limit:     cfg.limit,
	}, logger)

	var explainer searchuc.Explainer = noAnalysis{}
	if cfg.completer != nil {
		completer := completionuc.NewInstrumentedCompleter(
			&completerAdapter{inner: cfg.completer}, cfg.providerName, "generation", 0, logger)
		explainer = rerankuc.New(completer, cfg.topCandidates, logger)
	}
	c.search = searchuc.New(retriever, explainer, logger)

	components := []healthuc.Component{
		{Name: "embedding", Checker: probe(cfg.queryEmbedder), Critical: true},
	}
	if cfg.completer != nil {
		components = append(components, healthuc.Component{Name: "generation", Checker: probe(cfg.completer)})
	}
	if pinger != nil {
		components = append(components, healthuc.Component{
			Name: "database", Checker: healthuc.Pinger(pinger), Critical: true,
		})
	}
	c.health = healthuc.New(components...)
	return nil
}

func (c *Client) createStore(ctx context.Context, cfg *clientConfig) (candidateStore, healthuc.DBPinger, error) {
	switch cfg.driver {
	case driverMemory:
		repo, err := memory.New(cfg.vectorDimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("talentmatch: memory store: %w", err)
		}
		return repo, nil, nil

	case driverRedis, driverValkey:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, errors.New("talentmatch: address is required for " + cfg.driver)
		}
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.db,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("talentmatch: connect: %w", err)
		}
		c.closers = append(c.closers, rs.Close)

		if err := rs.WaitForReady(ctx, readinessTimeout); err != nil {
			return nil, nil, fmt.Errorf("talentmatch: %s not ready: %w", cfg.driver, err)
		}
		repo := candidaterepo.New(rs, candidaterepo.Config{
			KeyPrefix:   cfg.keyPrefix,
			IndexName:   cfg.indexName,
			Dimensions:  cfg.vectorDimensions,
			HNSWM:       cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
		if err := repo.EnsureIndex(ctx); err != nil {
			return nil, nil, fmt.Errorf("talentmatch: ensure index: %w", err)
		}
		return repo, rs, nil

	default:
		return nil, nil, fmt.Errorf("talentmatch: unknown driver %q", cfg.driver)
	}
}

// Import embeds and stores candidates whose username is not yet known.
// Per-record failures are counted in the summary, not returned as an error.
func (c *Client) Import(ctx context.Context, candidates []Candidate) (ImportSummary, error) {
	raw := make([]json.RawMessage, len(candidates))
	for i := range candidates {
		b, err := json.Marshal(domcand.Record(candidates[i]))
		if err != nil {
			return ImportSummary{}, fmt.Errorf("talentmatch: encode candidate %d: %w", i, err)
		}
		raw[i] = b
	}
	return c.ImportRaw(ctx, raw)
}

// ImportRaw is Import over undecoded JSON objects, as received from a crawler.
func (c *Client) ImportRaw(ctx context.Context, records []json.RawMessage) (ImportSummary, error) {
	start := time.Now()
	summary, err := c.ingest.Ingest(ctx, records)
	c.obs.observe("import", start, err,
		zap.Int("records", len(records)),
		zap.Int("added", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("talentmatch: import: %w", err)
	}
	return summary, nil
}

// Search ranks stored candidates by similarity to query and asks the
// completer, if any, to explain the best of them. Filters are accepted for
// forward compatibility and currently do not narrow the result.
func (c *Client) Search(ctx context.Context, query string, filters map[string]any) (SearchResult, error) {
	start := time.Now()
	res, err := c.search.Search(ctx, query, filters)
	c.obs.observe("search", start, err, zap.Int("matches", len(res.Matches)))
	if err != nil {
		return SearchResult{}, fmt.Errorf("talentmatch: search: %w", err)
	}

	out := SearchResult{Matches: make([]Match, len(res.Matches)), Analysis: res.Analysis}
	for i, m := range res.Matches {
		out.Matches[i] = matchFromDomain(m)
	}
	return out, nil
}

// Close releases the worker pool and the storage connection.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// completerAdapter wraps public Completer to satisfy internal domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	r, err := a.inner.Complete(ctx, prompt)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}
	return domain.CompletionResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}, nil
}

// noAnalysis leaves Analysis nil when no completer is configured.
type noAnalysis struct{}

func (noAnalysis) Explain(context.Context, search.Query, []search.Match) (*search.Analysis, error) {
	return nil, nil
}

// probe checks target when it implements HealthCheck; anything else counts as healthy.
func probe(target any) healthuc.Checker {
	hc, ok := target.(interface{ HealthCheck(context.Context) error })
	if !ok {
		return healthuc.CheckFunc(func(context.Context) error { return nil })
	}
	return healthuc.CheckFunc(hc.HealthCheck)
}
