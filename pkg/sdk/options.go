package talentmatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Storage drivers.
const (
	driverValkey = "valkey"
	driverRedis  = "redis"
	driverMemory = "memory"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string
	addrs    []string
	username string
	password string
	db       int

	keyPrefix string
	indexName string

	documentEmbedder Embedder
	queryEmbedder    Embedder
	completer        Completer
	providerName     string

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	threshold     float64
	limit         int
	topCandidates int

	batchSize   int
	concurrency int
	maxRecords  int

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		driver:           driverMemory,
		keyPrefix:        "talentmatch:",
		indexName:        "candidates",
		providerName:     "custom",
		vectorDimensions: 768,
		hnswM:            16,
		hnswEFConstruct:  200,
	}
}

// WithValkey stores candidates in a Valkey instance with the search and JSON modules.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores candidates in a Redis 8+ instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithACL sets the username and logical database used with WithRedis or WithValkey.
func WithACL(username string, db int) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.db = db
	})
}

// WithMemory keeps candidates in process memory. This is the default.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
		c.addrs = nil
	})
}

// WithKeyPrefix sets the key prefix and index name for server-backed storage.
// Defaults: "talentmatch:" and "candidates".
func WithKeyPrefix(prefix, indexName string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
		c.indexName = indexName
	})
}

// WithEmbedder uses e for both stored profiles and search queries.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.documentEmbedder = e
		c.queryEmbedder = e
	})
}

// WithQueryEmbedder overrides the embedder used for search queries.
// Asymmetric models embed queries with a different task than documents.
func WithQueryEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryEmbedder = e
	})
}

// WithCompleter sets the generative model that explains the top matches.
// Without it searches return a nil Analysis.
func WithCompleter(m Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = m
	})
}

// WithProviderName labels provider metrics and logs. Default: "custom".
func WithProviderName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.providerName = name
	})
}

// WithVectorDimensions sets the embedding length the index expects. Default: 768.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithSearchPolicy sets the minimum similarity and the maximum number of
// candidates per search. Defaults: 0.7 and 10.
func WithSearchPolicy(threshold float64, limit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = threshold
		c.limit = limit
	})
}

// WithTopCandidates sets how many matches the completer explains. Default: 3.
func WithTopCandidates(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topCandidates = n
	})
}

// WithBatchSize sets the import batch size and per-batch concurrency.
// Default: 10 records, all in parallel.
func WithBatchSize(size, concurrency int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = size
		c.concurrency = concurrency
	})
}

// WithMaxRecords caps the number of records one Import call accepts. Default: 5000.
func WithMaxRecords(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRecords = n
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
