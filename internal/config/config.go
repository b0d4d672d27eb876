package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the talentmatch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Budget     BudgetConfig     `yaml:"budget"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Empty keys disable auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig holds the headers returned on every response and on preflight.
type CORSConfig struct {
	AllowedOrigin  string `yaml:"allowed_origin"`
	AllowedHeaders string `yaml:"allowed_headers"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds candidate storage and HNSW index settings.
type StorageConfig struct {
	KeyPrefix       string `yaml:"key_prefix"`
	IndexName       string `yaml:"index_name"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider     string  `yaml:"provider"` // gemini, openai (default: gemini)
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	Dimensions   int     `yaml:"dimensions"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	Cache        bool    `yaml:"cache"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateBurst    int     `yaml:"rate_burst"`
	// Prefixes for asymmetric OpenAI-compatible models; Gemini uses task types instead.
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// GenerationConfig holds generative model settings for re-ranking.
type GenerationConfig struct {
	Provider      string        `yaml:"provider"` // gemini, openai (default: gemini)
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	TimeoutSec    int           `yaml:"timeout_sec"`
	Temperature   float32       `yaml:"temperature"`
	TopCandidates int           `yaml:"top_candidates"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the generative model.
type BreakerConfig struct {
	Enabled             bool    `yaml:"enabled"`
	MaxRequests         uint32  `yaml:"max_requests"`
	IntervalSec         int     `yaml:"interval_sec"`
	OpenTimeoutSec      int     `yaml:"open_timeout_sec"`
	MinRequests         uint32  `yaml:"min_requests"`
	FailureRatio        float64 `yaml:"failure_ratio"`
	ConsecutiveFailures uint32  `yaml:"consecutive_failures"`
}

// SearchConfig holds similarity search policy.
type SearchConfig struct {
	Threshold float64 `yaml:"threshold"`
	Limit     int     `yaml:"limit"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
	MaxRecords  int `yaml:"max_records"`
}

// Budget actions.
const (
	BudgetActionWarn   = "warn"
	BudgetActionReject = "reject"
)

// BudgetConfig caps tokens per model kind. Usage is counted even without limits.
type BudgetConfig struct {
	Embedding  TokenBudget `yaml:"embedding"`
	Generation TokenBudget `yaml:"generation"`
}

// TokenBudget holds per-period token caps; zero means unlimited.
type TokenBudget struct {
	DailyTokens   int64  `yaml:"daily_tokens"`
	MonthlyTokens int64  `yaml:"monthly_tokens"`
	Action        string `yaml:"action"` // warn, reject (default: warn)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// generation calls run inside the request
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 10 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "talentmatch:"
	}
	if c.Storage.IndexName == "" {
		c.Storage.IndexName = "candidates"
	}
	if c.Storage.HNSWM <= 0 {
		c.Storage.HNSWM = 16
	}
	if c.Storage.HNSWEFConstruct <= 0 {
		c.Storage.HNSWEFConstruct = 200
	}
	c.applyEmbeddingDefaults()
	c.applyGenerationDefaults()
	if c.Search.Threshold <= 0 {
		c.Search.Threshold = 0.7
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 10
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 10
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = c.Ingest.BatchSize
	}
	if c.Ingest.MaxRecords <= 0 {
		c.Ingest.MaxRecords = 5000
	}
	for _, b := range []*TokenBudget{&c.Budget.Embedding, &c.Budget.Generation} {
		if b.Action == "" {
			b.Action = BudgetActionWarn
		}
	}
	if c.CORS.AllowedOrigin == "" {
		c.CORS.AllowedOrigin = "*"
	}
	if c.CORS.AllowedHeaders == "" {
		c.CORS.AllowedHeaders = "authorization, x-client-info, apikey, content-type"
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = ProviderGemini
	}
	if e.Model == "" {
		switch e.Provider {
		case ProviderOpenAI:
			e.Model = "text-embedding-3-small"
		default:
			e.Model = "text-embedding-004"
		}
	}
	if e.Dimensions <= 0 {
		switch e.Provider {
		case ProviderOpenAI:
			e.Dimensions = 1536
		default:
			e.Dimensions = 768
		}
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 15
	}
	if e.RateLimitRPS > 0 && e.RateBurst <= 0 {
		e.RateBurst = 1
	}
}

func (c *Config) applyGenerationDefaults() {
	g := &c.Generation
	if g.Provider == "" {
		g.Provider = ProviderGemini
	}
	if g.APIKey == "" && g.Provider == c.Embedding.Provider {
		g.APIKey = c.Embedding.APIKey
	}
	if g.Model == "" {
		switch g.Provider {
		case ProviderOpenAI:
			g.Model = "gpt-4o-mini"
		default:
			g.Model = "gemini-2.0-flash"
		}
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 30
	}
	if g.TopCandidates <= 0 {
		g.TopCandidates = 3
	}
	b := &g.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 1
	}
	if b.IntervalSec <= 0 {
		b.IntervalSec = 60
	}
	if b.OpenTimeoutSec <= 0 {
		b.OpenTimeoutSec = 30
	}
	if b.MinRequests == 0 {
		b.MinRequests = 5
	}
	if b.FailureRatio <= 0 {
		b.FailureRatio = 0.6
	}
	if b.ConsecutiveFailures == 0 {
		b.ConsecutiveFailures = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be redis, valkey or memory, got %q", c.Database.Driver)
	}
	if err := validateProvider("embedding", c.Embedding.Provider); err != nil {
		return err
	}
	if err := validateProvider("generation", c.Generation.Provider); err != nil {
		return err
	}
	if c.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold must be in (0, 1], got %v", c.Search.Threshold)
	}
	if c.Ingest.Concurrency > c.Ingest.BatchSize {
		return fmt.Errorf("ingest.concurrency (%d) must not exceed ingest.batch_size (%d)",
			c.Ingest.Concurrency, c.Ingest.BatchSize)
	}
	if c.Generation.Breaker.FailureRatio > 1 {
		return fmt.Errorf("generation.breaker.failure_ratio must be in (0, 1], got %v",
			c.Generation.Breaker.FailureRatio)
	}
	if err := validateBudget("budget.embedding", c.Budget.Embedding); err != nil {
		return err
	}
	return validateBudget("budget.generation", c.Budget.Generation)
}

func validateBudget(section string, b TokenBudget) error {
	if b.DailyTokens < 0 || b.MonthlyTokens < 0 {
		return fmt.Errorf("%s token limits must not be negative", section)
	}
	switch b.Action {
	case BudgetActionWarn, BudgetActionReject:
		return nil
	default:
		return fmt.Errorf("%s.action must be %q or %q, got %q", section, BudgetActionWarn, BudgetActionReject, b.Action)
	}
}

func validateProvider(section, provider string) error {
	switch provider {
	case ProviderGemini, ProviderOpenAI:
		return nil
	default:
		return fmt.Errorf("%s.provider must be %q or %q, got %q", section, ProviderGemini, ProviderOpenAI, provider)
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
