package talentmatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithMemory(),
		WithEmbedder(&keywordEmbedder{fail: "broken"}),
		WithVectorDimensions(3),
		WithLogger(zaptest.NewLogger(t)),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func intPtr(v int) *int { return &v }

var seed = []Candidate{
	{Username: "alice", Name: "Alice", Skills: []string{"Python", "Django"}, Followers: intPtr(10)},
	{Username: "bob", Name: "Bob", Skills: []string{"Go"}},
	{Username: "broken", Skills: []string{"Python"}},
	{Name: "no handle"},
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithMemory())
	if err == nil || !strings.Contains(err.Error(), "embedder is required") {
		t.Fatalf("err = %v, want embedder is required", err)
	}
}

func TestNew_RedisRequiresAddress(t *testing.T) {
	_, err := New(context.Background(), WithRedis("", ""), WithEmbedder(&keywordEmbedder{}))
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_InvalidDimensions(t *testing.T) {
	_, err := New(context.Background(), WithEmbedder(&keywordEmbedder{}), WithVectorDimensions(0))
	if err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}

func TestCreateStore_UnknownDriver(t *testing.T) {
	c := &Client{}
	cfg := defaultConfig()
	cfg.driver = "cassandra"
	if _, _, err := c.createStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := defaultConfig()
	emb := &keywordEmbedder{}
	query := &keywordEmbedder{}
	for _, o := range []Option{
		WithValkey("localhost:6379", "secret"),
		WithACL("app", 2),
		WithKeyPrefix("tm:", "people"),
		WithEmbedder(emb),
		WithQueryEmbedder(query),
		WithSearchPolicy(0.5, 20),
		WithTopCandidates(5),
		WithBatchSize(25, 5),
		WithHNSW(32, 400),
	} {
		o.apply(cfg)
	}

	if cfg.driver != driverValkey || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("storage = %s %v %q", cfg.driver, cfg.addrs, cfg.password)
	}
	if cfg.username != "app" || cfg.db != 2 {
		t.Errorf("acl = %q/%d", cfg.username, cfg.db)
	}
	if cfg.keyPrefix != "tm:" || cfg.indexName != "people" {
		t.Errorf("layout = %q %q", cfg.keyPrefix, cfg.indexName)
	}
	if cfg.documentEmbedder != emb || cfg.queryEmbedder != query {
		t.Error("query embedder must override only the query side")
	}
	if cfg.threshold != 0.5 || cfg.limit != 20 || cfg.topCandidates != 5 {
		t.Errorf("policy = %v %d %d", cfg.threshold, cfg.limit, cfg.topCandidates)
	}
	if cfg.batchSize != 25 || cfg.concurrency != 5 {
		t.Errorf("batch = %d/%d", cfg.batchSize, cfg.concurrency)
	}
	if cfg.hnswM != 32 || cfg.hnswEFConstruct != 400 {
		t.Errorf("hnsw = %d/%d", cfg.hnswM, cfg.hnswEFConstruct)
	}

	WithMemory().apply(cfg)
	if cfg.driver != driverMemory || cfg.addrs != nil {
		t.Errorf("WithMemory left %s %v", cfg.driver, cfg.addrs)
	}
}

func TestClient_ImportThenSearch(t *testing.T) {
	c := newTestClient(t, WithCompleter(&mockCompleter{
		text: `{"analysis":"Alice fits.","topCandidates":[{"username":"alice","matchReason":"Python","strengths":["Django"],"potential_concerns":[]}]}`,
	}))
	ctx := context.Background()

	summary, err := c.Import(ctx, seed)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary != (ImportSummary{Success: 2, Failed: 2}) {
		t.Errorf("summary = %+v", summary)
	}

	summary, err = c.Import(ctx, []Candidate{{Username: "alice"}, {Username: "carol", Skills: []string{"Python"}}})
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if summary != (ImportSummary{Success: 1, Skipped: 1}) {
		t.Errorf("rerun summary = %+v", summary)
	}

	res, err := c.Search(ctx, "python developers", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("matches = %+v", res.Matches)
	}
	first := res.Matches[0]
	if first.Candidate.Username != "alice" || res.Matches[1].Candidate.Username != "carol" {
		t.Errorf("order = %s, %s", first.Candidate.Username, res.Matches[1].Candidate.Username)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Errorf("stored identity missing: %+v", first)
	}
	if first.Candidate.GithubURL != "https://github.com/alice" {
		t.Errorf("github url = %q", first.Candidate.GithubURL)
	}
	if first.Candidate.Followers == nil || *first.Candidate.Followers != 10 {
		t.Errorf("followers = %v", first.Candidate.Followers)
	}
	if res.Analysis == nil || res.Analysis.Summary != "Alice fits." || len(res.Analysis.TopCandidates) != 1 {
		t.Errorf("analysis = %+v", res.Analysis)
	}
}

func TestClient_ImportRaw(t *testing.T) {
	c := newTestClient(t)

	summary, err := c.ImportRaw(context.Background(), []json.RawMessage{
		json.RawMessage(`{"username":"dave","skills":["Go"]}`),
		json.RawMessage(`"not an object"`),
	})
	if err != nil {
		t.Fatalf("ImportRaw: %v", err)
	}
	if summary != (ImportSummary{Success: 1, Failed: 1}) {
		t.Errorf("summary = %+v", summary)
	}
}

func TestClient_ImportEmpty(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Import(context.Background(), nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestClient_SearchWithoutCompleter(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	if _, err := c.Import(ctx, seed[:2]); err != nil {
		t.Fatalf("Import: %v", err)
	}

	res, err := c.Search(ctx, "go", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Candidate.Username != "bob" {
		t.Errorf("matches = %+v", res.Matches)
	}
	if res.Analysis != nil {
		t.Errorf("analysis = %+v, want nil", res.Analysis)
	}
}

func TestClient_SearchCompleterFailureDegrades(t *testing.T) {
	c := newTestClient(t, WithCompleter(&mockCompleter{err: errors.New("overloaded")}))
	ctx := context.Background()
	if _, err := c.Import(ctx, seed[:1]); err != nil {
		t.Fatalf("Import: %v", err)
	}

	res, err := c.Search(ctx, "python", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Matches) != 1 || res.Analysis != nil {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_SearchNoMatches(t *testing.T) {
	c := newTestClient(t, WithCompleter(&mockCompleter{text: "unused"}))

	res, err := c.Search(context.Background(), "python", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Matches) != 0 {
		t.Errorf("matches = %+v", res.Matches)
	}
	if res.Analysis == nil || len(res.Analysis.TopCandidates) != 0 {
		t.Errorf("analysis = %+v, want empty analysis", res.Analysis)
	}
}

func TestClient_SearchBlankQuery(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Search(context.Background(), "   ", nil)
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestClient_SearchEmbedderFailure(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Search(context.Background(), "broken query", nil)
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestClient_Health(t *testing.T) {
	completer := &mockCompleter{}
	c := newTestClient(t, WithCompleter(completer))
	ctx := context.Background()

	h := c.Health(ctx)
	if h.Status != "ok" || h.Checks["embedding"] != "ok" || h.Checks["generation"] != "ok" {
		t.Errorf("health = %+v", h)
	}
	if _, ok := h.Checks["database"]; ok {
		t.Error("memory storage must not report a database check")
	}

	completer.health = errors.New("quota exhausted")
	if h := c.Health(ctx); h.Status != "degraded" || h.Checks["generation"] != "error" {
		t.Errorf("health with failing completer = %+v", h)
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))
	ctx := context.Background()

	if _, err := c.Import(ctx, seed[:2]); err != nil {
		t.Fatalf("Import: %v", err)
	}
	_, _ = c.Search(ctx, "", nil)

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("import", "ok")); got != 1 {
		t.Errorf("import ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("search", "error")); got != 1 {
		t.Errorf("search error = %v, want 1", got)
	}

	// a second client on the same registry shares the collectors
	other := newTestClient(t, WithPrometheus(reg))
	if other.obs.metrics.operations != ops {
		t.Error("expected collectors to be reused")
	}
}
