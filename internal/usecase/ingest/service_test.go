package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
)

// --- Mocks ---

type mockStore struct {
	mu         sync.Mutex
	existing   map[string]bool
	inserted   []string
	existsErr  error
	insertErr  map[string]error
	raceOnUser string // Exists says no, Insert reports a duplicate
}

func newMockStore(existing ...string) *mockStore {
	m := &mockStore{existing: map[string]bool{}, insertErr: map[string]error{}}
	for _, u := range existing {
		m.existing[u] = true
	}
	return m
}

func (m *mockStore) Exists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existing[username], nil
}

func (m *mockStore) Insert(_ context.Context, p domcand.Profile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Username() == m.raceOnUser {
		return "", domain.ErrDuplicateHandle
	}
	if err := m.insertErr[p.Username()]; err != nil {
		return "", err
	}
	if len(p.Embedding()) == 0 {
		return "", errors.New("missing embedding")
	}
	m.existing[p.Username()] = true
	m.inserted = append(m.inserted, p.Username())
	return "id-" + p.Username(), nil
}

type mockEmbedder struct {
	mu       sync.Mutex
	failFor  string
	texts    []string
	inflight int
	peak     int
	block    chan struct{}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.inflight++
	m.peak = max(m.peak, m.inflight)
	m.mu.Unlock()

	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()

	if m.failFor != "" && strings.HasPrefix(text, "GitHub user "+m.failFor+"\n") {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingUnavailable
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

func records(users ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(users))
	for i, u := range users {
		out[i] = json.RawMessage(fmt.Sprintf(`{"username":%q,"bio":"dev"}`, u))
	}
	return out
}

func newTestService(t *testing.T, store CandidateWriter, emb Embedder, opts Options) *Service {
	t.Helper()
	s, err := New(store, emb, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// --- Tests ---

func TestIngest_AllNew(t *testing.T) {
	store := newMockStore()
	svc := newTestService(t, store, &mockEmbedder{}, Options{})

	sum, err := svc.Ingest(context.Background(), records("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Success != 3 || sum.Failed != 0 || sum.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Message() != "Processed 3 users: 3 added, 0 failed, 0 skipped." {
		t.Errorf("unexpected message %q", sum.Message())
	}
}

func TestIngest_SkipsExistingWithoutEmbedding(t *testing.T) {
	store := newMockStore("old")
	emb := &mockEmbedder{}
	svc := newTestService(t, store, emb, Options{})

	sum, err := svc.Ingest(context.Background(), records("old", "new"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Success != 1 || sum.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(emb.texts) != 1 {
		t.Errorf("existing handles must not be embedded, got %d embed calls", len(emb.texts))
	}
}

func TestIngest_PartialFailureIsolation(t *testing.T) {
	store := newMockStore()
	store.insertErr["broken"] = errors.New("write failed")
	emb := &mockEmbedder{failFor: "noembed"}
	svc := newTestService(t, store, emb, Options{BatchSize: 2})

	input := records("a", "noembed", "b", "broken", "c")
	input = append(input, json.RawMessage(`"not an object"`), json.RawMessage(`{"name":"no handle"}`))

	sum, err := svc.Ingest(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Success != 3 || sum.Failed != 4 || sum.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Total() != len(input) {
		t.Errorf("every record must be counted: %d != %d", sum.Total(), len(input))
	}
}

func TestIngest_DuplicateOnInsertIsSkipped(t *testing.T) {
	store := newMockStore()
	store.raceOnUser = "racer"
	svc := newTestService(t, store, &mockEmbedder{}, Options{})

	sum, err := svc.Ingest(context.Background(), records("racer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Skipped != 1 {
		t.Fatalf("expected duplicate on insert to be skipped, got %+v", sum)
	}
}

func TestIngest_DuplicateWithinInput(t *testing.T) {
	store := newMockStore()
	svc := newTestService(t, store, &mockEmbedder{}, Options{BatchSize: 1})

	sum, err := svc.Ingest(context.Background(), records("twin", "twin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Success != 1 || sum.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	store := newMockStore()
	svc := newTestService(t, store, &mockEmbedder{}, Options{})
	input := records("a", "b", "c", "d")

	if _, err := svc.Ingest(context.Background(), input); err != nil {
		t.Fatal(err)
	}
	sum, err := svc.Ingest(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Success != 0 || sum.Skipped != len(input) {
		t.Fatalf("second run must skip everything, got %+v", sum)
	}
}

func TestIngest_ExistsErrorCountsFailed(t *testing.T) {
	store := newMockStore()
	store.existsErr = errors.New("store down")
	svc := newTestService(t, store, &mockEmbedder{}, Options{})

	sum, err := svc.Ingest(context.Background(), records("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Failed != 2 {
		t.Fatalf("expected 2 failed, got %+v", sum)
	}
}

func TestIngest_EmptyInput(t *testing.T) {
	svc := newTestService(t, newMockStore(), &mockEmbedder{}, Options{})

	_, err := svc.Ingest(context.Background(), nil)
	if !errors.Is(err, ErrEmptyInput) || !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrEmptyInput wrapping ErrInvalidInput, got %v", err)
	}
}

func TestIngest_TooManyRecords(t *testing.T) {
	svc := newTestService(t, newMockStore(), &mockEmbedder{}, Options{MaxRecords: 2})

	_, err := svc.Ingest(context.Background(), records("a", "b", "c"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngest_ConcurrencyBoundedByBatch(t *testing.T) {
	store := newMockStore()
	emb := &mockEmbedder{block: make(chan struct{})}
	svc := newTestService(t, store, emb, Options{BatchSize: 3, Concurrency: 3})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Ingest(context.Background(), records("a", "b", "c", "d", "e", "f", "g"))
	}()

	// release one embed at a time until the run completes
	for {
		select {
		case emb.block <- struct{}{}:
		case <-done:
			emb.mu.Lock()
			defer emb.mu.Unlock()
			if emb.peak > 3 {
				t.Fatalf("peak concurrency %d exceeds batch size 3", emb.peak)
			}
			if len(store.inserted) != 7 {
				t.Fatalf("expected 7 inserts, got %d", len(store.inserted))
			}
			return
		}
	}
}

func TestIngest_CanonicalTextEmbedded(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, newMockStore(), emb, Options{})

	raw := json.RawMessage(`{"username":"octo","name":"Octo Cat","followers":7,"skills":["go","k8s"],"languages":{"Rust":0.2,"Go":0.8}}`)
	if _, err := svc.Ingest(context.Background(), []json.RawMessage{raw}); err != nil {
		t.Fatal(err)
	}

	want := "GitHub user octo\nName: Octo Cat\nBio: \nLocation: \nPublic repos: 0\nFollowers: 7\n" +
		"Experience: 0 years\nSkills: go, k8s\nLanguages: {\"Go\":0.8,\"Rust\":0.2}"
	if len(emb.texts) != 1 || emb.texts[0] != want {
		t.Fatalf("unexpected canonical text:\n%q\nwant\n%q", emb.texts, want)
	}
}

func TestUsernameHint(t *testing.T) {
	if got := usernameHint(json.RawMessage(`{"username":"x"}`)); got != "x" {
		t.Errorf("expected x, got %q", got)
	}
	if got := usernameHint(json.RawMessage(`[1,2]`)); got != "" {
		t.Errorf("expected empty hint, got %q", got)
	}
}
