package candidate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/talentmatch/internal/db"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	mu          sync.Mutex
	docs        map[string][]byte
	seq         int64
	indexExists bool
	created     *db.IndexDefinition

	existsErr error
	setErr    error
	searchFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func newMockStore() *mockStore {
	return &mockStore{docs: map[string][]byte{}}
}

func (m *mockStore) JSONSetNX(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if _, ok := m.docs[key]; ok {
		return db.ErrKeyExists
	}
	m.docs[key] = data
	return nil
}

func (m *mockStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append(append([]byte("["), data...), ']'), nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.docs[key]
	return ok, nil
}

func (m *mockStore) Incr(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if m.indexExists {
		return db.ErrIndexExists
	}
	m.created = def
	return nil
}

func (m *mockStore) IndexExists(context.Context, string) (bool, error) {
	return m.indexExists, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T, dim int) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	r := New(ms, Config{KeyPrefix: "test:", IndexName: "candidates", Dimensions: dim, HNSWM: 16, EFConstruct: 200})
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return r, ms
}

func embeddedProfile(t *testing.T, username string, vec ...float32) domcand.Profile {
	t.Helper()
	p, err := domcand.New(domcand.Attributes{Username: username, Bio: "Go developer"})
	if err != nil {
		t.Fatalf("new profile: %v", err)
	}
	return p.WithEmbedding(vec)
}

var testTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
