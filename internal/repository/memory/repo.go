// Package memory is an in-process candidate store backed by chromem-go.
// It serves local runs and tests without a Redis or Valkey instance.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
	repocand "github.com/kailas-cloud/talentmatch/internal/repository/candidate"
)

const collectionName = "candidates"

var errPrecomputed = errors.New("candidate embeddings are computed before insertion")

// Repo keeps profiles in memory and delegates nearest-neighbour search to a
// chromem collection.
type Repo struct {
	mu         sync.RWMutex
	collection *chromem.Collection
	profiles   map[string]domcand.Profile
	seq        int64
	dim        int
	now        func() time.Time
}

// New creates an empty in-memory store for vectors of dimension dim.
func New(dim int) (*Repo, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, func(context.Context, string) ([]float32, error) {
		return nil, errPrecomputed
	})
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Repo{
		collection: col,
		profiles:   make(map[string]domcand.Profile),
		dim:        dim,
		now:        time.Now,
	}, nil
}

// Dimensions returns the vector dimension the store accepts.
func (r *Repo) Dimensions() int { return r.dim }

// EnsureIndex is a no-op; the collection exists from construction.
func (r *Repo) EnsureIndex(context.Context) error { return nil }

// Exists reports whether a candidate with the given handle is stored.
func (r *Repo) Exists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.profiles[username]
	return ok, nil
}

// Insert stores an embedded profile and returns its assigned id.
func (r *Repo) Insert(ctx context.Context, p domcand.Profile) (string, error) {
	if err := repocand.CheckEmbedding(p, r.dim); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.Username()]; ok {
		return "", fmt.Errorf("%s: %w", p.Username(), domain.ErrDuplicateHandle)
	}

	stored := p.Stored(uuid.NewString(), r.seq+1, r.now().UTC())
	err := r.collection.AddDocument(ctx, chromem.Document{
		ID: stored.Username(),
		Metadata: map[string]string{
			"id":  stored.ID(),
			"seq": strconv.FormatInt(stored.Seq(), 10),
		},
		Embedding: stored.Embedding(),
		Content:   stored.CanonicalText(),
	})
	if err != nil {
		return "", fmt.Errorf("add document %s: %w", stored.Username(), err)
	}

	r.seq = stored.Seq()
	r.profiles[stored.Username()] = stored
	return stored.ID(), nil
}

// SearchBySimilarity returns candidates with similarity >= threshold ordered by
// descending similarity, ties broken by insertion order, at most limit long.
// The scan is exhaustive, so results are exact.
func (r *Repo) SearchBySimilarity(
	ctx context.Context, vector []float32, threshold float64, limit int,
) ([]search.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	if r.dim > 0 && len(vector) != r.dim {
		return nil, fmt.Errorf("query vector has %d dimensions, store expects %d: %w",
			len(vector), r.dim, domain.ErrVectorDimMismatch)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.collection.Count()
	if n == 0 {
		return nil, nil
	}

	// chromem requires nResults <= document count; fetch all so ties at the
	// cut-off are resolved by sequence rather than by chromem's heap order.
	results, err := r.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	matches := make([]search.Match, 0, min(len(results), limit))
	for _, res := range results {
		score := max(0, float64(res.Similarity))
		if !(score >= threshold) { // NaN never passes
			continue
		}
		p, ok := r.profiles[res.ID]
		if !ok {
			continue
		}
		matches = append(matches, search.Match{Profile: p, Score: score})
	}

	repocand.SortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
