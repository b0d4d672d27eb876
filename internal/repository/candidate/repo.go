// Package candidate persists candidate profiles as JSON documents in Redis or
// Valkey and answers KNN similarity queries through the search module.
package candidate

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/talentmatch/internal/db"
	"github.com/kailas-cloud/talentmatch/internal/domain"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
)

// overfetch widens the KNN window so the threshold filter still has limit
// results to choose from when HNSW returns a slightly different neighbourhood.
const overfetch = 4

// store is the consumer interface for candidates (ISP).
type store interface {
	JSONSetNX(ctx context.Context, key string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config describes the key layout and vector index of the repository.
type Config struct {
	KeyPrefix   string // e.g. "talentmatch:"
	IndexName   string
	Dimensions  int
	HNSWM       int
	EFConstruct int
}

// Repo implements the candidate store on top of db.Store.
type Repo struct {
	store store
	cfg   Config
	now   func() time.Time
}

// New creates a candidate repository.
func New(s store, cfg Config) *Repo {
	if cfg.IndexName == "" {
		cfg.IndexName = "candidates"
	}
	return &Repo{store: s, cfg: cfg, now: time.Now}
}

// Dimensions returns the vector dimension the index was built for.
func (r *Repo) Dimensions() int { return r.cfg.Dimensions }

// EnsureIndex creates the vector index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.cfg, r.keyPrefix())
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

// Exists reports whether a candidate with the given handle is stored.
func (r *Repo) Exists(ctx context.Context, username string) (bool, error) {
	key := r.key(username)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	return ok, nil
}

// Get returns a stored candidate by handle.
func (r *Repo) Get(ctx context.Context, username string) (domcand.Profile, error) {
	key := r.key(username)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		return domcand.Profile{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	doc, err := decodeDoc(string(raw))
	if err != nil {
		return domcand.Profile{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc.toProfile(), nil
}

// Insert stores an embedded profile and returns its assigned id.
// The write is conditional on the key being absent, so two concurrent imports
// of the same handle cannot both succeed.
func (r *Repo) Insert(ctx context.Context, p domcand.Profile) (string, error) {
	if err := CheckEmbedding(p, r.cfg.Dimensions); err != nil {
		return "", err
	}

	seq, err := r.store.Incr(ctx, r.seqKey())
	if err != nil {
		return "", fmt.Errorf("allocate sequence: %w", err)
	}
	stored := p.Stored(uuid.NewString(), seq, r.now().UTC())

	data, err := json.Marshal(newDoc(stored))
	if err != nil {
		return "", fmt.Errorf("marshal candidate: %w", err)
	}

	key := r.key(p.Username())
	if err := r.store.JSONSetNX(ctx, key, data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return "", fmt.Errorf("%s: %w", p.Username(), domain.ErrDuplicateHandle)
		}
		return "", fmt.Errorf("json.set %s: %w", key, err)
	}
	return stored.ID(), nil
}

// SearchBySimilarity returns candidates with similarity >= threshold ordered by
// descending similarity, ties broken by insertion order, at most limit long.
func (r *Repo) SearchBySimilarity(
	ctx context.Context, vector []float32, threshold float64, limit int,
) ([]search.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	if r.cfg.Dimensions > 0 && len(vector) != r.cfg.Dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d: %w",
			len(vector), r.cfg.Dimensions, domain.ErrVectorDimMismatch)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Vector:       vector,
		K:            limit * overfetch,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w", r.cfg.IndexName, err)
	}

	matches := make([]search.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		if !(e.Score >= threshold) { // NaN never passes
			continue
		}
		doc, err := decodeDoc(e.Fields["$"])
		if err != nil {
			// index and keyspace can briefly disagree; skip the entry rather than fail the query
			continue
		}
		matches = append(matches, search.Match{Profile: doc.toProfile(), Score: e.Score})
	}

	SortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CheckEmbedding maps a profile's embedding check onto domain errors:
// ErrEmbeddingUnavailable for degenerate vectors, ErrVectorDimMismatch otherwise.
func CheckEmbedding(p domcand.Profile, dim int) error {
	err := p.CheckDimension(dim)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domcand.ErrDegenerateVector):
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrVectorDimMismatch, err)
	}
}

// SortMatches orders by descending score, then ascending insertion sequence.
func SortMatches(m []search.Match) {
	slices.SortStableFunc(m, func(a, b search.Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Profile.Seq(), b.Profile.Seq())
	})
}

func (r *Repo) keyPrefix() string {
	return r.cfg.KeyPrefix + "candidate:"
}

func (r *Repo) key(username string) string {
	return r.keyPrefix() + username
}

func (r *Repo) seqKey() string {
	return r.cfg.KeyPrefix + "candidate_seq"
}
