package retrieval

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
)

// CandidateSearcher answers similarity queries over stored profiles.
type CandidateSearcher interface {
	SearchBySimilarity(ctx context.Context, vector []float32, threshold float64, limit int) ([]search.Match, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
