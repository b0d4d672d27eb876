package search

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/domain/search"
)

// Retriever is the similarity retrieval stage.
type Retriever interface {
	Retrieve(ctx context.Context, q search.Query) ([]search.Match, error)
}

// Explainer is the best-effort re-ranking stage.
type Explainer interface {
	Explain(ctx context.Context, q search.Query, matches []search.Match) (*search.Analysis, error)
}
