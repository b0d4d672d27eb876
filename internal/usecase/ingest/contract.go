package ingest

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
)

// CandidateWriter checks and stores candidate profiles.
type CandidateWriter interface {
	Exists(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, p domcand.Profile) (string, error)
}

// Embedder vectorizes canonical profile text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
