package talentmatch

import "github.com/kailas-cloud/talentmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput          = domain.ErrInvalidInput
	ErrInvalidQuery          = domain.ErrInvalidQuery
	ErrDuplicateHandle       = domain.ErrDuplicateHandle
	ErrVectorDimMismatch     = domain.ErrVectorDimMismatch
	ErrEmbeddingUnavailable  = domain.ErrEmbeddingUnavailable
	ErrGenerationUnavailable = domain.ErrGenerationUnavailable
	ErrRateLimited           = domain.ErrRateLimited
)
