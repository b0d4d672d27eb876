package candidate

import (
	"fmt"

	"github.com/kailas-cloud/talentmatch/internal/db"
)

// buildIndex declares the FT index over candidate JSON documents.
// Only the vector drives retrieval; the tag and numeric fields keep the
// index usable for pre-filtered KNN queries.
func buildIndex(cfg Config, prefix string) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(cfg.IndexName).
		OnJSON().
		Prefix(prefix).
		Tag("$.username").As("username").
		Tag("$.location").As("location").
		Numeric("$.seq").As("seq").
		Numeric("$.experience_years").As("experience_years").
		Numeric("$.followers").As("followers").
		VectorHNSW("$.embedding", cfg.Dimensions, db.DistanceCosine, cfg.HNSWM, cfg.EFConstruct).As("vector").
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", cfg.IndexName, err)
	}
	return def, nil
}
