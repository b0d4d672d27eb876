package talentmatch

import (
	"encoding/json"
	"time"

	dombatch "github.com/kailas-cloud/talentmatch/internal/domain/batch"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
)

// Candidate is a developer profile as imported from a code hosting platform.
// Only Username is required.
type Candidate struct {
	Username        string             `json:"username"`
	Name            string             `json:"name,omitempty"`
	Bio             string             `json:"bio,omitempty"`
	Location        string             `json:"location,omitempty"`
	PublicRepos     *int               `json:"public_repos,omitempty"`
	TotalStars      *int               `json:"total_stars,omitempty"`
	Followers       *int               `json:"followers,omitempty"`
	ExperienceYears *float64           `json:"experience_years,omitempty"`
	PopularityScore *float64           `json:"popularity_score,omitempty"`
	Skills          []string           `json:"skills,omitempty"`
	Languages       map[string]float64 `json:"languages,omitempty"`
	GithubURL       string             `json:"github_url,omitempty"`
	ProfileData     json.RawMessage    `json:"profile_data,omitempty"`
}

// Match is a stored candidate with its similarity to the query, in [0, 1].
type Match struct {
	ID         string
	Candidate  Candidate
	Similarity float64
	CreatedAt  time.Time
}

// SearchResult holds the ranked matches and the model analysis of the best of
// them. Analysis is nil when the generative model is absent or failed.
type SearchResult struct {
	Matches  []Match
	Analysis *Analysis
}

// Analysis is the model's summary of the top matches.
type Analysis = search.Analysis

// Explanation is the model's assessment of a single candidate.
type Explanation = search.Explanation

// ImportSummary counts imported, failed and skipped records.
type ImportSummary = dombatch.Summary

func matchFromDomain(m search.Match) Match {
	a := m.Profile.Attributes()
	return Match{
		ID: m.Profile.ID(),
		Candidate: Candidate{
			Username:        a.Username,
			Name:            a.Name,
			Bio:             a.Bio,
			Location:        a.Location,
			PublicRepos:     a.PublicRepos,
			TotalStars:      a.TotalStars,
			Followers:       a.Followers,
			ExperienceYears: a.ExperienceYears,
			PopularityScore: a.PopularityScore,
			Skills:          a.Skills,
			Languages:       a.Languages,
			GithubURL:       a.ProfileURL,
			ProfileData:     a.ProfileData,
		},
		Similarity: m.Score,
		CreatedAt:  m.Profile.CreatedAt(),
	}
}

// compile-time check that Candidate and the import record stay field-compatible
var _ = domcand.Record(Candidate{})
