package rerank

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/talentmatch/internal/domain/search"
)

// promptCandidate is what the model sees of a candidate. Embeddings and the
// raw source payload are left out; they cost tokens and carry no signal.
type promptCandidate struct {
	Username        string             `json:"username"`
	Name            string             `json:"name,omitempty"`
	Bio             string             `json:"bio,omitempty"`
	Location        string             `json:"location,omitempty"`
	PublicRepos     *int               `json:"public_repos,omitempty"`
	TotalStars      *int               `json:"total_stars,omitempty"`
	Followers       *int               `json:"followers,omitempty"`
	ExperienceYears *float64           `json:"experience_years,omitempty"`
	Skills          []string           `json:"skills,omitempty"`
	Languages       map[string]float64 `json:"languages,omitempty"`
	Similarity      float64            `json:"similarity"`
}

const promptTemplate = `You are an expert recruiter assistant helping to match candidates to job requirements.
Based on the search query: %q
And these candidate profiles:
%s

Provide a brief analysis of the top %d candidates that best match the query.
Only use usernames from the profiles above.
Return your response as valid JSON with this structure:
{
  "analysis": "Your overall analysis of the match quality",
  "topCandidates": [
    {
      "username": "candidate username",
      "matchReason": "Specific reason why this candidate is a good match",
      "strengths": ["strength1", "strength2"],
      "potential_concerns": ["concern1", "concern2"]
    }
  ]
}`

// BuildPrompt renders the instruction sent to the generative model.
func BuildPrompt(query string, matches []search.Match, topN int) (string, error) {
	cands := make([]promptCandidate, len(matches))
	for i, m := range matches {
		a := m.Profile.Attributes()
		cands[i] = promptCandidate{
			Username:        a.Username,
			Name:            a.Name,
			Bio:             a.Bio,
			Location:        a.Location,
			PublicRepos:     a.PublicRepos,
			TotalStars:      a.TotalStars,
			Followers:       a.Followers,
			ExperienceYears: a.ExperienceYears,
			Skills:          a.Skills,
			Languages:       a.Languages,
			Similarity:      m.Score,
		}
	}

	body, err := json.MarshalIndent(cands, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(query), body, topN), nil
}
