package candidate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
)

// candidateDoc is the JSON document layout stored under each candidate key.
type candidateDoc struct {
	ID              string             `json:"id"`
	Seq             int64              `json:"seq"`
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
	ProfileURL      string             `json:"github_url,omitempty"`
	ProfileData     json.RawMessage    `json:"profile_data,omitempty"`
	Embedding       []float32          `json:"embedding"`
	CreatedAt       time.Time          `json:"created_at"`
}

func newDoc(p domcand.Profile) candidateDoc {
	a := p.Attributes()
	return candidateDoc{
		ID:              p.ID(),
		Seq:             p.Seq(),
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
		ProfileURL:      a.ProfileURL,
		ProfileData:     a.ProfileData,
		Embedding:       p.Embedding(),
		CreatedAt:       p.CreatedAt(),
	}
}

func (d candidateDoc) toProfile() domcand.Profile {
	return domcand.Reconstruct(d.ID, d.Seq, domcand.Attributes{
		Username:        d.Username,
		Name:            d.Name,
		Bio:             d.Bio,
		Location:        d.Location,
		PublicRepos:     d.PublicRepos,
		TotalStars:      d.TotalStars,
		Followers:       d.Followers,
		ExperienceYears: d.ExperienceYears,
		PopularityScore: d.PopularityScore,
		Skills:          d.Skills,
		Languages:       d.Languages,
		ProfileURL:      d.ProfileURL,
		ProfileData:     d.ProfileData,
	}, d.Embedding, d.CreatedAt)
}

// decodeDoc parses a stored document. JSON.GET with a "$" path wraps the
// object in an array; FT.SEARCH under DIALECT 2 returns it bare.
func decodeDoc(raw string) (candidateDoc, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return candidateDoc{}, fmt.Errorf("empty document")
	}
	if strings.HasPrefix(raw, "[") {
		var docs []candidateDoc
		if err := json.Unmarshal([]byte(raw), &docs); err != nil {
			return candidateDoc{}, fmt.Errorf("unmarshal document array: %w", err)
		}
		if len(docs) == 0 {
			return candidateDoc{}, fmt.Errorf("empty document array")
		}
		return docs[0], nil
	}
	var doc candidateDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return candidateDoc{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
