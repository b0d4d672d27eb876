package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an untrusted raw candidate as posted by an importer.
// Only the username is required; everything else is best effort.
type Record struct {
	Username        string             `json:"username"`
	Name            string             `json:"name"`
	Bio             string             `json:"bio"`
	Location        string             `json:"location"`
	PublicRepos     *int               `json:"public_repos"`
	TotalStars      *int               `json:"total_stars"`
	Followers       *int               `json:"followers"`
	ExperienceYears *float64           `json:"experience_years"`
	PopularityScore *float64           `json:"popularity_score"`
	Skills          []string           `json:"skills"`
	Languages       map[string]float64 `json:"languages"`
	GithubURL       string             `json:"github_url"`
	ProfileData     json.RawMessage    `json:"profile_data"`
}

// ParseRecord decodes one raw JSON object. Unknown fields are ignored.
func ParseRecord(raw json.RawMessage) (Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{}, fmt.Errorf("record must be a JSON object")
	}
	var r Record
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(r.ProfileData), []byte("null")) {
		r.ProfileData = nil
	}
	return r, nil
}

// Profile converts the record into a validated, not yet embedded Profile.
func (r Record) Profile() (Profile, error) {
	return New(Attributes{
		Username:        r.Username,
		Name:            r.Name,
		Bio:             r.Bio,
		Location:        r.Location,
		PublicRepos:     r.PublicRepos,
		TotalStars:      r.TotalStars,
		Followers:       r.Followers,
		ExperienceYears: r.ExperienceYears,
		PopularityScore: r.PopularityScore,
		Skills:          r.Skills,
		Languages:       r.Languages,
		ProfileURL:      r.GithubURL,
		ProfileData:     r.ProfileData,
	})
}
