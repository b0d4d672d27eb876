package search

import (
	"strings"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/candidate"
)

// FallbackSummary is returned when the model output could not be parsed.
const FallbackSummary = "Unable to generate analysis"

// NoMatchesSummary is returned when retrieval found nothing to explain.
const NoMatchesSummary = "No candidates matched the query"

// Query is a free-text recruiter request. Filters are carried through untouched.
type Query struct {
	text    string
	filters map[string]any
}

// NewQuery validates the query text; blank text is ErrInvalidQuery.
func NewQuery(text string, filters map[string]any) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, domain.ErrInvalidQuery
	}
	return Query{text: text, filters: filters}, nil
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// Filters returns the opaque filter object supplied by the caller.
func (q Query) Filters() map[string]any { return q.filters }

// Match is one retrieved candidate with its similarity in [0,1].
type Match struct {
	Profile candidate.Profile
	Score   float64
}

// Explanation is the model's justification for one candidate.
type Explanation struct {
	Username          string   `json:"username"`
	MatchReason       string   `json:"matchReason"`
	Strengths         []string `json:"strengths"`
	PotentialConcerns []string `json:"potential_concerns"`
}

// Analysis is the enhanced, best-effort annotation of a result set.
type Analysis struct {
	Summary       string        `json:"analysis"`
	TopCandidates []Explanation `json:"topCandidates"`
}

// FallbackAnalysis is the degraded value for unparseable model output.
func FallbackAnalysis() *Analysis {
	return &Analysis{Summary: FallbackSummary, TopCandidates: []Explanation{}}
}

// NoMatchesAnalysis is returned without calling the model when there is nothing to rank.
func NoMatchesAnalysis() *Analysis {
	return &Analysis{Summary: NoMatchesSummary, TopCandidates: []Explanation{}}
}

// IsFallback reports whether a is the degraded fallback value.
func (a *Analysis) IsFallback() bool {
	return a != nil && a.Summary == FallbackSummary && len(a.TopCandidates) == 0
}

// Result is the orchestrated search response. Analysis is nil when re-ranking failed.
type Result struct {
	Matches  []Match
	Analysis *Analysis
}
