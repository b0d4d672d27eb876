package rerank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
)

// Parse outcomes, also used as metric labels.
const (
	OutcomeParsed   = "parsed"
	OutcomeRepaired = "repaired"
	OutcomeFallback = "fallback"
)

// rawAnalysis is the lenient wire shape of the model answer.
type rawAnalysis struct {
	Analysis      *string          `json:"analysis"`
	TopCandidates []rawExplanation `json:"topCandidates"`
}

type rawExplanation struct {
	Username          string     `json:"username"`
	MatchReason       string     `json:"matchReason"`
	Strengths         stringList `json:"strengths"`
	PotentialConcerns stringList `json:"potential_concerns"`
}

// stringList accepts a JSON array of scalars or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s != "" {
			*l = stringList{s}
		}
		return nil
	}
	var items []any
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(stringList, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case nil:
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	*l = out
	return nil
}

// ParseAnalysis turns model text into an Analysis. It never fails: text that
// cannot be read as the requested structure yields the fallback analysis.
// allowed restricts explanations to retrieved usernames; topN caps the list.
func ParseAnalysis(text string, allowed map[string]bool, topN int) (*search.Analysis, string) {
	raw, outcome, err := decode(text)
	if err != nil {
		return search.FallbackAnalysis(), OutcomeFallback
	}
	return normalize(raw, allowed, topN), outcome
}

func decode(text string) (rawAnalysis, string, error) {
	candidate := extractJSON(text)
	if candidate == "" {
		return rawAnalysis{}, "", fmt.Errorf("%w: no JSON object in output", domain.ErrMalformedOutput)
	}

	if raw, err := unmarshalAnalysis(candidate); err == nil {
		return raw, OutcomeParsed, nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return rawAnalysis{}, "", fmt.Errorf("%w: repair: %w", domain.ErrMalformedOutput, err)
	}
	raw, err := unmarshalAnalysis(repaired)
	if err != nil {
		return rawAnalysis{}, "", err
	}
	return raw, OutcomeRepaired, nil
}

func unmarshalAnalysis(s string) (rawAnalysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return rawAnalysis{}, fmt.Errorf("%w: %w", domain.ErrMalformedOutput, err)
	}
	if raw.Analysis == nil && raw.TopCandidates == nil {
		return rawAnalysis{}, fmt.Errorf("%w: neither analysis nor topCandidates present", domain.ErrMalformedOutput)
	}
	return raw, nil
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the span from the first '{' to the last '}'.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		// truncated output; let the repair step close it
		return text[start:]
	}
	return text[start : end+1]
}

func normalize(raw rawAnalysis, allowed map[string]bool, topN int) *search.Analysis {
	out := &search.Analysis{TopCandidates: []search.Explanation{}}
	if raw.Analysis != nil {
		out.Summary = strings.TrimSpace(*raw.Analysis)
	}

	seen := make(map[string]bool, len(raw.TopCandidates))
	for _, e := range raw.TopCandidates {
		username := strings.TrimPrefix(strings.TrimSpace(e.Username), "@")
		if username == "" || seen[username] {
			continue
		}
		if allowed != nil && !allowed[username] {
			continue
		}
		seen[username] = true
		out.TopCandidates = append(out.TopCandidates, search.Explanation{
			Username:          username,
			MatchReason:       strings.TrimSpace(e.MatchReason),
			Strengths:         nonNil(e.Strengths),
			PotentialConcerns: nonNil(e.PotentialConcerns),
		})
		if topN > 0 && len(out.TopCandidates) == topN {
			break
		}
	}
	return out
}

func nonNil(l stringList) []string {
	if l == nil {
		return []string{}
	}
	return l
}
