package candidate

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MaxUsernameLength bounds the natural key; GitHub caps logins at 39 characters,
// other sources get some headroom.
const MaxUsernameLength = 100

// Attributes are the descriptive fields of a candidate as supplied by the source platform.
// Optional numbers are pointers so "absent" survives a round trip through storage.
type Attributes struct {
	Username        string
	Name            string
	Bio             string
	Location        string
	PublicRepos     *int
	TotalStars      *int
	Followers       *int
	ExperienceYears *float64
	PopularityScore *float64
	Skills          []string
	Languages       map[string]float64
	ProfileURL      string
	ProfileData     json.RawMessage
}

// Profile is the candidate aggregate (immutable value object).
// A profile is searchable only once it carries an embedding.
type Profile struct {
	id        string
	seq       int64
	attrs     Attributes
	embedding []float32
	createdAt time.Time
}

// New validates attributes and creates an unsaved Profile.
// The username is trimmed; ProfileURL defaults to https://github.com/{username}.
func New(attrs Attributes) (Profile, error) {
	attrs.Username = strings.TrimSpace(attrs.Username)
	if attrs.Username == "" {
		return Profile{}, fmt.Errorf("username is required")
	}
	if len(attrs.Username) > MaxUsernameLength {
		return Profile{}, fmt.Errorf("username too long (max %d)", MaxUsernameLength)
	}
	if strings.ContainsAny(attrs.Username, " \t\r\n") {
		return Profile{}, fmt.Errorf("username %q must not contain whitespace", attrs.Username)
	}
	if attrs.ProfileURL == "" {
		attrs.ProfileURL = "https://github.com/" + attrs.Username
	}
	if len(attrs.ProfileData) == 0 {
		attrs.ProfileData = json.RawMessage("{}")
	}
	return Profile{attrs: cloneAttributes(attrs)}, nil
}

// Reconstruct creates a Profile without validation (storage hydration).
func Reconstruct(id string, seq int64, attrs Attributes, embedding []float32, createdAt time.Time) Profile {
	return Profile{
		id:        id,
		seq:       seq,
		attrs:     cloneAttributes(attrs),
		embedding: slices.Clone(embedding),
		createdAt: createdAt,
	}
}

// ID returns the store-assigned identifier; empty before insertion.
func (p Profile) ID() string { return p.id }

// Seq returns the insertion sequence number used to break similarity ties.
func (p Profile) Seq() int64 { return p.seq }

// Username returns the unique handle.
func (p Profile) Username() string { return p.attrs.Username }

// Attributes returns a copy of the descriptive fields.
func (p Profile) Attributes() Attributes { return cloneAttributes(p.attrs) }

// Embedding returns the vector, nil if the profile has not been embedded.
func (p Profile) Embedding() []float32 { return p.embedding }

// CreatedAt returns the insertion time.
func (p Profile) CreatedAt() time.Time { return p.createdAt }

// WithEmbedding returns a copy carrying the given vector.
func (p Profile) WithEmbedding(v []float32) Profile {
	p.embedding = slices.Clone(v)
	return p
}

// Stored returns a copy stamped with the identity assigned at insertion.
func (p Profile) Stored(id string, seq int64, createdAt time.Time) Profile {
	p.id = id
	p.seq = seq
	p.createdAt = createdAt
	return p
}

// ErrDegenerateVector marks an embedding with zero norm or a non-finite component.
var ErrDegenerateVector = errors.New("degenerate embedding")

// CheckDimension fails when the embedding is missing, not dim long, or
// degenerate (ErrDegenerateVector).
func (p Profile) CheckDimension(dim int) error {
	if len(p.embedding) == 0 {
		return fmt.Errorf("candidate %s has no embedding", p.attrs.Username)
	}
	if dim > 0 && len(p.embedding) != dim {
		return fmt.Errorf("candidate %s: got %d dimensions, index expects %d",
			p.attrs.Username, len(p.embedding), dim)
	}
	var norm float64
	for _, x := range p.embedding {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("candidate %s: %w: non-finite component", p.attrs.Username, ErrDegenerateVector)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("candidate %s: %w: zero norm", p.attrs.Username, ErrDegenerateVector)
	}
	return nil
}

// CanonicalText renders the fixed-order text that gets embedded.
// Changing this layout invalidates every stored vector.
func (p Profile) CanonicalText() string {
	a := p.attrs
	languages := "{}"
	if len(a.Languages) > 0 {
		// map keys marshal sorted, which keeps the text stable across runs
		if b, err := json.Marshal(a.Languages); err == nil {
			languages = string(b)
		}
	}

	var sb strings.Builder
	sb.WriteString("GitHub user " + a.Username + "\n")
	sb.WriteString("Name: " + a.Name + "\n")
	sb.WriteString("Bio: " + a.Bio + "\n")
	sb.WriteString("Location: " + a.Location + "\n")
	sb.WriteString("Public repos: " + intOrZero(a.PublicRepos) + "\n")
	sb.WriteString("Followers: " + intOrZero(a.Followers) + "\n")
	sb.WriteString("Experience: " + floatOrZero(a.ExperienceYears) + " years\n")
	sb.WriteString("Skills: " + strings.Join(a.Skills, ", ") + "\n")
	sb.WriteString("Languages: " + languages)
	return sb.String()
}

func intOrZero(v *int) string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(*v)
}

func floatOrZero(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func cloneAttributes(a Attributes) Attributes {
	a.PublicRepos = clonePtr(a.PublicRepos)
	a.TotalStars = clonePtr(a.TotalStars)
	a.Followers = clonePtr(a.Followers)
	a.ExperienceYears = clonePtr(a.ExperienceYears)
	a.PopularityScore = clonePtr(a.PopularityScore)
	a.Skills = slices.Clone(a.Skills)
	a.Languages = maps.Clone(a.Languages)
	a.ProfileData = slices.Clone(a.ProfileData)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
