package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	dombatch "github.com/kailas-cloud/talentmatch/internal/domain/batch"
	"github.com/kailas-cloud/talentmatch/internal/domain/search"
	logpkg "github.com/kailas-cloud/talentmatch/internal/logger"
	healthuc "github.com/kailas-cloud/talentmatch/internal/usecase/health"
	usageuc "github.com/kailas-cloud/talentmatch/internal/usecase/usage"
)

// Client-facing messages kept identical to the hosted functions this API replaces.
const (
	msgQueryRequired = "Query string is required"
	msgUsersRequired = "Users array is required and must not be empty"
	msgInvalidBody   = "Request body must be a JSON object"
	msgBodyTooLarge  = "Request body too large"
	msgInternal      = "internal error"
)

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
const DefaultMaxBodyBytes int64 = 10 << 20

// Searcher runs the retrieve-then-explain pipeline.
type Searcher interface {
	Search(ctx context.Context, text string, filters map[string]any) (search.Result, error)
}

// Importer runs the ingestion pipeline over raw records.
type Importer interface {
	Ingest(ctx context.Context, records []json.RawMessage) (dombatch.Summary, error)
}

// HealthReporter aggregates dependency probes.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports token consumption against the budgets.
type UsageReporter interface {
	Report(ctx context.Context) usageuc.Report
}

// Options tunes request handling.
type Options struct {
	MaxBodyBytes int64
	Usage        UsageReporter // nil disables GET /usage
}

// Server serves the candidate search API.
type Server struct {
	search       Searcher
	importer     Importer
	health       HealthReporter
	usage        UsageReporter
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(searcher Searcher, importer Importer, health HealthReporter, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{
		search:       searcher,
		importer:     importer,
		health:       health,
		usage:        opts.Usage,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       logger,
	}
}

type searchRequest struct {
	Query   json.RawMessage `json:"query"`
	Filters map[string]any  `json:"filters"`
}

type searchResponse struct {
	Success         bool             `json:"success"`
	Candidates      []candidateJSON  `json:"candidates"`
	EnhancedResults *search.Analysis `json:"enhancedResults"`
}

type candidateJSON struct {
	ID              string             `json:"id"`
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
	CreatedAt       time.Time          `json:"created_at"`
	Similarity      float64            `json:"similarity"`
}

type importRequest struct {
	Users json.RawMessage `json:"users"`
}

type importResponse struct {
	Success bool             `json:"success"`
	Results dombatch.Summary `json:"results"`
	Message string           `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type usageResponse struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Budgets     []budgetJSON `json:"budgets"`
}

type budgetJSON struct {
	Kind    string       `json:"kind"`
	Action  string       `json:"action"`
	Periods []periodJSON `json:"periods"`
}

type periodJSON struct {
	Period    string    `json:"period"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Limit     int64     `json:"limit"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	Exhausted bool      `json:"exhausted"`
}

// SearchCandidates handles POST /search-candidates.
func (s *Server) SearchCandidates(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	// null, numbers and objects are rejected the same way as a missing field
	var text string
	if q := bytes.TrimSpace(req.Query); len(q) == 0 || q[0] != '"' || json.Unmarshal(q, &text) != nil {
		writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}

	res, err := s.search.Search(r.Context(), text, req.Filters)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	candidates := make([]candidateJSON, len(res.Matches))
	for i, m := range res.Matches {
		candidates[i] = candidateToJSON(m)
	}

	setUsageHeaders(w, r.Context())
	writeJSON(w, http.StatusOK, searchResponse{
		Success:         true,
		Candidates:      candidates,
		EnhancedResults: res.Analysis,
	})
}

// ImportGitHubUsers handles POST /import-github-users.
func (s *Server) ImportGitHubUsers(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var users []json.RawMessage
	if len(req.Users) == 0 || json.Unmarshal(req.Users, &users) != nil || len(users) == 0 {
		writeError(w, http.StatusBadRequest, msgUsersRequired)
		return
	}

	summary, err := s.importer.Ingest(r.Context(), users)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	setUsageHeaders(w, r.Context())
	writeJSON(w, http.StatusOK, importResponse{
		Success: true,
		Results: summary,
		Message: summary.Message(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Usage handles GET /usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeError(w, http.StatusNotFound, "usage reporting is disabled")
		return
	}

	report := s.usage.Report(r.Context())
	resp := usageResponse{GeneratedAt: report.GeneratedAt, Budgets: make([]budgetJSON, len(report.Kinds))}
	for i, k := range report.Kinds {
		b := budgetJSON{Kind: k.Kind, Action: k.Action, Periods: make([]periodJSON, len(k.Periods))}
		for j, p := range k.Periods {
			b.Periods[j] = periodJSON(p)
		}
		resp.Budgets[i] = b
	}
	writeJSON(w, http.StatusOK, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeBody reads a size-capped JSON body into v. On failure it writes the
// error response and returns false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, msgQueryRequired)
	case errors.Is(err, domain.ErrInvalidInput):
		log.Warn("invalid request", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTokenBudgetExhausted):
		log.Warn("token budget exhausted", zap.Error(err))
		writeError(w, http.StatusTooManyRequests, domain.ErrTokenBudgetExhausted.Error())
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, safeMessage(err))
	}
}

// safeMessage returns a sentinel message for the client without exposing internals.
func safeMessage(err error) string {
	sentinels := []error{
		domain.ErrEmbeddingUnavailable,
		domain.ErrGenerationUnavailable,
		domain.ErrVectorDimMismatch,
		domain.ErrRateLimited,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return msgInternal
}

func candidateToJSON(m search.Match) candidateJSON {
	p := m.Profile
	a := p.Attributes()
	skills := a.Skills
	if skills == nil {
		skills = []string{}
	}
	languages := a.Languages
	if languages == nil {
		languages = map[string]float64{}
	}
	return candidateJSON{
		ID:              p.ID(),
		Username:        a.Username,
		Name:            a.Name,
		Bio:             a.Bio,
		Location:        a.Location,
		PublicRepos:     a.PublicRepos,
		TotalStars:      a.TotalStars,
		Followers:       a.Followers,
		ExperienceYears: a.ExperienceYears,
		PopularityScore: a.PopularityScore,
		Skills:          skills,
		Languages:       languages,
		GithubURL:       a.ProfileURL,
		ProfileData:     a.ProfileData,
		CreatedAt:       p.CreatedAt(),
		Similarity:      m.Score,
	}
}

func setUsageHeaders(w http.ResponseWriter, ctx context.Context) {
	u := domain.UsageFromContext(ctx)
	if n := u.EmbeddingTokens(); n > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(n, 10))
	}
	if n := u.GenerationTokens(); n > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.FormatInt(n, 10))
	}
}

// writeJSON encodes before writing the status, so an unencodable value becomes
// a 500 instead of a 200 with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Success: false, Message: msgInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}
