// Package ingest turns raw candidate records into embedded, stored profiles.
// Records are processed in fixed-size batches and one record's failure never
// affects another.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	dombatch "github.com/kailas-cloud/talentmatch/internal/domain/batch"
	domcand "github.com/kailas-cloud/talentmatch/internal/domain/candidate"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// Defaults for Options fields left at zero.
const (
	DefaultBatchSize  = 10
	DefaultMaxRecords = 5000
)

// ErrEmptyInput is returned when there is nothing to import.
var ErrEmptyInput = fmt.Errorf("%w: users array is required and must not be empty", domain.ErrInvalidInput)

var tracer = otel.Tracer("talentmatch/usecase/ingest")

// Options tunes the pipeline.
type Options struct {
	BatchSize   int
	Concurrency int // workers per batch; defaults to BatchSize
	MaxRecords  int
}

// Service runs the ingestion pipeline.
type Service struct {
	store  CandidateWriter
	embed  Embedder
	pool   *ants.Pool
	opts   Options
	logger *zap.Logger
}

// New creates an ingestion service with its worker pool. Call Close to release it.
func New(store CandidateWriter, embed Embedder, opts Options, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = opts.BatchSize
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}

	pool, err := ants.NewPool(opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Service{store: store, embed: embed, pool: pool, opts: opts, logger: logger}, nil
}

// Close releases the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// Ingest processes records batch by batch and returns per-status counts.
// Only an empty or oversized input is an error; every per-record problem is
// counted as failed or skipped.
func (s *Service) Ingest(ctx context.Context, records []json.RawMessage) (dombatch.Summary, error) {
	if len(records) == 0 {
		return dombatch.Summary{}, ErrEmptyInput
	}
	if len(records) > s.opts.MaxRecords {
		return dombatch.Summary{}, fmt.Errorf("%w: at most %d users per import, got %d",
			domain.ErrInvalidInput, s.opts.MaxRecords, len(records))
	}

	ctx, span := tracer.Start(ctx, "ingest.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("batch_size", s.opts.BatchSize),
	)

	var summary dombatch.Summary
	batches := (len(records) + s.opts.BatchSize - 1) / s.opts.BatchSize

	for b := range batches {
		start := b * s.opts.BatchSize
		end := min(start+s.opts.BatchSize, len(records))

		s.logger.Info("Processing batch",
			zap.Int("batch", b+1),
			zap.Int("batches", batches),
			zap.Int("users", end-start),
		)

		for _, r := range s.processBatch(ctx, records[start:end]) {
			summary.Add(r)
			metrics.IngestRecordsTotal.WithLabelValues(string(r.Status())).Inc()
			if r.Status() == dombatch.StatusFailed {
				s.logger.Warn("Failed to import user",
					zap.String("username", r.Username()),
					zap.Error(r.Err()),
				)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("success", summary.Success),
		attribute.Int("failed", summary.Failed),
		attribute.Int("skipped", summary.Skipped),
	)
	span.SetStatus(codes.Ok, summary.Message())

	s.logger.Info("Import finished",
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// processBatch runs one batch on the pool and waits for all of it.
// Results keep input order.
func (s *Service) processBatch(ctx context.Context, batch []json.RawMessage) []dombatch.Result {
	results := make([]dombatch.Result, len(batch))
	done := make(chan struct{}, len(batch))

	submitted := 0
	for i, raw := range batch {
		err := s.pool.Submit(func() {
			defer func() { done <- struct{}{} }()
			results[i] = s.processRecord(ctx, raw)
		})
		if err != nil {
			results[i] = dombatch.NewFailed(usernameHint(raw), fmt.Errorf("schedule record: %w", err))
			continue
		}
		submitted++
	}

	for range submitted {
		<-done
	}
	return results
}

// processRecord validates, embeds and stores one record.
func (s *Service) processRecord(ctx context.Context, raw json.RawMessage) (res dombatch.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = dombatch.NewFailed(usernameHint(raw), fmt.Errorf("panic: %v", p))
		}
	}()

	rec, err := domcand.ParseRecord(raw)
	if err != nil {
		return dombatch.NewFailed("", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
	}
	profile, err := rec.Profile()
	if err != nil {
		return dombatch.NewFailed(rec.Username, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
	}
	username := profile.Username()

	exists, err := s.store.Exists(ctx, username)
	if err != nil {
		return dombatch.NewFailed(username, fmt.Errorf("check existing: %w", err))
	}
	if exists {
		return dombatch.NewSkipped(username)
	}

	emb, err := s.embed.Embed(ctx, profile.CanonicalText())
	if err != nil {
		return dombatch.NewFailed(username, fmt.Errorf("embed profile: %w", err))
	}

	if _, err := s.store.Insert(ctx, profile.WithEmbedding(emb.Embedding)); err != nil {
		// a concurrent import stored the handle between Exists and Insert
		if errors.Is(err, domain.ErrDuplicateHandle) {
			return dombatch.NewSkipped(username)
		}
		return dombatch.NewFailed(username, fmt.Errorf("store profile: %w", err))
	}
	return dombatch.NewOK(username)
}

// usernameHint extracts a handle for logging from a record that may not parse.
func usernameHint(raw json.RawMessage) string {
	var v struct {
		Username string `json:"username"`
	}
	_ = json.Unmarshal(raw, &v)
	return v.Username
}
