// Package budget caps the tokens spent on a model per UTC day and month.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// Action defines behavior when a budget is spent.
type Action string

const (
	// ActionWarn logs a warning but lets the call through.
	ActionWarn Action = "warn"
	// ActionReject fails the call with domain.ErrTokenBudgetExhausted.
	ActionReject Action = "reject"
)

// Model kinds tracked separately.
const (
	KindEmbedding  = "embedding"
	KindGeneration = "generation"
)

const persistTimeout = 2 * time.Second

// Store persists counters. IncrBy returns the total across all writers.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// Limits are token caps per period; zero means unlimited.
type Limits struct {
	Daily   int64
	Monthly int64
	Action  Action
}

// Snapshot is a consistent view of one tracker.
type Snapshot struct {
	Kind         string
	Action       Action
	DailyLimit   int64
	MonthlyLimit int64
	DailyUsed    int64
	MonthlyUsed  int64
	Day          time.Time // start of the current UTC day
	Month        time.Time // start of the current UTC month
}

// RemainingDaily returns tokens left today, -1 when unlimited.
func (s Snapshot) RemainingDaily() int64 { return remaining(s.DailyLimit, s.DailyUsed) }

// RemainingMonthly returns tokens left this month, -1 when unlimited.
func (s Snapshot) RemainingMonthly() int64 { return remaining(s.MonthlyLimit, s.MonthlyUsed) }

func remaining(limit, used int64) int64 {
	if limit <= 0 {
		return -1
	}
	return max(limit-used, 0)
}

// Tracker counts tokens in memory and writes them through to an optional Store.
// Check never leaves the process; Record syncs with the store's totals so
// replicas converge on the shared count.
type Tracker struct {
	mu          sync.Mutex
	kind        string
	keyPrefix   string
	limits      Limits
	dailyUsed   int64
	monthlyUsed int64
	day         time.Time
	month       time.Time
	store       Store
	now         func() time.Time
	logger      *zap.Logger
}

// NewTracker creates a tracker for one model kind.
func NewTracker(kind, keyPrefix string, limits Limits, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.Action == "" {
		limits.Action = ActionWarn
	}
	t := &Tracker{
		kind:      kind,
		keyPrefix: keyPrefix,
		limits:    limits,
		now:       time.Now,
		logger:    logger,
	}
	t.day, t.month = periodStarts(t.now())
	return t
}

// WithStore attaches a persistence store and loads the current counters.
func (t *Tracker) WithStore(ctx context.Context, s Store) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = s
	t.rollover()
	if v, err := s.Get(ctx, t.dailyKey()); err == nil {
		t.dailyUsed = v
	} else {
		t.logger.Warn("Failed to load daily token usage", zap.String("kind", t.kind), zap.Error(err))
	}
	if v, err := s.Get(ctx, t.monthlyKey()); err == nil {
		t.monthlyUsed = v
	} else {
		t.logger.Warn("Failed to load monthly token usage", zap.String("kind", t.kind), zap.Error(err))
	}

	t.logger.Info("Token usage loaded",
		zap.String("kind", t.kind),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("monthly_used", t.monthlyUsed),
	)
	t.publish()
	return t
}

// Kind returns the tracked model kind.
func (t *Tracker) Kind() string { return t.kind }

// Check reports whether a new call may proceed.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()
	dailySpent := t.limits.Daily > 0 && t.dailyUsed >= t.limits.Daily
	monthlySpent := t.limits.Monthly > 0 && t.monthlyUsed >= t.limits.Monthly
	if !dailySpent && !monthlySpent {
		return nil
	}

	if t.limits.Action == ActionReject {
		metrics.TokenBudgetRejectionsTotal.WithLabelValues(t.kind).Inc()
		return fmt.Errorf("%s: %w", t.kind, domain.ErrTokenBudgetExhausted)
	}

	t.logger.Warn("Token budget exceeded",
		zap.String("kind", t.kind),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("daily_limit", t.limits.Daily),
		zap.Int64("monthly_used", t.monthlyUsed),
		zap.Int64("monthly_limit", t.limits.Monthly),
	)
	return nil
}

// Record adds consumed tokens. The store write outlives a cancelled request:
// the provider already billed the tokens.
func (t *Tracker) Record(ctx context.Context, tokens int64) {
	if tokens <= 0 {
		return
	}

	t.mu.Lock()
	t.rollover()
	t.dailyUsed += tokens
	t.monthlyUsed += tokens
	store := t.store
	dailyKey, monthlyKey := t.dailyKey(), t.monthlyKey()
	t.publish()
	t.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	daily, err := store.IncrBy(ctx, dailyKey, tokens)
	if err != nil {
		t.logger.Warn("Failed to persist daily token usage", zap.String("key", dailyKey), zap.Error(err))
	}
	monthly, err := store.IncrBy(ctx, monthlyKey, tokens)
	if err != nil {
		t.logger.Warn("Failed to persist monthly token usage", zap.String("key", monthlyKey), zap.Error(err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// the period may have rolled over while the store was written
	if t.dailyKey() == dailyKey {
		t.dailyUsed = max(t.dailyUsed, daily)
	}
	if t.monthlyKey() == monthlyKey {
		t.monthlyUsed = max(t.monthlyUsed, monthly)
	}
	t.publish()
}

// Snapshot returns the current counters and limits.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()
	return Snapshot{
		Kind:         t.kind,
		Action:       t.limits.Action,
		DailyLimit:   t.limits.Daily,
		MonthlyLimit: t.limits.Monthly,
		DailyUsed:    t.dailyUsed,
		MonthlyUsed:  t.monthlyUsed,
		Day:          t.day,
		Month:        t.month,
	}
}

func (t *Tracker) dailyKey() string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", t.keyPrefix, t.kind, t.day.Format("2006-01-02"))
}

func (t *Tracker) monthlyKey() string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", t.keyPrefix, t.kind, t.month.Format("2006-01"))
}

// rollover zeroes counters when the UTC day or month changes. Caller holds mu.
func (t *Tracker) rollover() {
	day, month := periodStarts(t.now())
	if day.After(t.day) {
		t.dailyUsed = 0
		t.day = day
	}
	if month.After(t.month) {
		t.monthlyUsed = 0
		t.month = month
	}
}

// publish exports the counters. Caller holds mu.
func (t *Tracker) publish() {
	metrics.TokenBudgetUsed.WithLabelValues(t.kind, "daily").Set(float64(t.dailyUsed))
	metrics.TokenBudgetUsed.WithLabelValues(t.kind, "monthly").Set(float64(t.monthlyUsed))
	metrics.TokenBudgetRemaining.WithLabelValues(t.kind, "daily").Set(float64(remaining(t.limits.Daily, t.dailyUsed)))
	metrics.TokenBudgetRemaining.WithLabelValues(t.kind, "monthly").Set(float64(remaining(t.limits.Monthly, t.monthlyUsed)))
}

func periodStarts(now time.Time) (day, month time.Time) {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
