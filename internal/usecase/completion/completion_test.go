package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

type mockCompleter struct {
	result domain.CompletionResult
	err    error
	delay  time.Duration
	calls  int
}

func (m *mockCompleter) Complete(ctx context.Context, _ string) (domain.CompletionResult, error) {
	m.calls++
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.CompletionResult{}, ctx.Err()
		}
	}
	return m.result, m.err
}

func TestInstrumentedCompleter_RecordsUsage(t *testing.T) {
	inner := &mockCompleter{result: domain.CompletionResult{Text: "{}", PromptTokens: 100, CompletionTokens: 20}}
	c := NewInstrumentedCompleter(inner, "test", "m", time.Second, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := c.Complete(ctx, "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "{}" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if usage.GenerationTokens() != 120 {
		t.Errorf("expected 120 generation tokens, got %d", usage.GenerationTokens())
	}
}

func TestInstrumentedCompleter_TimeoutIsUnavailable(t *testing.T) {
	inner := &mockCompleter{delay: time.Second}
	c := NewInstrumentedCompleter(inner, "test", "m", 10*time.Millisecond, nil)

	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestBreakerCompleter_PassesThrough(t *testing.T) {
	inner := &mockCompleter{result: domain.CompletionResult{Text: "ok"}}
	b := NewBreakerCompleter(inner, BreakerSettings{Name: "pass", ConsecutiveFailures: 2}, zap.NewNop())

	res, err := b.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestBreakerCompleter_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &mockCompleter{err: domain.ErrGenerationUnavailable}
	b := NewBreakerCompleter(inner, BreakerSettings{
		Name:                "trip",
		MaxRequests:         1,
		Interval:            time.Minute,
		OpenTimeout:         time.Minute,
		ConsecutiveFailures: 2,
	}, zap.NewNop())

	for range 2 {
		if _, err := b.Complete(context.Background(), "p"); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	_, err := b.Complete(context.Background(), "p")
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable while open, got %v", err)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState in chain, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("open breaker must not call upstream, got %d calls", inner.calls)
	}
	if got := testutil.ToFloat64(metrics.BreakerState.WithLabelValues("trip")); got != float64(gobreaker.StateOpen) {
		t.Errorf("expected breaker gauge %v, got %v", float64(gobreaker.StateOpen), got)
	}
}

func TestBreakerCompleter_RatioNeedsMinRequests(t *testing.T) {
	inner := &mockCompleter{err: errors.New("boom")}
	b := NewBreakerCompleter(inner, BreakerSettings{
		Name:         "ratio",
		Interval:     time.Minute,
		OpenTimeout:  time.Minute,
		MinRequests:  3,
		FailureRatio: 0.5,
	}, nil)

	for range 2 {
		_, _ = b.Complete(context.Background(), "p")
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed below min requests, got %s", b.State())
	}
	_, _ = b.Complete(context.Background(), "p")
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open at min requests, got %s", b.State())
	}
}

func TestBreakerCompleter_CancellationDoesNotTrip(t *testing.T) {
	inner := &mockCompleter{err: context.Canceled}
	b := NewBreakerCompleter(inner, BreakerSettings{Name: "cancel", ConsecutiveFailures: 1}, nil)

	for range 3 {
		_, _ = b.Complete(context.Background(), "p")
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("cancellations must not open the breaker, got %s", b.State())
	}
}

func TestBreakerCompleter_BudgetRejectionDoesNotTrip(t *testing.T) {
	inner := &mockCompleter{err: fmt.Errorf("budget check: %w", domain.ErrTokenBudgetExhausted)}
	b := NewBreakerCompleter(inner, BreakerSettings{Name: "budget", ConsecutiveFailures: 1}, nil)

	for range 3 {
		_, err := b.Complete(context.Background(), "p")
		if !errors.Is(err, domain.ErrTokenBudgetExhausted) {
			t.Fatalf("expected ErrTokenBudgetExhausted, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("budget rejections must not open the breaker, got %s", b.State())
	}
}
