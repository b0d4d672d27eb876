// Package usage reports token consumption against the configured budgets.
package usage

import (
	"context"
	"time"

	"github.com/kailas-cloud/talentmatch/internal/usecase/budget"
)

// BudgetReader provides read-only access to one tracker.
type BudgetReader interface {
	Snapshot() budget.Snapshot
}

// Period names.
const (
	PeriodDay   = "day"
	PeriodMonth = "month"
)

// PeriodUsage is consumption within one UTC period. Limit 0 and Remaining -1 mean unlimited.
type PeriodUsage struct {
	Period    string
	Start     time.Time
	End       time.Time
	Limit     int64
	Used      int64
	Remaining int64
	Exhausted bool
}

// KindUsage is the report for one model kind.
type KindUsage struct {
	Kind    string
	Action  string
	Periods []PeriodUsage
}

// Report lists every tracked model kind.
type Report struct {
	GeneratedAt time.Time
	Kinds       []KindUsage
}

// Service builds usage reports.
type Service struct {
	readers []BudgetReader
	now     func() time.Time
}

// New creates a Service. Nil readers are ignored.
func New(readers ...BudgetReader) *Service {
	rs := make([]BudgetReader, 0, len(readers))
	for _, r := range readers {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return &Service{readers: rs, now: time.Now}
}

// Report snapshots every tracker.
func (s *Service) Report(_ context.Context) Report {
	r := Report{GeneratedAt: s.now().UTC(), Kinds: make([]KindUsage, 0, len(s.readers))}
	for _, br := range s.readers {
		snap := br.Snapshot()
		r.Kinds = append(r.Kinds, KindUsage{
			Kind:   snap.Kind,
			Action: string(snap.Action),
			Periods: []PeriodUsage{
				period(PeriodDay, snap.Day, snap.Day.AddDate(0, 0, 1), snap.DailyLimit, snap.DailyUsed, snap.RemainingDaily()),
				period(PeriodMonth, snap.Month, snap.Month.AddDate(0, 1, 0), snap.MonthlyLimit, snap.MonthlyUsed, snap.RemainingMonthly()),
			},
		})
	}
	return r
}

func period(name string, start, end time.Time, limit, used, remaining int64) PeriodUsage {
	return PeriodUsage{
		Period:    name,
		Start:     start,
		End:       end,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		Exhausted: limit > 0 && remaining <= 0,
	}
}
