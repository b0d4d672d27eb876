package metrics

import "github.com/prometheus/client_golang/prometheus"

// Token budget metrics.
var (
	TokenBudgetUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_budget_used",
			Help:      "Tokens consumed in the current period",
		},
		[]string{"kind", "period"}, // embedding|generation, daily|monthly
	)

	TokenBudgetRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_budget_remaining",
			Help:      "Tokens left in the current period, -1 when unlimited",
		},
		[]string{"kind", "period"},
	)

	TokenBudgetRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_budget_rejections_total",
			Help:      "Model calls refused because the token budget was spent",
		},
		[]string{"kind"},
	)
)

func budgetCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		TokenBudgetUsed,
		TokenBudgetRemaining,
		TokenBudgetRejectionsTotal,
	}
}
