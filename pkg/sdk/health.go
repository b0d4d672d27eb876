package talentmatch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// Health probes storage and the configured models.
// A failing completer degrades the status; anything else makes it "error".
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	c.obs.observe("health", start, nil, zap.String("status", string(report.Status)))
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
