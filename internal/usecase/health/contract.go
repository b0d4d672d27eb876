package health

import "context"

// Checker probes one dependency.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

// HealthCheck implements Checker.
func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Pinger adapts a DBPinger to Checker.
func Pinger(p DBPinger) Checker {
	return CheckFunc(p.Ping)
}
