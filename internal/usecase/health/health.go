package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status of a single component or of the whole service.
type Status string

const (
	StatusUp          Status = "up"
	StatusDown        Status = "down"
	StatusOK          Status = "ok"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check is one named dependency. Optional dependencies degrade the service
// instead of making it unavailable.
type Check struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

// Report is the result of running every check once.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]Status `json:"components"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Healthy reports whether every required component is up.
func (r Report) Healthy() bool {
	return r.Status != StatusUnavailable
}

// Checker runs dependency checks concurrently with a per-check timeout.
type Checker struct {
	checks  []Check
	timeout time.Duration
	log     *zap.Logger
}

// NewChecker creates a Checker. A non-positive timeout defaults to two seconds.
func NewChecker(timeout time.Duration, log *zap.Logger, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{checks: checks, timeout: timeout, log: log}
}

// Names returns the component names in registration order.
func (c *Checker) Names() []string {
	names := make([]string, len(c.checks))
	for i, ch := range c.checks {
		names[i] = ch.Name
	}
	return names
}

// Check pings every dependency and aggregates the outcome.
func (c *Checker) Check(ctx context.Context) Report {
	report := Report{
		Status:     StatusOK,
		Components: make(map[string]Status, len(c.checks)),
		CheckedAt:  time.Now().UTC(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range c.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()

			st := StatusUp
			if err := ch.Pinger.Ping(cctx); err != nil {
				c.log.Warn("health check failed", zap.String("component", ch.Name), zap.Error(err))
				st = StatusDown
			}

			mu.Lock()
			defer mu.Unlock()
			report.Components[ch.Name] = st
			if st == StatusDown {
				if ch.Optional {
					if report.Status == StatusOK {
						report.Status = StatusDegraded
					}
				} else {
					report.Status = StatusUnavailable
				}
			}
			// failures are recorded in the report, not returned
			return nil
		})
	}
	_ = g.Wait()

	return report
}
