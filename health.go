package warden

import (
	"context"
	"sync"
	"time"
)

type HealthStatus string

const (
	HealthStatusUp   HealthStatus = "up"
	HealthStatusDown HealthStatus = "down"
)

type HealthReport struct {
	Key     Key
	Status  HealthStatus
	Error   error
	Latency time.Duration
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Live fails with the first unhealthy singleton. Singletons that were never
// materialized are not checked and never constructed by a health check.
func (i *Injector) Live(ctx context.Context) error {
	for _, r := range i.Health(ctx) {
		if r.Status == HealthStatusDown {
			return errHealthCheckFailed(r.Key, r.Error)
		}
	}
	return nil
}

// Health checks every materialized singleton implementing HealthChecker
// concurrently. Reports follow construction order.
func (i *Injector) Health(ctx context.Context) []HealthReport {
	records := i.Records()
	reports := make([]HealthReport, len(records))
	checked := make([]bool, len(records))
	var wg sync.WaitGroup

	for idx, rec := range records {
		checker, ok := rec.Instance.(HealthChecker)
		if !ok {
			continue
		}
		checked[idx] = true

		wg.Add(1)
		go func(idx int, key Key, hc HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := hc.HealthCheck(ctx)

			report := HealthReport{
				Key:     key,
				Status:  HealthStatusUp,
				Latency: time.Since(start),
			}
			if err != nil {
				report.Status = HealthStatusDown
				report.Error = err
			}
			reports[idx] = report
		}(idx, Key(rec.Key), checker)
	}

	wg.Wait()

	out := make([]HealthReport, 0, len(records))
	for idx, ok := range checked {
		if ok {
			out = append(out, reports[idx])
		}
	}
	return out
}

func errHealthCheckFailed(key Key, cause error) *Error {
	return newError(
		ErrCodeHealthCheckFailed,
		"health check failed",
		cause,
	).WithKey(key)
}
