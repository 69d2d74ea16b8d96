package warden

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Stopper is implemented by singletons that hold resources.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Close stops every materialized singleton implementing Stopper, newest
// first. All stoppers run even if some fail; the failures are combined.
// Calling Close again returns the first result.
func (i *Injector) Close(ctx context.Context) error {
	i.closeOnce.Do(
		func() {
			i.closeErr = i.stopAll(ctx)
		},
	)
	return i.closeErr
}

func (i *Injector) stopAll(ctx context.Context) error {
	records := i.Records()

	var err error
	stopped := 0
	for idx := len(records) - 1; idx >= 0; idx-- {
		rec := records[idx]
		stopper, ok := rec.Instance.(Stopper)
		if !ok {
			continue
		}

		start := time.Now()
		stopErr := stopper.Stop(ctx)
		stopped++
		if stopErr != nil {
			i.logger.Error("stop failed", zap.String("key", rec.Key), zap.Error(stopErr))
			err = multierr.Append(err, fmt.Errorf("stopping %s: %w", rec.Key, stopErr))
			continue
		}
		i.logger.Debug("stopped", zap.String("key", rec.Key), zap.Duration("duration", time.Since(start)))
	}

	if err != nil {
		return errShutdownFailed(err)
	}
	i.logger.Info("injector closed", zap.Int("stopped", stopped))
	return nil
}
