package warden

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/danpasecinic/warden/internal/scope"
)

// Action runs once after the eager pass, with full read access to the
// injector and the ability to resolve.
type Action interface {
	Name() string
	Run(ctx context.Context, inj *Injector) error
}

type actionFunc struct {
	name string
	fn   func(ctx context.Context, inj *Injector) error
}

func (a *actionFunc) Name() string {
	return a.name
}

func (a *actionFunc) Run(ctx context.Context, inj *Injector) error {
	return a.fn(ctx, inj)
}

func ActionFunc(name string, fn func(ctx context.Context, inj *Injector) error) Action {
	return &actionFunc{name: name, fn: fn}
}

// runActions executes actions in order and stops at the first failure.
func (i *Injector) runActions(ctx context.Context, actions []Action) error {
	for idx, action := range actions {
		name := action.Name()

		actx, span := i.tracer.Start(
			ctx, "warden.action", trace.WithAttributes(
				attribute.String("warden.action", name),
				attribute.Int("warden.action.index", idx),
			),
		)

		start := time.Now()
		err := action.Run(actx, i)
		duration := time.Since(start)

		for _, hook := range i.onAction {
			hook(name, duration, err)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			i.logger.Error("action failed", zap.String("action", name), zap.Error(err))
			return errActionFailed(name, err)
		}

		span.End()
		i.logger.Debug("action complete", zap.String("action", name), zap.Duration("duration", duration))
	}
	return nil
}

// CreateAllBoundSingletons resolves every singleton declared by a module.
// Bindings that only exist in implicit catalogs are skipped. Instances built
// here are recorded ON-DEMAND.
func CreateAllBoundSingletons() Action {
	return ActionFunc(
		"create-all-bound-singletons", func(ctx context.Context, inj *Injector) error {
			created := 0
			for b := range inj.registry.All() {
				if b.Implicit || b.Scope != scope.Singleton {
					continue
				}
				if inj.Materialized(Key(b.Key)) {
					continue
				}
				if _, err := inj.Resolve(ctx, Key(b.Key)); err != nil {
					return err
				}
				created++
			}
			inj.logger.Debug("bound singletons created", zap.Int("created", created))
			return nil
		},
	)
}
