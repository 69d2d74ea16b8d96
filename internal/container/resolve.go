package container

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/danpasecinic/warden/internal/registry"
)

func (c *Container) Resolve(ctx context.Context, key string) (any, error) {
	start := time.Now()
	instance, err := c.resolve(ctx, key)
	c.callResolveHooks(key, time.Since(start), err)
	return instance, err
}

func (c *Container) callResolveHooks(key string, duration time.Duration, err error) {
	for _, hook := range c.onResolve {
		hook(key, duration, err)
	}
}

func (c *Container) resolve(ctx context.Context, key string) (any, error) {
	b, ok := c.registry.Get(key)
	if !ok {
		from := ""
		if chain := chainFrom(ctx); len(chain) > 0 {
			from = chain[len(chain)-1]
		}
		return nil, &MissingError{Key: key, From: from}
	}

	if inChain(ctx, key) {
		path := append(append([]string{}, chainFrom(ctx)...), key)
		for i, k := range path {
			if k == key {
				path = path[i:]
				break
			}
		}
		return nil, &CycleError{Path: path}
	}

	c.observe(ctx, key)
	ctx, own := c.withOwner(ctx)

	if !b.Scope.Cached() {
		instance, _, err := c.construct(ctx, b)
		return instance, err
	}

	cl := c.cell(key)

	for {
		if rec := cl.record.Load(); rec != nil {
			return rec.Instance, nil
		}

		c.cellsMu.Lock()
		if rec := cl.record.Load(); rec != nil {
			c.cellsMu.Unlock()
			return rec.Instance, nil
		}

		if cl.owner == nil {
			cl.owner = own
			cl.done = make(chan struct{})
			c.cellsMu.Unlock()
			return c.materialize(ctx, b, cl)
		}

		// A resolution waiting on a cell whose owner, directly or through other
		// owners, is waiting on this resolution would never wake up.
		if cl.owner != own {
			if keys := c.waitPath(cl.owner, own); keys != nil {
				c.cellsMu.Unlock()
				return nil, &CycleError{Path: waitCycle(chainFrom(ctx), key, keys)}
			}
			c.waiting[own] = cl
		}
		done := cl.done
		c.cellsMu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
		}

		c.cellsMu.Lock()
		if c.waiting[own] == cl {
			delete(c.waiting, own)
		}
		c.cellsMu.Unlock()

		if rec := cl.record.Load(); rec != nil {
			return rec.Instance, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// materialize runs the construction owned by the caller and publishes the
// record. Waiters are released whether or not the construction succeeded.
func (c *Container) materialize(ctx context.Context, b *registry.Binding, cl *cell) (any, error) {
	defer func() {
		c.cellsMu.Lock()
		close(cl.done)
		cl.owner, cl.done = nil, nil
		c.cellsMu.Unlock()
	}()

	instance, duration, err := c.construct(ctx, b)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Key:      b.Key,
		Instance: instance,
		Ordinal:  c.ordinal.Add(1),
		Reason:   reasonFrom(ctx),
		Duration: duration,
		At:       time.Now(),
	}
	cl.record.Store(rec)

	c.logger.Debug(
		"singleton materialized",
		zap.String("key", b.Key),
		zap.Uint64("ordinal", rec.Ordinal),
		zap.Stringer("reason", rec.Reason),
		zap.Duration("duration", duration),
	)
	for _, hook := range c.onMaterialize {
		hook(*rec)
	}

	return instance, nil
}

// waitPath follows wait-for edges from o. It returns the keys waited on along
// the way if the walk arrives at a cell owned by self, nil otherwise. Callers
// hold cellsMu.
func (c *Container) waitPath(o, self *owner) []string {
	var keys []string
	seen := make(map[*owner]bool)
	for o != nil && !seen[o] {
		seen[o] = true
		wc, ok := c.waiting[o]
		if !ok {
			return nil
		}
		keys = append(keys, wc.key)
		if wc.owner == self {
			return keys
		}
		o = wc.owner
	}
	return nil
}

func waitCycle(chain []string, key string, waited []string) []string {
	path := append(append(append([]string{}, chain...), key), waited...)
	last := path[len(path)-1]
	for i, k := range path[:len(path)-1] {
		if k == last {
			return path[i:]
		}
	}
	return path
}

// construct resolves direct arguments, hands out deferred handles and invokes
// the provider. Provider panics are reported as construction errors.
func (c *Container) construct(ctx context.Context, b *registry.Binding) (instance any, duration time.Duration, err error) {
	ctx, span := c.tracer.Start(ctx, "warden.construct")
	span.SetAttributes(
		attribute.String("warden.key", b.Key),
		attribute.String("warden.reason", reasonFrom(ctx).String()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx = withChain(ctx, b.Key)

	args := make([]any, len(b.Params))
	for i, p := range b.Params {
		switch p.Kind {
		case registry.Deferred:
			args[i] = &Handle{container: c, key: p.Key}
		default:
			dep, err := c.Resolve(ctx, p.Key)
			if err != nil {
				return nil, 0, fmt.Errorf("resolving %s for %s: %w", p.Key, b.Key, err)
			}
			args[i] = dep
		}
	}

	start := time.Now()
	instance, err = c.invoke(withEagerPass(ctx, false), b, args)
	duration = time.Since(start)
	if err != nil {
		return nil, duration, &ConstructionError{Key: b.Key, Cause: err}
	}
	return instance, duration, nil
}

func (c *Container) invoke(ctx context.Context, b *registry.Binding, args []any) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	return b.Provider(ctx, c, args)
}

// ResolveDeferred returns a handle for key without constructing anything.
func (c *Container) ResolveDeferred(key string) (*Handle, error) {
	if !c.registry.Has(key) {
		return nil, &MissingError{Key: key}
	}
	return &Handle{container: c, key: key}, nil
}

// Handle is an on-demand accessor. Each Get performs a normal resolve, so a
// singleton behind it is built once and then shared.
type Handle struct {
	container *Container
	key       string
}

func (h *Handle) Key() string {
	return h.key
}

// Get resolves the key. Calls made while the eager pass is running still count
// as on-demand: crossing a deferred edge is always an explicit request.
func (h *Handle) Get(ctx context.Context) (any, error) {
	return h.container.Resolve(withEagerPass(ctx, false), h.key)
}
