package container

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/danpasecinic/warden/internal/graph"
	"github.com/danpasecinic/warden/internal/policy"
	"github.com/danpasecinic/warden/internal/registry"
)

type ResolveHook func(key string, duration time.Duration, err error)

type MaterializeHook func(record Record)

type Config struct {
	Registry      *registry.Registry
	Classes       map[string]policy.Classification
	Logger        *zap.Logger
	Tracer        trace.Tracer
	OnResolve     []ResolveHook
	OnMaterialize []MaterializeHook
}

// Container owns every singleton it constructs. Records are created at most
// once per key and never replaced.
type Container struct {
	registry *registry.Registry
	graph    *graph.Graph
	logger   *zap.Logger
	tracer   trace.Tracer

	classMu sync.RWMutex
	classes map[string]policy.Classification

	cellsMu sync.Mutex
	cells   map[string]*cell
	waiting map[*owner]*cell

	ordinal atomic.Uint64
	owners  atomic.Uint64

	onResolve     []ResolveHook
	onMaterialize []MaterializeHook
}

// cell holds the record for one singleton key. While a construction is in
// flight, owner and done are set; both are guarded by cellsMu.
type cell struct {
	key    string
	record atomic.Pointer[Record]
	owner  *owner
	done   chan struct{}
}

func New(cfg *Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	classes := make(map[string]policy.Classification, len(cfg.Classes))
	for k, v := range cfg.Classes {
		classes[k] = v
	}

	return &Container{
		registry:      cfg.Registry,
		graph:         cfg.Registry.Graph(),
		logger:        logger,
		tracer:        tracer,
		classes:       classes,
		cells:         make(map[string]*cell),
		waiting:       make(map[*owner]*cell),
		onResolve:     cfg.OnResolve,
		onMaterialize: cfg.OnMaterialize,
	}
}

// Validate checks that every edge, direct or deferred, names a bound key.
func (c *Container) Validate() error {
	missing := c.registry.Unresolved()
	owners := make([]string, 0, len(missing))
	for owner := range missing {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	var err error
	for _, owner := range owners {
		for _, key := range missing[owner] {
			err = multierr.Append(err, &MissingError{Key: key, From: owner})
		}
	}
	return err
}

// Build constructs the eager keys and everything they reach through direct
// edges, dependencies first. The first failure aborts the pass.
func (c *Container) Build(ctx context.Context, eager []string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	order, err := c.graph.ClosureOrder(eager)
	if err != nil {
		return err
	}

	ctx = withEagerPass(ctx, true)
	for _, key := range order {
		b, _ := c.registry.Get(key)
		if !b.Scope.Cached() {
			continue
		}
		if _, err := c.Resolve(ctx, key); err != nil {
			return err
		}
	}

	c.logger.Debug("eager pass complete", zap.Int("eager", len(eager)), zap.Int("constructed", len(order)))
	return nil
}

func (c *Container) Has(key string) bool {
	return c.registry.Has(key)
}

func (c *Container) Registry() *registry.Registry {
	return c.registry
}

func (c *Container) Graph() *graph.Graph {
	return c.graph.Clone()
}

func (c *Container) Classification(key string) (policy.Classification, bool) {
	c.classMu.RLock()
	defer c.classMu.RUnlock()

	class, ok := c.classes[key]
	return class, ok
}

// observe classifies a key the first time it is resolved without having been
// seen by the classifier. Existing classifications are never changed.
func (c *Container) observe(ctx context.Context, key string) {
	c.classMu.RLock()
	_, ok := c.classes[key]
	c.classMu.RUnlock()
	if ok {
		return
	}

	from := ""
	if chain := chainFrom(ctx); len(chain) > 0 {
		from = chain[len(chain)-1]
	}

	c.classMu.Lock()
	if _, ok := c.classes[key]; !ok {
		c.classes[key] = policy.Classification{Key: key, Tier: policy.Transitive, Via: policy.ViaResolution, From: from}
	}
	c.classMu.Unlock()
}

func (c *Container) Record(key string) (Record, bool) {
	c.cellsMu.Lock()
	cl, ok := c.cells[key]
	c.cellsMu.Unlock()
	if !ok {
		return Record{}, false
	}

	rec := cl.record.Load()
	if rec == nil {
		return Record{}, false
	}
	return *rec, true
}

// Records returns a snapshot ordered by construction ordinal.
func (c *Container) Records() []Record {
	c.cellsMu.Lock()
	records := make([]Record, 0, len(c.cells))
	for _, cl := range c.cells {
		if rec := cl.record.Load(); rec != nil {
			records = append(records, *rec)
		}
	}
	c.cellsMu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Ordinal < records[j].Ordinal })
	return records
}

func (c *Container) withOwner(ctx context.Context) (context.Context, *owner) {
	if own := ownerFrom(ctx); own != nil {
		return ctx, own
	}
	own := &owner{id: c.owners.Add(1)}
	return context.WithValue(ctx, ownerKey{}, own), own
}

func (c *Container) cell(key string) *cell {
	c.cellsMu.Lock()
	defer c.cellsMu.Unlock()

	cl, ok := c.cells[key]
	if !ok {
		cl = &cell{key: key}
		c.cells[key] = cl
	}
	return cl
}
