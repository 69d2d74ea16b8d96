package warden

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/danpasecinic/warden/internal/container"
	"github.com/danpasecinic/warden/internal/policy"
	"github.com/danpasecinic/warden/internal/registry"
	"github.com/danpasecinic/warden/internal/scope"
)

// Injector is the result of a successful build. Its bindings and
// classifications are fixed; singletons not built eagerly are constructed on
// first resolve.
type Injector struct {
	id    uuid.UUID
	name  string
	stage Stage
	mode  IsolationMode

	registry  *registry.Registry
	container *container.Container
	roots     []string
	decisions map[string]Decision

	logger   *zap.Logger
	tracer   trace.Tracer
	onAction []ActionHook

	closeOnce sync.Once
	closeErr  error
}

// Binding is a read-only view of a registered binding.
type Binding struct {
	Key      Key
	Scope    Scope
	Eager    bool
	Direct   []Key
	Deferred []Key
	Module   string
	Implicit bool
}

func bindingView(b *registry.Binding) Binding {
	return Binding{
		Key:      Key(b.Key),
		Scope:    b.Scope,
		Eager:    b.Eager,
		Direct:   toKeys(b.Direct()),
		Deferred: toKeys(b.Deferred()),
		Module:   b.Module,
		Implicit: b.Implicit,
	}
}

// New registers the bindings of every module, classifies them, constructs the
// eager set and then runs the post-build actions.
//
// A failure before or during the eager pass returns a nil injector. An action
// failure returns the injector together with the error; singletons built so
// far stay materialized.
func New(ctx context.Context, opts ...Option) (*Injector, error) {
	cfg := newBuildConfig(opts)
	if cfg.err != nil {
		return nil, cfg.err
	}

	id := uuid.New()
	ctx, span := cfg.tracer.Start(
		ctx, "warden.build", trace.WithAttributes(
			attribute.String("warden.build.id", id.String()),
			attribute.String("warden.build.name", cfg.name),
			attribute.String("warden.stage", cfg.stage.String()),
			attribute.String("warden.isolation_mode", cfg.mode.String()),
		),
	)
	defer span.End()

	inj, err := build(ctx, cfg, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cfg.logger.Error("build failed", zap.String("build", id.String()), zap.Error(err))
		return nil, err
	}

	if err := inj.runActions(ctx, cfg.actions); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return inj, err
	}

	return inj, nil
}

func build(ctx context.Context, cfg *buildConfig, id uuid.UUID) (*Injector, error) {
	start := time.Now()

	reg, roots, err := registerModules(cfg)
	if err != nil {
		return nil, err
	}

	classes := policy.Classify(reg, roots)
	eager := policy.EagerSet(reg, classes, cfg.stage, cfg.mode)

	decisions := make(map[string]Decision, reg.Size())
	for b := range reg.All() {
		c, ok := classes[b.Key]
		switch {
		case ok:
			decisions[b.Key] = policy.Decide(b, c, cfg.stage, cfg.mode)
		case b.Eager && b.Scope == scope.Singleton:
			decisions[b.Key] = Eager
		default:
			decisions[b.Key] = Lazy
		}
	}

	onResolve := make([]container.ResolveHook, 0, len(cfg.onResolve))
	for _, hook := range cfg.onResolve {
		onResolve = append(
			onResolve, func(key string, d time.Duration, err error) {
				hook(Key(key), d, translate(err))
			},
		)
	}
	onMaterialize := make([]container.MaterializeHook, 0, len(cfg.onMaterialize))
	for _, hook := range cfg.onMaterialize {
		onMaterialize = append(onMaterialize, container.MaterializeHook(hook))
	}

	ctr := container.New(
		&container.Config{
			Registry:      reg,
			Classes:       classes,
			Logger:        cfg.logger.With(zap.String("build", id.String())),
			Tracer:        cfg.tracer,
			OnResolve:     onResolve,
			OnMaterialize: onMaterialize,
		},
	)

	if err := ctr.Build(ctx, eager); err != nil {
		return nil, translate(err)
	}

	inj := &Injector{
		id:        id,
		name:      cfg.name,
		stage:     cfg.stage,
		mode:      cfg.mode,
		registry:  reg,
		container: ctr,
		roots:     roots,
		decisions: decisions,
		logger:    cfg.logger.With(zap.String("build", id.String())),
		tracer:    cfg.tracer,
		onAction:  cfg.onAction,
	}

	inj.logger.Info(
		"injector built",
		zap.String("name", cfg.name),
		zap.Stringer("stage", cfg.stage),
		zap.Stringer("isolation_mode", cfg.mode),
		zap.Int("bindings", reg.Size()),
		zap.Int("roots", len(roots)),
		zap.Int("eager", len(eager)),
		zap.Int("materialized", len(ctr.Records())),
		zap.Duration("duration", time.Since(start)),
	)

	return inj, nil
}

// registerModules applies overrides and registers root modules before
// implicit ones. It returns the registry and the root keys in declaration
// order.
func registerModules(cfg *buildConfig) (*registry.Registry, []string, error) {
	overrides := make(map[string]*registry.Binding)
	var overrideOrder []*registry.Binding
	var overrideModule = make(map[string]string)
	seen := make(map[*Module]bool)
	for _, m := range cfg.overrides {
		err := m.walk(
			seen, func(mod *Module) error {
				if len(mod.errs) > 0 {
					return errModuleApplyFailed(mod.name, mod.errs[0])
				}
				for _, b := range mod.bindings {
					if _, dup := overrides[b.Key]; !dup {
						overrideOrder = append(overrideOrder, b)
					}
					overrides[b.Key] = b
					overrideModule[b.Key] = mod.name
				}
				return nil
			},
		)
		if err != nil {
			return nil, nil, err
		}
	}

	reg := registry.New()
	used := make(map[string]bool)
	var roots []string
	rootSeen := make(map[string]bool)

	apply := func(modules []*Module, implicit bool) error {
		seen := make(map[*Module]bool)
		for _, m := range modules {
			err := m.walk(
				seen, func(mod *Module) error {
					if len(mod.errs) > 0 {
						return errModuleApplyFailed(mod.name, mod.errs[0])
					}

					bindings := make([]*registry.Binding, 0, len(mod.bindings))
					for _, b := range mod.bindings {
						if ov, ok := overrides[b.Key]; ok {
							used[b.Key] = true
							b = ov
						}
						cp := *b
						cp.Implicit = implicit
						bindings = append(bindings, &cp)

						if !implicit && !rootSeen[b.Key] {
							rootSeen[b.Key] = true
							roots = append(roots, b.Key)
						}
					}
					if err := reg.Register(mod.name, bindings...); err != nil {
						return translate(err)
					}
					return nil
				},
			)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := apply(cfg.modules, false); err != nil {
		return nil, nil, err
	}
	if err := apply(cfg.implicit, true); err != nil {
		return nil, nil, err
	}

	for _, b := range overrideOrder {
		if used[b.Key] {
			continue
		}
		if err := reg.Register(overrideModule[b.Key], b); err != nil {
			return nil, nil, translate(err)
		}
		if !rootSeen[b.Key] {
			rootSeen[b.Key] = true
			roots = append(roots, b.Key)
		}
	}

	return reg, roots, nil
}

func (i *Injector) ID() string {
	return i.id.String()
}

func (i *Injector) Name() string {
	return i.name
}

func (i *Injector) Stage() Stage {
	return i.stage
}

func (i *Injector) IsolationMode() IsolationMode {
	return i.mode
}

func (i *Injector) Logger() *zap.Logger {
	return i.logger
}

// Bindings yields every binding in registration order. The sequence can be
// ranged over more than once.
func (i *Injector) Bindings() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		for b := range i.registry.All() {
			if !yield(bindingView(b)) {
				return
			}
		}
	}
}

func (i *Injector) Binding(key Key) (Binding, bool) {
	b, ok := i.registry.Get(string(key))
	if !ok {
		return Binding{}, false
	}
	return bindingView(b), true
}

func (i *Injector) Keys() []Key {
	return toKeys(i.registry.Keys())
}

func (i *Injector) Size() int {
	return i.registry.Size()
}

// Roots returns the keys declared by root modules.
func (i *Injector) Roots() []Key {
	return toKeys(i.roots)
}

func (i *Injector) DirectDependenciesOf(key Key) []Key {
	return toKeys(i.registry.DirectDependenciesOf(string(key)))
}

func (i *Injector) DeferredDependenciesOf(key Key) []Key {
	return toKeys(i.registry.DeferredDependenciesOf(string(key)))
}

// Classification reports the tier of key. Keys the classifier never reached
// are unclassified until first resolved.
func (i *Injector) Classification(key Key) (Classification, bool) {
	return i.container.Classification(string(key))
}

// Decision is the materialization decision taken at build time.
func (i *Injector) Decision(key Key) Decision {
	return i.decisions[string(key)]
}

func (i *Injector) Has(key Key) bool {
	return i.registry.Has(string(key))
}

func (i *Injector) Resolve(ctx context.Context, key Key) (any, error) {
	instance, err := i.container.Resolve(ctx, string(key))
	if err != nil {
		return nil, translate(err)
	}
	return instance, nil
}

// ResolveDeferred returns a handle without constructing anything.
func (i *Injector) ResolveDeferred(key Key) (*Handle, error) {
	return i.resolveHandle(key)
}

func (i *Injector) resolveHandle(key Key) (*Handle, error) {
	h, err := i.container.ResolveDeferred(string(key))
	if err != nil {
		return nil, translate(err)
	}
	return &Handle{inner: h}, nil
}

// Records returns the constructed singletons ordered by ordinal.
func (i *Injector) Records() []SingletonRecord {
	return i.container.Records()
}

func (i *Injector) Record(key Key) (SingletonRecord, bool) {
	return i.container.Record(string(key))
}

func (i *Injector) Materialized(key Key) bool {
	_, ok := i.container.Record(string(key))
	return ok
}
