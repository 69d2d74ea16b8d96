package warden

import (
	"context"
	"fmt"

	"github.com/danpasecinic/warden/internal/reflect"
	"github.com/danpasecinic/warden/internal/registry"
	"github.com/danpasecinic/warden/internal/scope"
)

// Module groups bindings under a name. Bindings are only registered when a
// module is handed to New as a root, implicit or override module.
type Module struct {
	name       string
	bindings   []*registry.Binding
	errs       []error
	submodules []*Module
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Include(submodules ...*Module) *Module {
	m.submodules = append(m.submodules, submodules...)
	return m
}

func (m *Module) add(b *registry.Binding) *Module {
	m.bindings = append(m.bindings, b)
	return m
}

func (m *Module) fail(err error) *Module {
	m.errs = append(m.errs, err)
	return m
}

// walk visits submodules before their parent, each module at most once.
func (m *Module) walk(seen map[*Module]bool, visit func(*Module) error) error {
	if seen[m] {
		return nil
	}
	seen[m] = true

	for _, sub := range m.submodules {
		if err := sub.walk(seen, visit); err != nil {
			return err
		}
	}
	return visit(m)
}

type BindingOption func(*bindingConfig)

type bindingConfig struct {
	name     string
	scope    scope.Scope
	eager    bool
	direct   []Key
	deferred []Key
}

func newBindingConfig(opts []BindingOption) *bindingConfig {
	cfg := &bindingConfig{scope: scope.Singleton}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *bindingConfig) key(typeKey string) string {
	return reflect.Qualify(typeKey, cfg.name)
}

func (cfg *bindingConfig) params() []registry.Param {
	params := make([]registry.Param, 0, len(cfg.direct)+len(cfg.deferred))
	for _, k := range cfg.direct {
		params = append(params, registry.Param{Key: string(k), Kind: registry.Direct})
	}
	for _, k := range cfg.deferred {
		params = append(params, registry.Param{Key: string(k), Kind: registry.Deferred})
	}
	return params
}

func (cfg *bindingConfig) binding(key string, params []registry.Param, provider registry.ProviderFunc) *registry.Binding {
	return &registry.Binding{
		Key:      key,
		Provider: provider,
		Scope:    cfg.scope,
		Eager:    cfg.eager,
		Params:   params,
	}
}

// Named qualifies the binding key: "pkg.Type#name".
func Named(name string) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.name = name
	}
}

func WithScope(s Scope) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.scope = s
	}
}

// AsEagerSingleton forces construction during build regardless of stage or
// isolation mode. It has no effect on unscoped bindings.
func AsEagerSingleton() BindingOption {
	return func(cfg *bindingConfig) {
		cfg.eager = true
	}
}

// DependsOn declares direct edges. Direct dependencies are constructed before
// the binding's provider runs.
func DependsOn(keys ...Key) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.direct = append(cfg.direct, keys...)
	}
}

// Defers declares deferred edges. A deferred dependency is only constructed
// when the binding asks for it through a Deferred handle.
func Defers(keys ...Key) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.deferred = append(cfg.deferred, keys...)
	}
}

type Provider[T any] func(ctx context.Context, r Resolver) (T, error)

func Provide[T any](m *Module, provider Provider[T], opts ...BindingOption) *Module {
	cfg := newBindingConfig(opts)
	key := cfg.key(reflect.TypeKey[T]())

	if provider == nil {
		return m.fail(errInvalidProvider(Key(key), fmt.Errorf("provider is nil")))
	}

	return m.add(
		cfg.binding(
			key, cfg.params(), func(ctx context.Context, r registry.Resolver, _ []any) (any, error) {
				return provider(ctx, &resolverAdapter{resolver: r})
			},
		),
	)
}

func ProvideValue[T any](m *Module, value T, opts ...BindingOption) *Module {
	cfg := newBindingConfig(opts)
	cfg.scope = scope.Singleton
	key := cfg.key(reflect.TypeKey[T]())

	return m.add(
		cfg.binding(
			key, cfg.params(), func(context.Context, registry.Resolver, []any) (any, error) {
				return value, nil
			},
		),
	)
}

// ProvideFunc registers a constructor whose parameters are wired by type.
// A parameter of type Deferred[X] becomes a deferred edge to X, every other
// parameter a direct edge.
func ProvideFunc[T any](m *Module, constructor any, opts ...BindingOption) *Module {
	cfg := newBindingConfig(opts)
	key := cfg.key(reflect.TypeKey[T]())

	sig, err := reflect.FuncSignature(constructor)
	if err != nil {
		return m.fail(errInvalidProvider(Key(key), err))
	}

	expected := reflect.TypeOf[T]()
	if !sig.Returns.AssignableTo(expected) {
		return m.fail(
			errInvalidProvider(Key(key), fmt.Errorf("constructor returns %s, expected %s", sig.Returns, expected)),
		)
	}

	params := make([]registry.Param, 0, len(sig.Params)+len(cfg.direct)+len(cfg.deferred))
	deferred := make([]deferredParam, len(sig.Params))
	for i, t := range sig.Params {
		if dp, ok := asDeferredParam(t); ok {
			deferred[i] = dp
			params = append(params, registry.Param{Key: dp.deferredKey(), Kind: registry.Deferred})
			continue
		}
		params = append(params, registry.Param{Key: reflect.TypeKeyOf(t), Kind: registry.Direct})
	}
	params = append(params, cfg.params()...)

	provider := func(_ context.Context, _ registry.Resolver, args []any) (any, error) {
		in := make([]any, len(sig.Params))
		for i := range sig.Params {
			if deferred[i] != nil {
				in[i] = deferred[i].bind(newHandle(args[i]))
				continue
			}
			in[i] = args[i]
		}
		return reflect.Call(constructor, sig, in)
	}

	return m.add(cfg.binding(key, params, provider))
}

// Bind maps interface I onto the binding for T through a direct edge.
func Bind[I, T any](m *Module, opts ...BindingOption) *Module {
	cfg := newBindingConfig(opts)
	key := cfg.key(reflect.TypeKey[I]())
	impl := reflect.TypeKey[T]()

	if !reflect.TypeOf[T]().AssignableTo(reflect.TypeOf[I]()) {
		return m.fail(
			errInvalidProvider(Key(key), fmt.Errorf("%s does not implement %s", reflect.TypeName[T](), reflect.TypeName[I]())),
		)
	}

	params := append([]registry.Param{{Key: impl, Kind: registry.Direct}}, cfg.params()...)
	return m.add(
		cfg.binding(
			key, params, func(_ context.Context, _ registry.Resolver, args []any) (any, error) {
				return args[0], nil
			},
		),
	)
}
