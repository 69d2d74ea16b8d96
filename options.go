package warden

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/danpasecinic/warden/config"
)

type Option func(*buildConfig)

type buildConfig struct {
	name      string
	stage     Stage
	mode      IsolationMode
	modules   []*Module
	implicit  []*Module
	overrides []*Module
	actions   []Action
	logger    *zap.Logger
	tracer    trace.Tracer

	onResolve     []ResolveHook
	onMaterialize []MaterializeHook
	onAction      []ActionHook

	err error
}

func newBuildConfig(opts []Option) *buildConfig {
	cfg := &buildConfig{
		name:   "warden",
		stage:  Production,
		mode:   IsolatedChildScope,
		logger: zap.NewNop(),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithName(name string) Option {
	return func(cfg *buildConfig) {
		cfg.name = name
	}
}

func WithStage(stage Stage) Option {
	return func(cfg *buildConfig) {
		cfg.stage = stage
	}
}

func WithIsolationMode(mode IsolationMode) Option {
	return func(cfg *buildConfig) {
		cfg.mode = mode
	}
}

// WithModules adds root modules. Every binding they declare is classified
// ROOT.
func WithModules(modules ...*Module) Option {
	return func(cfg *buildConfig) {
		cfg.modules = append(cfg.modules, modules...)
	}
}

// WithImplicit adds catalog modules whose bindings exist only to satisfy
// edges. They are never roots.
func WithImplicit(modules ...*Module) Option {
	return func(cfg *buildConfig) {
		cfg.implicit = append(cfg.implicit, modules...)
	}
}

// WithOverrides replaces same-key bindings from root and implicit modules.
// Override bindings with no counterpart are registered as roots.
func WithOverrides(modules ...*Module) Option {
	return func(cfg *buildConfig) {
		cfg.overrides = append(cfg.overrides, modules...)
	}
}

// WithActions appends post-build actions. They run in the order given.
func WithActions(actions ...Action) Option {
	return func(cfg *buildConfig) {
		cfg.actions = append(cfg.actions, actions...)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *buildConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *buildConfig) {
		if tracer != nil {
			cfg.tracer = tracer
		}
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *buildConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithMaterializeObserver(hook MaterializeHook) Option {
	return func(cfg *buildConfig) {
		cfg.onMaterialize = append(cfg.onMaterialize, hook)
	}
}

func WithActionObserver(hook ActionHook) Option {
	return func(cfg *buildConfig) {
		cfg.onAction = append(cfg.onAction, hook)
	}
}

// WithConfig applies a loaded configuration: name, stage, isolation mode and
// logger. EagerAll appends CreateAllBoundSingletons and Report appends a
// logged BindingReport.
func WithConfig(c *config.Config) Option {
	return func(cfg *buildConfig) {
		if c == nil {
			return
		}

		stage, err := ParseStage(c.Stage)
		if err != nil {
			cfg.err = err
			return
		}
		mode, err := ParseIsolationMode(c.IsolationMode)
		if err != nil {
			cfg.err = err
			return
		}
		logger, err := c.NewLogger()
		if err != nil {
			cfg.err = err
			return
		}

		if c.Name != "" {
			cfg.name = c.Name
		}
		cfg.stage = stage
		cfg.mode = mode
		cfg.logger = logger

		if c.EagerAll {
			cfg.actions = append(cfg.actions, CreateAllBoundSingletons())
		}
		if c.Report {
			cfg.actions = append(cfg.actions, BindingReport(c.Name, nil))
		}
	}
}
