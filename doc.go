// Package warden builds a dependency-injection container that decides, per
// singleton, whether it is constructed during the build or on first use.
//
// # Modules and bindings
//
// Bindings are declared on modules and handed to New:
//
//	app := warden.NewModule("app")
//	warden.ProvideFunc[*Server](app, NewServer)
//	warden.ProvideValue(app, &Config{Port: 8080})
//	warden.Bind[Store, *PostgresStore](app)
//
//	inj, err := warden.New(ctx, warden.WithModules(app))
//
// Root modules (WithModules) declare ROOT bindings. Implicit modules
// (WithImplicit) form a catalog that only satisfies edges; their bindings are
// TRANSITIVE when reached. Override modules (WithOverrides) replace bindings
// by key before registration.
//
// # Direct and deferred edges
//
// A direct edge means the consumer needs the dependency to be built first. A
// deferred edge hands the consumer a handle instead; nothing is built until
// the handle is used:
//
//	func NewReporter(db *DB, cache warden.Deferred[*Cache]) *Reporter
//
// Constructor parameters of type Deferred[T] are deferred edges, all other
// parameters are direct. Provider-style bindings declare edges with DependsOn
// and Defers.
//
// # Materialization policy
//
// After registration every binding reachable from a root through direct
// edges is classified. The decision for a singleton is:
//
//   - AsEagerSingleton: eager, in every stage.
//   - Development stage: lazy.
//   - Production stage: ROOT bindings are eager. TRANSITIVE bindings are lazy
//     under IsolatedChildScope and eager under FlattenedScope.
//
// Unscoped bindings are never cached and so never eager. The eager pass
// constructs the eager set and its direct closure, dependencies first, and
// never crosses a deferred edge.
//
// # Post-build actions
//
// Actions run once, in order, after the eager pass:
//
//	inj, err := warden.New(ctx,
//	    warden.WithModules(app),
//	    warden.WithStage(warden.Development),
//	    warden.WithActions(
//	        warden.CreateAllBoundSingletons(),
//	        warden.BindingReport("startup", os.Stdout),
//	    ),
//	)
//
// Every constructed singleton leaves a SingletonRecord with its construction
// ordinal and reason (EAGER-POLICY or ON-DEMAND).
//
// # Observability
//
// WithLogger takes a zap logger, WithTracer an OpenTelemetry tracer and
// WithPrometheus a Prometheus registerer. Observer hooks are available for
// resolves, materializations and actions.
package warden
