package warden_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/warden"
)

type Mailer struct {
	From string
}

type Notifier struct {
	mailer warden.Deferred[*Mailer]
	cfg    *Config
}

func TestProvideFuncWithError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := warden.NewModule("app")
	warden.ProvideValue(m, &Config{Port: 25})
	warden.ProvideFunc[*Mailer](
		m, func(cfg *Config) (*Mailer, error) {
			return &Mailer{From: "noreply"}, nil
		},
	)

	inj, err := warden.New(ctx, warden.WithModules(m))
	require.NoError(t, err)
	assert.Equal(t, "noreply", warden.MustInvoke[*Mailer](ctx, inj).From)
}

func TestProvideFuncDetectsDeferredParams(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var mailers atomic.Int32

	m := warden.NewModule("app")
	warden.ProvideValue(m, &Config{})
	warden.ProvideFunc[*Notifier](
		m, func(mailer warden.Deferred[*Mailer], cfg *Config) *Notifier {
			return &Notifier{mailer: mailer, cfg: cfg}
		},
	)
	catalog := warden.NewModule("catalog")
	warden.ProvideFunc[*Mailer](
		catalog, func() *Mailer {
			mailers.Add(1)
			return &Mailer{From: "ops"}
		},
	)

	inj, err := warden.New(ctx, warden.WithModules(m), warden.WithImplicit(catalog))
	require.NoError(t, err)

	key := warden.KeyOf[*Notifier]()
	assert.Equal(t, []warden.Key{warden.KeyOf[*Config]()}, inj.DirectDependenciesOf(key))
	assert.Equal(t, []warden.Key{warden.KeyOf[*Mailer]()}, inj.DeferredDependenciesOf(key))

	n := warden.MustInvoke[*Notifier](ctx, inj)
	assert.Equal(t, int32(0), mailers.Load())

	mailer, err := n.mailer.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ops", mailer.From)
	assert.Equal(t, int32(1), mailers.Load())
}

func TestProvideFuncInterfaceReturn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := warden.NewModule("app")
	warden.ProvideFunc[Store](m, func() *memStore { return &memStore{} })

	inj, err := warden.New(ctx, warden.WithModules(m))
	require.NoError(t, err)

	store, err := warden.Invoke[Store](ctx, inj)
	require.NoError(t, err)
	assert.Equal(t, "mem", store.Name())
}

func TestProviderDefers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var mailers atomic.Int32

	m := warden.NewModule("app")
	warden.Provide(
		m, func(ctx context.Context, r warden.Resolver) (*Notifier, error) {
			mailer, err := warden.DeferredOf[*Mailer](r)
			if err != nil {
				return nil, err
			}
			return &Notifier{mailer: mailer}, nil
		}, warden.Defers(warden.KeyOf[*Mailer]()),
	)
	warden.ProvideFunc[*Mailer](
		m, func() *Mailer {
			mailers.Add(1)
			return &Mailer{}
		}, warden.WithScope(warden.Unscoped),
	)

	inj, err := warden.New(ctx, warden.WithModules(m))
	require.NoError(t, err)

	n := warden.MustInvoke[*Notifier](ctx, inj)
	assert.Equal(t, int32(0), mailers.Load())
	assert.Equal(t, warden.KeyOf[*Mailer](), n.mailer.Key())

	a := n.mailer.MustGet(ctx)
	b := n.mailer.MustGet(ctx)
	assert.NotSame(t, a, b)
	assert.Equal(t, int32(2), mailers.Load())
}

func TestDeferredFromInjector(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := warden.NewModule("app")
	warden.ProvideValue(m, &Mailer{From: "a"}, warden.Named("alerts"))

	inj, err := warden.New(ctx, warden.WithModules(m), warden.WithStage(warden.Development))
	require.NoError(t, err)

	d, err := warden.DeferredNamed[*Mailer](inj, "alerts")
	require.NoError(t, err)
	assert.False(t, inj.Materialized(d.Key()))
	assert.Equal(t, "a", d.MustGet(ctx).From)
	assert.True(t, inj.Materialized(d.Key()))

	_, err = warden.DeferredOf[*Mailer](inj)
	assert.True(t, warden.IsNotFound(err))
}

func TestZeroDeferred(t *testing.T) {
	t.Parallel()

	var d warden.Deferred[*Mailer]
	assert.Equal(t, warden.KeyOf[*Mailer](), d.Key())

	_, err := d.Get(context.Background())
	assert.True(t, warden.IsResolutionFailed(err))
	assert.Panics(t, func() { d.MustGet(context.Background()) })
}

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, warden.Key) (any, error) { return nil, nil }
func (stubResolver) Has(warden.Key) bool                             { return true }

func TestDeferredOfForeignResolver(t *testing.T) {
	t.Parallel()

	_, err := warden.DeferredOf[*Mailer](stubResolver{})
	assert.True(t, warden.IsResolutionFailed(err))
}

func TestInvokeTypeMismatch(t *testing.T) {
	t.Parallel()

	_, err := warden.Invoke[*Mailer](context.Background(), stubResolver{})
	assert.True(t, warden.IsResolutionFailed(err))
}
