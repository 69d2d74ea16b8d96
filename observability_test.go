package warden_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danpasecinic/warden"
)

func TestResolveObserver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var mu sync.Mutex
	var keys []warden.Key
	var failures int

	inj, err := warden.New(
		ctx,
		warden.WithModules(appModule()),
		warden.WithStage(warden.Development),
		warden.WithResolveObserver(
			func(key warden.Key, _ time.Duration, err error) {
				mu.Lock()
				defer mu.Unlock()
				keys = append(keys, key)
				if err != nil {
					failures++
				}
			},
		),
	)
	require.NoError(t, err)

	warden.MustInvoke[*Config](ctx, inj)
	_, _ = warden.Invoke[*Mailer](ctx, inj)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, keys, warden.KeyOf[*Config]())
	assert.Contains(t, keys, warden.KeyOf[*Mailer]())
	assert.Equal(t, 1, failures)
}

func TestMaterializeObserver(t *testing.T) {
	t.Parallel()

	var records []warden.SingletonRecord
	_, err := warden.New(
		context.Background(),
		warden.WithModules(appModule()),
		warden.WithMaterializeObserver(
			func(rec warden.SingletonRecord) {
				records = append(records, rec)
			},
		),
	)
	require.NoError(t, err)

	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, uint64(i+1), rec.Ordinal)
		assert.Equal(t, warden.EagerPolicy, rec.Reason)
	}
}

func TestActionsRunInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	record := func(name string) warden.Action {
		return warden.ActionFunc(
			name, func(_ context.Context, inj *warden.Injector) error {
				order = append(order, name)
				assert.NotEmpty(t, inj.ID())
				return nil
			},
		)
	}

	var observed []string
	_, err := warden.New(
		context.Background(),
		warden.WithActions(record("first"), record("second")),
		warden.WithActions(record("third")),
		warden.WithActionObserver(
			func(action string, _ time.Duration, err error) {
				observed = append(observed, action)
			},
		),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, order, observed)
}

func TestActionFailureKeepsInjector(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("boom")
	ran := false

	inj, err := warden.New(
		ctx,
		warden.WithModules(appModule()),
		warden.WithStage(warden.Development),
		warden.WithActions(
			warden.ActionFunc(
				"warm", func(ctx context.Context, inj *warden.Injector) error {
					_, err := warden.Invoke[*Config](ctx, inj)
					return err
				},
			),
			warden.ActionFunc("fail", func(context.Context, *warden.Injector) error { return boom }),
			warden.ActionFunc(
				"never", func(context.Context, *warden.Injector) error {
					ran = true
					return nil
				},
			),
		),
	)
	require.Error(t, err)
	require.NotNil(t, inj)
	assert.True(t, warden.IsActionFailed(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"fail"`)
	assert.False(t, ran)

	assert.True(t, inj.Materialized(warden.KeyOf[*Config]()))
	srv, err := warden.Invoke[*Server](ctx, inj)
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestEagerFailureSkipsActions(t *testing.T) {
	t.Parallel()

	ran := false
	m := warden.NewModule("app")
	warden.ProvideFunc[*Database](m, func() (*Database, error) { return nil, errors.New("down") })

	inj, err := warden.New(
		context.Background(),
		warden.WithModules(m),
		warden.WithActions(
			warden.ActionFunc(
				"after", func(context.Context, *warden.Injector) error {
					ran = true
					return nil
				},
			),
		),
	)
	require.Error(t, err)
	assert.Nil(t, inj)
	assert.False(t, ran)
}

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := prometheus.NewRegistry()

	inj, err := warden.New(
		ctx,
		warden.WithModules(appModule()),
		warden.WithPrometheus(reg),
		warden.WithActions(warden.ActionFunc("noop", func(context.Context, *warden.Injector) error { return nil })),
	)
	require.NoError(t, err)

	_, _ = warden.Invoke[*Mailer](ctx, inj)

	m := warden.NewMetrics("warden")
	require.NoError(t, m.Register(reg))

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Materialized.WithLabelValues("eager-policy")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Materialized.WithLabelValues("on-demand")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ResolveErrs))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Actions.WithLabelValues("noop", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Construction))
}

func TestPrometheusSharedRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	for range 2 {
		_, err := warden.New(context.Background(), warden.WithModules(appModule()), warden.WithPrometheus(reg))
		require.NoError(t, err)
	}

	m := warden.NewMetrics("warden")
	require.NoError(t, m.Register(reg))
	assert.Equal(t, float64(6), testutil.ToFloat64(m.Materialized.WithLabelValues("eager-policy")))
}

func TestTracing(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	_, err := warden.New(
		context.Background(),
		warden.WithModules(appModule()),
		warden.WithTracer(tp.Tracer("warden-test")),
		warden.WithActions(warden.CreateAllBoundSingletons()),
	)
	require.NoError(t, err)

	names := make(map[string]int)
	for _, span := range sr.Ended() {
		names[span.Name()]++
	}
	assert.Equal(t, 1, names["warden.build"])
	assert.Equal(t, 3, names["warden.construct"])
	assert.Equal(t, 1, names["warden.action"])
}

func TestLogging(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	_, err := warden.New(
		context.Background(),
		warden.WithModules(appModule()),
		warden.WithLogger(zap.New(core)),
		warden.WithActions(warden.BindingReport("startup", nil)),
	)
	require.NoError(t, err)

	built := logs.FilterMessage("injector built").All()
	require.Len(t, built, 1)
	fields := built[0].ContextMap()
	assert.Equal(t, int64(3), fields["eager"])
	assert.Equal(t, int64(3), fields["materialized"])

	assert.Equal(t, 3, logs.FilterMessage("singleton materialized").Len())
	assert.Equal(t, 3, logs.FilterMessage("binding").Len())
}
