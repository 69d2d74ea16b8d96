package wardentest_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danpasecinic/warden"
	"github.com/danpasecinic/warden/wardentest"
)

type Config struct {
	Port int
}

type Database struct {
	Config *Config
}

type Search struct{}

type UserRepository interface {
	FindByID(id int) string
}

type MockUserRepository struct {
	FindByIDFn func(id int) string
}

func (m *MockUserRepository) FindByID(id int) string {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(id)
	}
	return ""
}

type pgRepository struct{}

func (pgRepository) FindByID(int) string { return "pg" }

type fakeTB struct {
	failed   bool
	message  string
	cleanups []func()
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Fatal(args ...any) {
	f.failed = true
	f.message = fmt.Sprint(args...)
}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.failed = true
	f.message = fmt.Sprintf(format, args...)
}

func (f *fakeTB) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

func module() *warden.Module {
	m := warden.NewModule("app")
	warden.ProvideValue(m, &Config{Port: 5432})
	warden.ProvideFunc[*Database](m, func(cfg *Config) *Database { return &Database{Config: cfg} })
	warden.ProvideFunc[UserRepository](m, func() *pgRepository { return &pgRepository{} })
	return m
}

func TestNew(t *testing.T) {
	t.Parallel()

	ti := wardentest.New(t, warden.WithModules(module()))
	assert.NotNil(t, ti)
	wardentest.AssertHas[*Database](ti)
	wardentest.AssertNotHas[*Search](ti)
	wardentest.AssertMaterialized[*Database](ti, warden.EagerPolicy)
	wardentest.AssertTier[*Database](ti, warden.Root)
}

func TestNewFailure(t *testing.T) {
	t.Parallel()

	m := warden.NewModule("broken")
	warden.ProvideFunc[*Database](m, func(*Search) *Database { return nil })

	tb := &fakeTB{}
	ti := wardentest.New(tb, warden.WithModules(m))
	assert.Nil(t, ti)
	assert.True(t, tb.failed)
	assert.Contains(t, tb.message, "MISSING_DEPENDENCY")
}

func TestReplace(t *testing.T) {
	t.Parallel()

	mock := &MockUserRepository{FindByIDFn: func(id int) string { return "mock" }}
	ti := wardentest.New(
		t,
		warden.WithModules(module()),
		wardentest.Replace[UserRepository](mock),
		wardentest.Replace(&Config{Port: 1}),
	)

	repo := wardentest.MustInvoke[UserRepository](ti)
	assert.Equal(t, "mock", repo.FindByID(1))
	assert.Equal(t, 1, wardentest.MustInvoke[*Database](ti).Config.Port)
}

func TestReplaceNamedAndProvider(t *testing.T) {
	t.Parallel()

	ti := wardentest.New(
		t,
		warden.WithStage(warden.Development),
		wardentest.ReplaceNamed("replica", &Config{Port: 2}),
		wardentest.ReplaceProvider(
			func(context.Context, warden.Resolver) (*Search, error) {
				return &Search{}, nil
			},
		),
	)

	assert.Equal(t, 2, wardentest.MustInvokeNamed[*Config](ti, "replica").Port)
	wardentest.AssertNotMaterialized[*Search](ti)
	wardentest.MustInvoke[*Search](ti)
	wardentest.AssertMaterialized[*Search](ti, warden.OnDemand)
}

func TestAssertionsReportFailures(t *testing.T) {
	t.Parallel()

	tb := &fakeTB{}
	ti := wardentest.New(tb, warden.WithModules(module()), warden.WithStage(warden.Development))

	wardentest.AssertMaterialized[*Database](ti, warden.EagerPolicy)
	assert.True(t, tb.failed)
	assert.Contains(t, tb.message, "to be materialized")

	tb.failed = false
	wardentest.MustInvoke[*Database](ti)
	wardentest.AssertMaterialized[*Database](ti, warden.EagerPolicy)
	assert.True(t, tb.failed)
	assert.Contains(t, tb.message, "on-demand")

	tb.failed = false
	wardentest.AssertTier[*Search](ti, warden.Root)
	assert.True(t, tb.failed)

	for _, fn := range tb.cleanups {
		fn()
	}
}
