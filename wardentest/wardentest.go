// Package wardentest builds injectors for tests and asserts on what they
// materialized.
package wardentest

import (
	"context"

	"github.com/danpasecinic/warden"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestInjector struct {
	*warden.Injector
	tb TB
}

// New builds an injector and closes it when the test ends. Any build error,
// including a failing action, fails the test.
func New(tb TB, opts ...warden.Option) *TestInjector {
	tb.Helper()

	inj, err := warden.New(context.Background(), opts...)
	if err != nil {
		tb.Fatalf("failed to build injector: %v", err)
		return nil
	}

	tb.Cleanup(
		func() {
			if err := inj.Close(context.Background()); err != nil {
				tb.Fatalf("failed to close injector: %v", err)
			}
		},
	)

	return &TestInjector{
		Injector: inj,
		tb:       tb,
	}
}

// Replace returns an option that overrides the binding for T with value.
func Replace[T any](value T, opts ...warden.BindingOption) warden.Option {
	m := warden.NewModule("wardentest.replace")
	warden.ProvideValue(m, value, opts...)
	return warden.WithOverrides(m)
}

func ReplaceNamed[T any](name string, value T, opts ...warden.BindingOption) warden.Option {
	return Replace(value, append(opts, warden.Named(name))...)
}

func ReplaceProvider[T any](provider warden.Provider[T], opts ...warden.BindingOption) warden.Option {
	m := warden.NewModule("wardentest.replace")
	warden.Provide(m, provider, opts...)
	return warden.WithOverrides(m)
}

func MustInvoke[T any](ti *TestInjector) T {
	ti.tb.Helper()

	v, err := warden.Invoke[T](context.Background(), ti.Injector)
	if err != nil {
		ti.tb.Fatalf("failed to invoke %s: %v", warden.KeyOf[T](), err)
	}
	return v
}

func MustInvokeNamed[T any](ti *TestInjector, name string) T {
	ti.tb.Helper()

	v, err := warden.InvokeNamed[T](context.Background(), ti.Injector, name)
	if err != nil {
		ti.tb.Fatalf("failed to invoke %s: %v", warden.KeyNamed[T](name), err)
	}
	return v
}

func AssertHas[T any](ti *TestInjector) {
	ti.tb.Helper()

	if !warden.Has[T](ti.Injector) {
		ti.tb.Fatalf("expected injector to have %s", warden.KeyOf[T]())
	}
}

func AssertNotHas[T any](ti *TestInjector) {
	ti.tb.Helper()

	if warden.Has[T](ti.Injector) {
		ti.tb.Fatalf("expected injector to not have %s", warden.KeyOf[T]())
	}
}

func AssertMaterialized[T any](ti *TestInjector, reason warden.Reason) {
	ti.tb.Helper()

	key := warden.KeyOf[T]()
	rec, ok := ti.Record(key)
	if !ok {
		ti.tb.Fatalf("expected %s to be materialized", key)
		return
	}
	if rec.Reason != reason {
		ti.tb.Fatalf("expected %s to be materialized by %s, got %s", key, reason, rec.Reason)
	}
}

func AssertNotMaterialized[T any](ti *TestInjector) {
	ti.tb.Helper()

	key := warden.KeyOf[T]()
	if rec, ok := ti.Record(key); ok {
		ti.tb.Fatalf("expected %s not to be materialized, built %s with ordinal %d", key, rec.Reason, rec.Ordinal)
	}
}

func AssertTier[T any](ti *TestInjector, tier warden.Tier) {
	ti.tb.Helper()

	key := warden.KeyOf[T]()
	class, ok := ti.Classification(key)
	if !ok {
		ti.tb.Fatalf("expected %s to be classified", key)
		return
	}
	if class.Tier != tier {
		ti.tb.Fatalf("expected %s to be %s, got %s", key, tier, class.Tier)
	}
}
