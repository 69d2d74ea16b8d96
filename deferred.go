package warden

import (
	"context"
	"fmt"
	stdreflect "reflect"

	"github.com/danpasecinic/warden/internal/container"
	"github.com/danpasecinic/warden/internal/reflect"
)

// Handle constructs its binding on first Get. Every Get returns the same
// singleton instance; a failed construction may be retried by calling Get
// again.
type Handle struct {
	inner *container.Handle
}

func newHandle(v any) *Handle {
	h, _ := v.(*container.Handle)
	return &Handle{inner: h}
}

func (h *Handle) Key() Key {
	if h == nil || h.inner == nil {
		return ""
	}
	return Key(h.inner.Key())
}

func (h *Handle) Get(ctx context.Context) (any, error) {
	if h == nil || h.inner == nil {
		return nil, errResolutionFailed("", fmt.Errorf("unbound handle"))
	}
	instance, err := h.inner.Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return instance, nil
}

// Deferred is a typed handle. Used as a ProvideFunc parameter it declares a
// deferred edge: the dependency is not constructed when the consumer is.
type Deferred[T any] struct {
	handle *Handle
}

func (d Deferred[T]) Key() Key {
	if d.handle == nil {
		return KeyOf[T]()
	}
	return d.handle.Key()
}

func (d Deferred[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if d.handle == nil {
		return zero, errResolutionFailed(KeyOf[T](), fmt.Errorf("unbound handle"))
	}

	instance, err := d.handle.Get(ctx)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errResolutionFailed(d.Key(), fmt.Errorf("instance is %T, not %s", instance, reflect.TypeName[T]()))
	}
	return typed, nil
}

func (d Deferred[T]) MustGet(ctx context.Context) T {
	v, err := d.Get(ctx)
	if err != nil {
		panic(err)
	}
	return v
}

func (Deferred[T]) deferredKey() string {
	return reflect.TypeKey[T]()
}

func (Deferred[T]) bind(h *Handle) any {
	return Deferred[T]{handle: h}
}

type deferredParam interface {
	deferredKey() string
	bind(h *Handle) any
}

var deferredParamType = stdreflect.TypeOf((*deferredParam)(nil)).Elem()

func asDeferredParam(t stdreflect.Type) (deferredParam, bool) {
	if t.Kind() != stdreflect.Struct || !t.Implements(deferredParamType) {
		return nil, false
	}
	dp, ok := stdreflect.Zero(t).Interface().(deferredParam)
	return dp, ok
}

// DeferredOf returns a handle for T without constructing it. Providers use it
// together with the Defers option.
func DeferredOf[T any](r Resolver) (Deferred[T], error) {
	return deferredOf[T](r, KeyOf[T]())
}

func DeferredNamed[T any](r Resolver, name string) (Deferred[T], error) {
	return deferredOf[T](r, KeyNamed[T](name))
}

func deferredOf[T any](r Resolver, key Key) (Deferred[T], error) {
	hr, ok := r.(handleResolver)
	if !ok {
		return Deferred[T]{}, errResolutionFailed(key, fmt.Errorf("resolver %T cannot hand out deferred handles", r))
	}

	h, err := hr.resolveHandle(key)
	if err != nil {
		return Deferred[T]{}, err
	}
	return Deferred[T]{handle: h}, nil
}
