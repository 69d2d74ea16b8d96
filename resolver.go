package warden

import (
	"context"
	"errors"
	"fmt"

	"github.com/danpasecinic/warden/internal/container"
	"github.com/danpasecinic/warden/internal/reflect"
	"github.com/danpasecinic/warden/internal/registry"
)

type Resolver interface {
	Resolve(ctx context.Context, key Key) (any, error)
	Has(key Key) bool
}

type handleResolver interface {
	resolveHandle(key Key) (*Handle, error)
}

type resolverAdapter struct {
	resolver registry.Resolver
}

func (r *resolverAdapter) Resolve(ctx context.Context, key Key) (any, error) {
	instance, err := r.resolver.Resolve(ctx, string(key))
	if err != nil {
		return nil, translate(err)
	}
	return instance, nil
}

func (r *resolverAdapter) Has(key Key) bool {
	return r.resolver.Has(string(key))
}

func (r *resolverAdapter) resolveHandle(key Key) (*Handle, error) {
	c, ok := r.resolver.(*container.Container)
	if !ok {
		return nil, errResolutionFailed(key, errors.New("no container behind resolver"))
	}
	h, err := c.ResolveDeferred(string(key))
	if err != nil {
		return nil, translate(err)
	}
	return &Handle{inner: h}, nil
}

func Invoke[T any](ctx context.Context, r Resolver) (T, error) {
	return invokeKey[T](ctx, r, KeyOf[T]())
}

func InvokeNamed[T any](ctx context.Context, r Resolver, name string) (T, error) {
	return invokeKey[T](ctx, r, KeyNamed[T](name))
}

func invokeKey[T any](ctx context.Context, r Resolver, key Key) (T, error) {
	var zero T

	instance, err := r.Resolve(ctx, key)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errResolutionFailed(key, fmt.Errorf("instance is %T, not %s", instance, reflect.TypeName[T]()))
	}

	return typed, nil
}

func MustInvoke[T any](ctx context.Context, r Resolver) T {
	v, err := Invoke[T](ctx, r)
	if err != nil {
		panic(err)
	}
	return v
}

func MustInvokeNamed[T any](ctx context.Context, r Resolver, name string) T {
	v, err := InvokeNamed[T](ctx, r, name)
	if err != nil {
		panic(err)
	}
	return v
}

func Has[T any](r Resolver) bool {
	return r.Has(KeyOf[T]())
}

func HasNamed[T any](r Resolver, name string) bool {
	return r.Has(KeyNamed[T](name))
}
