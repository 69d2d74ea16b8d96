package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/warden/internal/scope"
)

func provider(value any) ProviderFunc {
	return func(context.Context, Resolver, []any) (any, error) {
		return value, nil
	}
}

func binding(key string, params ...Param) *Binding {
	return &Binding{Key: key, Provider: provider(key), Scope: scope.Singleton, Params: params}
}

func TestRegistry_RegisterAndQuery(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.Register(
		"app",
		binding("server", Param{Key: "config"}, Param{Key: "cache", Kind: Deferred}, Param{Key: "config"}),
		binding("config"),
	)
	require.NoError(t, err)

	assert.True(t, r.Has("server"))
	assert.False(t, r.Has("cache"))
	assert.Equal(t, 2, r.Size())
	assert.Equal(t, []string{"config"}, r.DirectDependenciesOf("server"))
	assert.Equal(t, []string{"cache"}, r.DeferredDependenciesOf("server"))
	assert.Nil(t, r.DirectDependenciesOf("missing"))

	b, ok := r.Get("server")
	require.True(t, ok)
	assert.Equal(t, "app", b.Module)
}

func TestRegistry_AllIsOrderedAndRestartable(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register("a", binding("z"), binding("y")))
	require.NoError(t, r.Register("b", binding("x")))

	collect := func() []string {
		var keys []string
		for b := range r.All() {
			keys = append(keys, b.Key)
		}
		return keys
	}

	assert.Equal(t, []string{"z", "y", "x"}, collect())
	assert.Equal(t, collect(), collect())
	assert.Equal(t, []string{"z", "y", "x"}, r.Keys())

	for b := range r.All() {
		assert.Equal(t, "z", b.Key)
		break
	}
}

func TestRegistry_Duplicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming *Binding
		wantErr  bool
	}{
		{name: "compatible", incoming: binding("svc"), wantErr: false},
		{name: "scope conflict", incoming: &Binding{Key: "svc", Scope: scope.Unscoped}, wantErr: true},
		{name: "eager conflict", incoming: &Binding{Key: "svc", Scope: scope.Singleton, Eager: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()

				r := New()
				require.NoError(t, r.Register("first", binding("svc")))

				err := r.Register("second", tt.incoming)
				if !tt.wantErr {
					require.NoError(t, err)
					b, _ := r.Get("svc")
					assert.Equal(t, "first", b.Module, "first registration wins")
					return
				}

				var dup *DuplicateError
				require.True(t, errors.As(err, &dup))
				assert.Equal(t, "svc", dup.Key)
				assert.Equal(t, "first", dup.Existing)
				assert.Equal(t, "second", dup.Incoming)
			},
		)
	}
}

func TestRegistry_ExplicitDeclarationPromotesImplicit(t *testing.T) {
	t.Parallel()

	r := New()
	implicit := binding("svc")
	implicit.Implicit = true
	require.NoError(t, r.Register("catalog", implicit))
	require.NoError(t, r.Register("app", binding("svc")))

	b, _ := r.Get("svc")
	assert.False(t, b.Implicit)
	assert.Equal(t, "app", b.Module)
}

func TestRegistry_GraphHasDirectEdgesOnly(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register(
		"app",
		binding("a", Param{Key: "b"}, Param{Key: "c", Kind: Deferred}),
		binding("b"),
		binding("c", Param{Key: "a"}),
	))

	g := r.Graph()
	assert.Equal(t, []string{"a"}, g.Dependents("b"))
	assert.Empty(t, g.Dependents("c"), "deferred edges are not graph edges")
	assert.Empty(t, g.Cycles(), "a deferred back edge is not a cycle")
}

func TestRegistry_Unresolved(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register("app", binding("a", Param{Key: "b"}, Param{Key: "c", Kind: Deferred})))

	missing := r.Unresolved()
	assert.ElementsMatch(t, []string{"b", "c"}, missing["a"])
}

func TestEdgeKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "direct", Direct.String())
	assert.Equal(t, "deferred", Deferred.String())
	assert.Equal(t, "unknown", EdgeKind(9).String())
}
