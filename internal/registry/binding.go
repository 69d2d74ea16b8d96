package registry

import (
	"context"
	"slices"

	"github.com/danpasecinic/warden/internal/scope"
)

type EdgeKind int

const (
	// Direct dependencies are constructed before their owner.
	Direct EdgeKind = iota
	// Deferred dependencies are injected as a handle and constructed only when
	// the handle is invoked.
	Deferred
)

func (k EdgeKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

type Param struct {
	Key  string
	Kind EdgeKind
}

// Resolver gives providers access to the container. Calls made through it are
// on-demand resolutions, not part of the owner's declared edges.
type Resolver interface {
	Resolve(ctx context.Context, key string) (any, error)
	Has(key string) bool
}

// ProviderFunc builds an instance. args holds one value per declared Param, in
// order: the constructed instance for a direct edge, a handle for a deferred one.
type ProviderFunc func(ctx context.Context, r Resolver, args []any) (any, error)

type Binding struct {
	Key      string
	Provider ProviderFunc
	Scope    scope.Scope
	Eager    bool
	Params   []Param
	Module   string
	Implicit bool
	seq      int
}

func (b *Binding) Direct() []string {
	return b.edges(Direct)
}

func (b *Binding) Deferred() []string {
	return b.edges(Deferred)
}

func (b *Binding) edges(kind EdgeKind) []string {
	var keys []string
	for _, p := range b.Params {
		if p.Kind == kind && !slices.Contains(keys, p.Key) {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Compatible reports whether two declarations of the same key can coexist.
func (b *Binding) Compatible(other *Binding) bool {
	return b.Scope == other.Scope && b.Eager == other.Eager
}

// Seq is the registration sequence number, used for stable ordering.
func (b *Binding) Seq() int {
	return b.seq
}
