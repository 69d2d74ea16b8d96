package container

import (
	"context"
	"slices"
)

type chainKey struct{}

type eagerPassKey struct{}

type ownerKey struct{}

// owner identifies one top-level resolution and every nested resolve made on
// its behalf. Cells under construction are tagged with their owner so waits
// between resolutions can be checked for cycles.
type owner struct {
	id uint64
}

// withChain appends key to the resolution chain carried by ctx. The chain is
// per call stack, so concurrent resolutions of the same key never see each
// other as cycles.
func withChain(ctx context.Context, key string) context.Context {
	chain := chainFrom(ctx)
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, chainKey{}, append(next, key))
}

func chainFrom(ctx context.Context) []string {
	chain, _ := ctx.Value(chainKey{}).([]string)
	return chain
}

func inChain(ctx context.Context, key string) bool {
	return slices.Contains(chainFrom(ctx), key)
}

func withEagerPass(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, eagerPassKey{}, on)
}

func reasonFrom(ctx context.Context) Reason {
	if on, _ := ctx.Value(eagerPassKey{}).(bool); on {
		return EagerPolicy
	}
	return OnDemand
}

func ownerFrom(ctx context.Context) *owner {
	own, _ := ctx.Value(ownerKey{}).(*owner)
	return own
}
