package policy

import (
	"github.com/danpasecinic/warden/internal/registry"
	"github.com/danpasecinic/warden/internal/scope"
)

type Stage int

const (
	Production Stage = iota
	Development
)

func (s Stage) String() string {
	switch s {
	case Production:
		return "production"
	case Development:
		return "development"
	default:
		return "unknown"
	}
}

type IsolationMode int

const (
	// IsolatedChildScope walls transitive bindings off from the eager sweep.
	IsolatedChildScope IsolationMode = iota
	// FlattenedScope merges transitive bindings into the root scope for the
	// purpose of computing eagerness.
	FlattenedScope
)

func (m IsolationMode) String() string {
	switch m {
	case IsolatedChildScope:
		return "isolated-child-scope"
	case FlattenedScope:
		return "flattened-scope"
	default:
		return "unknown"
	}
}

type Decision int

const (
	Lazy Decision = iota
	Eager
)

func (d Decision) String() string {
	if d == Eager {
		return "eager"
	}
	return "lazy"
}

// Decide is the materialization policy. It looks only at declared data.
func Decide(b *registry.Binding, c Classification, stage Stage, mode IsolationMode) Decision {
	if b.Scope != scope.Singleton {
		return Lazy
	}
	if b.Eager {
		return Eager
	}
	if stage == Development {
		return Lazy
	}
	if c.Tier == Root {
		return Eager
	}
	if mode == FlattenedScope {
		return Eager
	}
	return Lazy
}

// EagerSet returns, in registration order, the keys the build pass must
// construct. Unclassified bindings only qualify through an explicit eager flag.
func EagerSet(reg *registry.Registry, classes map[string]Classification, stage Stage, mode IsolationMode) []string {
	var keys []string
	for b := range reg.All() {
		c, observed := classes[b.Key]
		if !observed {
			if !b.Eager || b.Scope != scope.Singleton {
				continue
			}
			c = Classification{Key: b.Key, Tier: Transitive, Via: ViaResolution}
		}
		if Decide(b, c, stage, mode) == Eager {
			keys = append(keys, b.Key)
		}
	}
	return keys
}
