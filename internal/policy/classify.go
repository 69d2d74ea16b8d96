package policy

import (
	"github.com/danpasecinic/warden/internal/registry"
)

type Tier int

const (
	Root Tier = iota
	Transitive
)

func (t Tier) String() string {
	switch t {
	case Root:
		return "root"
	case Transitive:
		return "transitive"
	default:
		return "unknown"
	}
}

// Via records how a key was first observed.
type Via int

const (
	ViaDeclared Via = iota
	ViaDirectEdge
	ViaDeferredEdge
	ViaResolution
)

func (v Via) String() string {
	switch v {
	case ViaDeclared:
		return "declared"
	case ViaDirectEdge:
		return "direct-edge"
	case ViaDeferredEdge:
		return "deferred-edge"
	case ViaResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

type Classification struct {
	Key  string
	Tier Tier
	Via  Via
	// From is the key whose edge first revealed this one; empty for roots.
	From string
}

// Classify tags roots and walks their direct edges breadth first. A deferred
// target is tagged where it is seen but its own edges are left unwalked.
func Classify(reg *registry.Registry, roots []string) map[string]Classification {
	classes := make(map[string]Classification, len(roots))
	queue := make([]string, 0, len(roots))

	for _, key := range roots {
		if _, seen := classes[key]; seen {
			continue
		}
		classes[key] = Classification{Key: key, Tier: Root, Via: ViaDeclared}
		queue = append(queue, key)
	}

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]

		b, ok := reg.Get(key)
		if !ok {
			continue
		}

		for _, p := range b.Params {
			prev, seen := classes[p.Key]
			switch {
			case p.Kind == registry.Direct && (!seen || prev.Via == ViaDeferredEdge):
				// A key hidden behind a deferred edge elsewhere is still walked
				// once some owner needs it directly.
				classes[p.Key] = Classification{Key: p.Key, Tier: Transitive, Via: ViaDirectEdge, From: key}
				queue = append(queue, p.Key)
			case p.Kind == registry.Deferred && !seen:
				classes[p.Key] = Classification{Key: p.Key, Tier: Transitive, Via: ViaDeferredEdge, From: key}
			}
		}
	}

	return classes
}
