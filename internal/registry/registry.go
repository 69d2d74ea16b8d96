package registry

import (
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/danpasecinic/warden/internal/graph"
)

type DuplicateError struct {
	Key      string
	Existing string
	Incoming string
	Reason   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf(
		"key %s bound by module %q conflicts with binding from module %q: %s",
		e.Key, e.Incoming, e.Existing, e.Reason,
	)
}

type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
	seq      int
}

func New() *Registry {
	return &Registry{
		bindings: make(map[string]*Binding),
	}
}

// Register ingests the bindings of one module. Declaring a key again with the
// same scope and eagerness is a no-op; any other redeclaration is an error and
// leaves the registry untouched for that binding.
func (r *Registry) Register(module string, bindings ...*Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range bindings {
		if existing, ok := r.bindings[b.Key]; ok {
			if !existing.Compatible(b) {
				return &DuplicateError{
					Key:      b.Key,
					Existing: existing.Module,
					Incoming: module,
					Reason:   describeConflict(existing, b),
				}
			}
			if existing.Implicit && !b.Implicit {
				existing.Implicit = false
				existing.Module = module
			}
			continue
		}

		copied := *b
		copied.Module = module
		copied.Params = append([]Param(nil), b.Params...)
		copied.seq = r.seq
		r.seq++
		r.bindings[b.Key] = &copied
	}

	return nil
}

func describeConflict(a, b *Binding) string {
	if a.Scope != b.Scope {
		return fmt.Sprintf("scope %s vs %s", a.Scope, b.Scope)
	}
	return fmt.Sprintf("eager %t vs %t", a.Eager, b.Eager)
}

func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bindings[key]
	return ok
}

func (r *Registry) Get(key string) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[key]
	return b, ok
}

func (r *Registry) DirectDependenciesOf(key string) []string {
	if b, ok := r.Get(key); ok {
		return b.Direct()
	}
	return nil
}

func (r *Registry) DeferredDependenciesOf(key string) []string {
	if b, ok := r.Get(key); ok {
		return b.Deferred()
	}
	return nil
}

// All yields every binding in registration order. The sequence is computed
// when iteration starts, so it can be ranged over any number of times.
func (r *Registry) All() iter.Seq[*Binding] {
	return func(yield func(*Binding) bool) {
		for _, b := range r.sorted() {
			if !yield(b) {
				return
			}
		}
	}
}

func (r *Registry) sorted() []*Binding {
	r.mu.RLock()
	list := make([]*Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		list = append(list, b)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	return list
}

func (r *Registry) Keys() []string {
	list := r.sorted()
	keys := make([]string, len(list))
	for i, b := range list {
		keys[i] = b.Key
	}
	return keys
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings)
}

// Graph builds the direct-edge dependency graph.
func (r *Registry) Graph() *graph.Graph {
	g := graph.New()
	for b := range r.All() {
		g.AddNode(b.Key, b.Direct())
	}
	return g
}

// Unresolved lists, per binding, edges (of either kind) pointing at keys that
// have no binding.
func (r *Registry) Unresolved() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	missing := make(map[string][]string)
	for key, b := range r.bindings {
		for _, p := range b.Params {
			if _, ok := r.bindings[p.Key]; !ok {
				missing[key] = append(missing[key], p.Key)
			}
		}
	}
	return missing
}
