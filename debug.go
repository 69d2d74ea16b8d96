package warden

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type GraphInfo struct {
	Bindings []BindingInfo
	// Cycles lists direct-edge cycles. They only fail a build when an eager
	// binding reaches them; lazy ones fail on first use.
	Cycles [][]Key
}

type BindingInfo struct {
	Key          Key
	Direct       []Key
	Deferred     []Key
	Dependents   []Key
	Scope        Scope
	Tier         string
	Decision     Decision
	Materialized bool
}

func (i *Injector) Graph() GraphInfo {
	keys := i.registry.Keys()
	sort.Strings(keys)

	g := i.container.Graph()
	bindings := make([]BindingInfo, 0, len(keys))

	for _, key := range keys {
		b, _ := i.registry.Get(key)

		tier := "-"
		if c, ok := i.Classification(Key(key)); ok {
			tier = c.Tier.String()
		}

		bindings = append(
			bindings, BindingInfo{
				Key:          Key(key),
				Direct:       toKeys(b.Direct()),
				Deferred:     toKeys(b.Deferred()),
				Dependents:   toKeys(g.Dependents(key)),
				Scope:        b.Scope,
				Tier:         tier,
				Decision:     i.Decision(Key(key)),
				Materialized: i.Materialized(Key(key)),
			},
		)
	}

	var cycles [][]Key
	for _, path := range g.Cycles() {
		cycles = append(cycles, toKeys(path))
	}

	return GraphInfo{Bindings: bindings, Cycles: cycles}
}

func (i *Injector) PrintGraph() {
	i.FprintGraph(os.Stdout)
}

// FprintGraph writes one line per binding. ● marks a materialized singleton,
// deferred edges are prefixed with ~.
func (i *Injector) FprintGraph(w io.Writer) {
	info := i.Graph()

	if len(info.Bindings) == 0 {
		_, _ = fmt.Fprintln(w, "(empty injector)")
		return
	}

	for _, b := range info.Bindings {
		status := "○"
		if b.Materialized {
			status = "●"
		}

		deps := make([]string, 0, len(b.Direct)+len(b.Deferred))
		for _, d := range b.Direct {
			deps = append(deps, string(d))
		}
		for _, d := range b.Deferred {
			deps = append(deps, "~"+string(d))
		}

		line := fmt.Sprintf("%s %s [%s, %s]", status, b.Key, b.Tier, b.Decision)
		if len(deps) > 0 {
			line += " ← " + strings.Join(deps, ", ")
		}
		_, _ = fmt.Fprintln(w, line)
	}

	for _, cycle := range info.Cycles {
		path := make([]string, len(cycle))
		for j, k := range cycle {
			path[j] = string(k)
		}
		_, _ = fmt.Fprintf(w, "! cycle %s\n", strings.Join(path, " -> "))
	}
}

func (i *Injector) SprintGraph() string {
	var sb strings.Builder
	i.FprintGraph(&sb)
	return sb.String()
}

func (i *Injector) FprintGraphDOT(w io.Writer) {
	info := i.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, b := range info.Bindings {
		label := escapeLabel(string(b.Key))
		style := ""
		if b.Materialized {
			style = ", style=filled, fillcolor=lightblue"
		}
		if b.Tier == Root.String() {
			style += ", penwidth=2"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", b.Key, label, style)
	}

	_, _ = fmt.Fprintln(w)

	cyclic := make(map[[2]Key]bool)
	for _, cycle := range info.Cycles {
		for j := 0; j+1 < len(cycle); j++ {
			cyclic[[2]Key{cycle[j], cycle[j+1]}] = true
		}
	}

	for _, b := range info.Bindings {
		for _, dep := range b.Direct {
			if cyclic[[2]Key{b.Key, dep}] {
				_, _ = fmt.Fprintf(w, "  %q -> %q [color=red];\n", b.Key, dep)
				continue
			}
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", b.Key, dep)
		}
		for _, dep := range b.Deferred {
			_, _ = fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", b.Key, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (i *Injector) SprintGraphDOT() string {
	var sb strings.Builder
	i.FprintGraphDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
