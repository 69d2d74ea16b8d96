package graph

// ClosureOrder returns the targets together with everything they reach, each
// node placed after its dependencies. Targets are visited in the given order.
// Unknown nodes are skipped.
func (g *Graph) ClosureOrder(targets []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var stack []string
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		if visiting[id] {
			for i, p := range stack {
				if p == id {
					path := append([]string{}, stack[i:]...)
					return &CycleError{Path: append(path, id)}
				}
			}
			return ErrCycleDetected
		}
		if visited[id] {
			return nil
		}

		visiting[id] = true
		stack = append(stack, id)

		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; !exists {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		visiting[id] = false
		visited[id] = true
		order = append(order, id)
		return nil
	}

	for _, target := range targets {
		if _, exists := g.edges[target]; !exists {
			continue
		}
		if err := visit(target); err != nil {
			return nil, err
		}
	}

	return order, nil
}
