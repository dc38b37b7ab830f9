package graph

import "iter"

// Topo returns a restartable, lazy sequence of the graph's nodes in
// topological order. Feedback edges do not constrain the order. If the graph
// contains an unflagged cycle, a CyclicGraphError is returned instead.
//
// Ties are broken by insertion order, which makes the sequence deterministic
// for a given construction history.
func (g *Graph) Topo() (iter.Seq[*Node], error) {
	order, err := g.topoOrder()
	if err != nil {
		return nil, err
	}
	return func(yield func(*Node) bool) {
		for _, id := range order {
			if !yield(&g.nodes[id]) {
				return
			}
		}
	}, nil
}

// findCycle returns the names of the nodes stuck on an unflagged cycle, or
// nil if the non-feedback edges form a DAG.
func (g *Graph) findCycle() []string {
	if _, err := g.topoOrder(); err != nil {
		return err.(CyclicGraphError).Nodes
	}
	return nil
}

// topoOrder runs Kahn's algorithm over the non-feedback edges.
func (g *Graph) topoOrder() ([]NodeID, error) {
	indegree := make([]int, len(g.nodes))
	for _, e := range g.edges {
		if !e.Feedback {
			indegree[e.Dst]++
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	done := make([]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		// Pick the lowest-numbered ready node so the order only depends on the
		// construction history.
		next := NodeID(-1)
		for i := range g.nodes {
			if !done[i] && indegree[i] == 0 {
				next = NodeID(i)
				break
			}
		}
		if next == -1 {
			var stuck []string
			for i := range g.nodes {
				if !done[i] {
					stuck = append(stuck, g.nodes[i].Name)
				}
			}
			return nil, CyclicGraphError{Nodes: stuck}
		}
		done[next] = true
		order = append(order, next)
		for _, i := range g.nodes[next].out {
			if !g.edges[i].Feedback {
				indegree[g.edges[i].Dst]--
			}
		}
	}
	return order, nil
}
