package workflow

// Order derives the execution order for a graph. It is total and
// deterministic: the same nodes and edges always produce the same sequence,
// and every node appears exactly once.
//
// Nodes with no incoming edge are start nodes and seed a breadth-first
// traversal in their original order; successors are enqueued in edge-array
// order. Nodes the traversal never reaches (disconnected islands) are
// appended afterwards in original order. A graph with no start node at all
// (every node has an incoming edge, i.e. pure cycles) falls back to the
// original input order with no traversal.
func Order(nodes []Node, edges []Edge) []Node {
	hasIncoming := make(map[string]bool, len(nodes))
	for _, e := range edges {
		hasIncoming[e.Target] = true
	}

	var starts []Node
	for _, n := range nodes {
		if !hasIncoming[n.ID] {
			starts = append(starts, n)
		}
	}
	if len(starts) == 0 {
		out := make([]Node, len(nodes))
		copy(out, nodes)
		return out
	}

	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	ordered := make([]Node, 0, len(nodes))
	visited := make(map[string]bool, len(nodes))
	queue := append([]Node(nil), starts...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current.ID] {
			continue
		}
		visited[current.ID] = true
		ordered = append(ordered, current)

		for _, e := range edges {
			if e.Source != current.ID || visited[e.Target] {
				continue
			}
			if next, ok := byID[e.Target]; ok {
				queue = append(queue, next)
			}
		}
	}

	// Disconnected leftovers keep their original relative order.
	for _, n := range nodes {
		if !visited[n.ID] {
			ordered = append(ordered, n)
		}
	}

	return ordered
}
