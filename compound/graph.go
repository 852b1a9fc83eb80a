// Package compound finds long-horizon consequences of near-term decisions by
// traversing the project's entity dependency graph.
package compound

// neighbor is one adjacency entry.
type neighbor struct {
	id       string
	strength float64
}

// adjacency is an undirected weighted adjacency map. Edges are directed in
// storage but traversed bidirectionally here.
type adjacency map[string][]neighbor

// edge describes one dependency edge for graph construction.
type edge struct {
	source   string
	target   string
	strength float64
}

// buildAdjacency constructs the adjacency map from dependency edges.
// Non-positive strengths are dropped; they carry no influence.
func buildAdjacency(edges []edge) adjacency {
	adj := make(adjacency)
	for _, e := range edges {
		if e.strength <= 0 || e.source == "" || e.target == "" || e.source == e.target {
			continue
		}
		adj[e.source] = append(adj[e.source], neighbor{id: e.target, strength: e.strength})
		adj[e.target] = append(adj[e.target], neighbor{id: e.source, strength: e.strength})
	}
	return adj
}

// reached is a node found by traversal with its best path strength and the
// depth at which that path reached it.
type reached struct {
	strength float64
	depth    int
}

// traverse runs a bounded breadth-first search from start and returns every
// node reachable within maxDepth, keyed by node ID, with the MAXIMUM
// cumulative edge strength over all paths (product of edge strengths along a
// path). Max-strength rather than shortest-path is deliberate: it captures
// the best-case joint influence between two entities. The start node is not
// included in the result.
//
// The function is pure: it takes the adjacency structure and returns a fresh
// map, sharing no state across calls.
func traverse(adj adjacency, start string, maxDepth int) map[string]reached {
	best := map[string]reached{start: {strength: 1, depth: 0}}

	type item struct {
		id       string
		strength float64
		depth    int
	}
	queue := []item{{id: start, strength: 1, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, nb := range adj[cur.id] {
			strength := cur.strength * nb.strength
			prev, seen := best[nb.id]
			// Re-enqueue when a stronger path is found, even to a node
			// already visited at a shallower depth.
			if seen && prev.strength >= strength {
				continue
			}
			best[nb.id] = reached{strength: strength, depth: cur.depth + 1}
			queue = append(queue, item{id: nb.id, strength: strength, depth: cur.depth + 1})
		}
	}

	delete(best, start)
	return best
}
