package engine

import (
	"fmt"

	"github.com/veilflow/veilflow/internal/domain"
)

// topoSort orders reachable nodes so every edge points forward. Ties are
// broken by node declaration order, which keeps replays deterministic for
// a fixed graph version.
func topoSort(g *domain.Graph) ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	position := make(map[string]int, len(g.Nodes))

	for i, n := range g.Nodes {
		indegree[n.ID] = 0
		position[n.ID] = i
	}

	for _, e := range g.Edges {
		indegree[e.To]++
	}

	var ready []string
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		// Lowest declaration position first.
		best := 0
		for i := 1; i < len(ready); i++ {
			if position[ready[i]] < position[ready[best]] {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, id)

		for _, e := range g.Outgoing(id) {
			indegree[e.To]--
			if indegree[e.To] == 0 {
				ready = append(ready, e.To)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("graph contains a cycle: %w", domain.ErrGraphInvalid)
	}

	return order, nil
}
