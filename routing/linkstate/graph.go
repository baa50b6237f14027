package linkstate

import (
	"sort"

	"github.com/sarchlab/routesim/sim"
)

// Edge is what a router believes about a directed edge. Version is the tick
// at which the fact was asserted by the router that owns the edge.
type Edge struct {
	Version int  `json:"version"`
	Exists  bool `json:"exists"`
}

// Graph maps a vertex to its outgoing edges.
type Graph map[sim.Address]map[sim.Address]Edge

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	c := make(Graph, len(g))
	for v, edges := range g {
		ce := make(map[sim.Address]Edge, len(edges))
		for u, e := range edges {
			ce[u] = e
		}

		c[v] = ce
	}

	return c
}

// set records an edge.
func (g Graph) set(v, u sim.Address, e Edge) {
	edges, ok := g[v]
	if !ok {
		edges = make(map[sim.Address]Edge)
		g[v] = edges
	}

	edges[u] = e
}

// merge adopts the edges of other that are unknown or strictly newer. It
// reports if anything was adopted.
func (g Graph) merge(other Graph) bool {
	changed := false

	for v, edges := range other {
		for u, e := range edges {
			current, known := g[v][u]
			if known && current.Version >= e.Version {
				continue
			}

			g.set(v, u, e)
			changed = true
		}
	}

	return changed
}

// neighbors returns the vertices that v believes it has an edge to, sorted.
func (g Graph) neighbors(v sim.Address) []sim.Address {
	list := make([]sim.Address, 0, len(g[v]))
	for u, e := range g[v] {
		if e.Exists {
			list = append(list, u)
		}
	}

	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })

	return list
}

// GraphPayload carries the graph known by the sender.
type GraphPayload struct {
	Graph Graph
}

// Kind returns "graph".
func (GraphPayload) Kind() string {
	return "graph"
}

// Clone returns a deep copy of the payload.
func (p GraphPayload) Clone() sim.Payload {
	return GraphPayload{Graph: p.Graph.Clone()}
}
