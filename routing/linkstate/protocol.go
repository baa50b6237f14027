// Package linkstate implements a link-state routing protocol. Every router
// floods its view of the topology, with every edge versioned by the tick it
// was asserted at, and picks next hops with a breadth-first search.
package linkstate

import (
	"log/slog"

	"github.com/sarchlab/routesim/sim"
)

// Period is the number of ticks between two unconditional graph broadcasts.
const Period = 20

// Protocol is the link-state routing algorithm of a single router.
type Protocol struct {
	router sim.Router
	log    *slog.Logger

	graph   Graph
	tick    int
	changed bool
}

// New creates the protocol for a router. It matches sim.AlgorithmFactory.
func New(r sim.Router) sim.RoutingAlgorithm {
	return &Protocol{
		router: r,
		log:    r.Logger(),
		graph:  make(Graph),
	}
}

// Graph returns a copy of the known graph.
func (p *Protocol) Graph() Graph {
	return p.graph.Clone()
}

// Route handles the arrivals of a tick.
func (p *Protocol) Route(arrivals []sim.Arrival) {
	for _, a := range arrivals {
		cp, isControl := a.Packet.(*sim.ControlPacket)
		if !isControl {
			p.router.StorePacket(a.Packet)
			continue
		}

		payload, ok := cp.Payload().(GraphPayload)
		if !ok {
			p.log.Debug("ignoring control packet",
				"packet", cp.ID(), "src", cp.Src())
			continue
		}

		if p.graph.merge(payload.Graph) {
			p.log.Debug("merged graph", "src", cp.Src())
			p.changed = true
		}
	}

	if p.changed || p.tick%Period == 0 {
		p.broadcast()
		p.changed = false
	} else {
		p.forwardStored()
	}

	p.tick++
}

func (p *Protocol) broadcast() {
	p.log.Debug("sending graph", "vertices", len(p.graph))

	payload := GraphPayload{Graph: p.graph}
	for _, l := range p.router.Links() {
		p.router.ForwardPacket(l, p.router.NewControlPacket(l.Dst(), payload))
	}
}

func (p *Protocol) forwardStored() {
	for _, pkt := range p.router.StoredPackets() {
		l := p.nextHop(pkt.Dst())
		if l == nil {
			continue
		}

		p.router.ForwardPacket(l, pkt)
	}
}

// nextHop searches for the shortest path to dst that starts on an idle link
// and then follows edges believed to exist. It returns nil if there is no
// such path.
func (p *Protocol) nextHop(dst sim.Address) sim.Link {
	self := p.router.ID()
	parent := map[sim.Address]sim.Address{self: self}
	queue := make([]sim.Address, 0)

	for _, l := range p.router.Links() {
		if l.Idle() {
			parent[l.Dst()] = self
			queue = append(queue, l.Dst())
		}
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]

		if v == dst {
			break
		}

		for _, u := range p.graph.neighbors(v) {
			if _, seen := parent[u]; seen {
				continue
			}

			parent[u] = v
			queue = append(queue, u)
		}
	}

	if _, found := parent[dst]; !found {
		return nil
	}

	hop := dst
	for parent[hop] != self {
		hop = parent[hop]
	}

	l, ok := p.router.Link(hop)
	if !ok {
		return nil
	}

	return l
}

// AddLink asserts that the edge to the new neighbor exists.
func (p *Protocol) AddLink(l sim.Link) {
	p.graph.set(p.router.ID(), l.Dst(), Edge{Version: p.tick, Exists: true})
	p.changed = true
}

// DelLink asserts that the edge to the former neighbor is gone. The edge is
// kept as a tombstone so that it outranks older records at the neighbors.
func (p *Protocol) DelLink(l sim.Link) {
	p.graph.set(p.router.ID(), l.Dst(), Edge{Version: p.tick, Exists: false})
	p.changed = true
}
