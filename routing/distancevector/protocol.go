// Package distancevector implements a distance-vector routing protocol.
// Routers exchange their tables every few ticks. When a link goes down, the
// routers around it flood an epoch-tagged reset that makes every router
// rebuild its table from its direct links.
package distancevector

import (
	"log/slog"

	"github.com/sarchlab/routesim/sim"
)

// Period is the number of ticks between two table broadcasts.
const Period = 5

// Protocol is the distance-vector routing algorithm of a single router.
type Protocol struct {
	router sim.Router
	log    *slog.Logger

	table          Table
	tick           int
	invalidated    bool
	lastResetEpoch int
}

// New creates the protocol for a router. It matches sim.AlgorithmFactory.
func New(r sim.Router) sim.RoutingAlgorithm {
	return &Protocol{
		router:         r,
		log:            r.Logger(),
		table:          make(Table),
		lastResetEpoch: -1,
	}
}

// Table returns a copy of the routing table.
func (p *Protocol) Table() Table {
	return p.table.Clone()
}

// Route handles the arrivals of a tick.
func (p *Protocol) Route(arrivals []sim.Arrival) {
	for _, a := range arrivals {
		cp, isControl := a.Packet.(*sim.ControlPacket)
		if !isControl {
			p.router.StorePacket(a.Packet)
			continue
		}

		p.handleControl(cp)
	}

	if p.tick%Period == 0 {
		p.broadcast()
	} else {
		p.forwardStored()
	}

	p.tick++
}

func (p *Protocol) handleControl(cp *sim.ControlPacket) {
	switch payload := cp.Payload().(type) {
	case ResetPayload:
		p.handleReset(cp.Src(), payload.Epoch)
	case VectorPayload:
		p.relax(cp.Src(), payload.Table)
	default:
		p.log.Debug("ignoring control packet",
			"packet", cp.ID(), "src", cp.Src(), "kind", payload.Kind())
	}
}

func (p *Protocol) handleReset(from sim.Address, epoch int) {
	if epoch <= p.lastResetEpoch {
		p.log.Debug("ignoring stale reset",
			"src", from, "epoch", epoch, "last", p.lastResetEpoch)
		return
	}

	p.log.Debug("accepted reset", "src", from, "epoch", epoch)

	p.lastResetEpoch = epoch
	p.invalidated = true
	p.rebuild()
}

func (p *Protocol) relax(from sim.Address, vector Table) {
	p.log.Debug("received vector", "src", from, "entries", len(vector))

	self := p.router.ID()

	for dst, r := range vector {
		if dst == self {
			continue
		}

		current, known := p.table[dst]
		if !known || r.Distance+1 < current.Distance {
			p.table[dst] = Route{Distance: r.Distance + 1, NextHop: from}
		}
	}
}

// rebuild resets the table to the direct neighbors.
func (p *Protocol) rebuild() {
	p.table = make(Table)

	for _, l := range p.router.Links() {
		p.table[l.Dst()] = Route{Distance: 1, NextHop: l.Dst()}
	}
}

func (p *Protocol) broadcast() {
	if p.invalidated {
		p.invalidated = false
		p.rebuild()

		p.log.Debug("sending reset", "epoch", p.lastResetEpoch)
		p.send(ResetPayload{Epoch: p.lastResetEpoch})

		return
	}

	p.log.Debug("sending vector", "entries", len(p.table))
	p.send(VectorPayload{Table: p.table})
}

func (p *Protocol) send(payload sim.Payload) {
	for _, l := range p.router.Links() {
		p.router.ForwardPacket(l, p.router.NewControlPacket(l.Dst(), payload))
	}
}

func (p *Protocol) forwardStored() {
	for _, pkt := range p.router.StoredPackets() {
		r, ok := p.table[pkt.Dst()]
		if !ok {
			continue
		}

		l, ok := p.router.Link(r.NextHop)
		if !ok || !l.Idle() {
			continue
		}

		p.router.ForwardPacket(l, pkt)
	}
}

// AddLink installs a direct route to the new neighbor.
func (p *Protocol) AddLink(l sim.Link) {
	p.table[l.Dst()] = Route{Distance: 1, NextHop: l.Dst()}
}

// DelLink starts a new reset epoch and rebuilds the table from the remaining
// links.
func (p *Protocol) DelLink(sim.Link) {
	p.invalidated = true
	p.lastResetEpoch = p.tick
	p.rebuild()
}
