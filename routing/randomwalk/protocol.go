// Package randomwalk implements a routing policy that forwards packets in
// random directions. It is the baseline the other protocols are compared
// against.
package randomwalk

import (
	"math/rand"

	"github.com/sarchlab/routesim/sim"
)

// Protocol forwards one stored packet, picked at random, on every link.
type Protocol struct {
	router sim.Router
	rng    *rand.Rand
}

// NewFactory creates a factory whose protocols draw from sources seeded with
// seed and the router address.
func NewFactory(seed int64) sim.AlgorithmFactory {
	return func(r sim.Router) sim.RoutingAlgorithm {
		return New(r, rand.New(rand.NewSource(seed^addressHash(r.ID()))))
	}
}

// New creates the protocol for a router with the given source of randomness.
func New(r sim.Router, rng *rand.Rand) *Protocol {
	return &Protocol{router: r, rng: rng}
}

func addressHash(addr sim.Address) int64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(addr); i++ {
		h ^= uint64(addr[i])
		h *= 1099511628211
	}

	return int64(h)
}

// Route stores all the arrivals and then sends stored packets out.
func (p *Protocol) Route(arrivals []sim.Arrival) {
	for _, a := range arrivals {
		p.router.StorePacket(a.Packet)
	}

	packets := p.router.StoredPackets()
	p.rng.Shuffle(len(packets), func(i, j int) {
		packets[i], packets[j] = packets[j], packets[i]
	})

	links := p.router.Links()
	p.rng.Shuffle(len(links), func(i, j int) {
		links[i], links[j] = links[j], links[i]
	})

	for _, l := range links {
		if len(packets) == 0 {
			return
		}

		last := len(packets) - 1
		p.router.ForwardPacket(l, packets[last])
		packets = packets[:last]
	}
}

// AddLink does nothing.
func (p *Protocol) AddLink(sim.Link) {}

// DelLink does nothing.
func (p *Protocol) DelLink(sim.Link) {}
