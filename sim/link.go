package sim

import "log"

// Link is one direction of a connection between two routers. A link carries
// at most one packet per tick.
type Link interface {
	// Dst returns the address of the router at the far end of the link.
	Dst() Address

	// Idle tells if a packet can be forwarded onto the link in this tick.
	Idle() bool
}

type simLink struct {
	src, dst Address
	slot     Packet
}

func newLink(src, dst Address) *simLink {
	return &simLink{src: src, dst: dst}
}

func (l *simLink) Dst() Address {
	return l.dst
}

func (l *simLink) Idle() bool {
	return l.slot == nil
}

func (l *simLink) deposit(p Packet) {
	if p == nil {
		log.Panicf("cannot deposit a nil packet onto link %s->%s", l.src, l.dst)
	}

	if l.slot != nil {
		log.Panicf("link %s->%s is occupied by packet %s, cannot take %s",
			l.src, l.dst, l.slot.ID(), p.ID())
	}

	l.slot = p
}

func (l *simLink) drain() Packet {
	p := l.slot
	l.slot = nil

	return p
}
