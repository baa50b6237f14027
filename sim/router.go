package sim

import (
	"fmt"
	"log"
	"log/slog"
)

// Router is the view of a router given to its routing algorithm.
type Router interface {
	// ID returns the address of the router.
	ID() Address

	// Links returns the links of the router, in the order they were added.
	Links() []Link

	// Link returns the link towards the given neighbor.
	Link(dst Address) (Link, bool)

	// StoredPackets returns the packets the router keeps across ticks, in
	// the order they were stored.
	StoredPackets() []Packet

	// StorePacket keeps a packet in the router across ticks.
	StorePacket(p Packet)

	// DropPacket discards a packet held by the router.
	DropPacket(p Packet)

	// ForwardPacket puts a packet onto one of the router's links. A data
	// packet must be held by the router. It panics if the link is busy.
	ForwardPacket(l Link, p Packet)

	// NewControlPacket creates a control packet sent from this router.
	NewControlPacket(dst Address, payload Payload) *ControlPacket

	// Logger returns the logger of the router.
	Logger() *slog.Logger
}

type inboxEntry struct {
	via    *simLink
	packet Packet
}

type simRouter struct {
	id        Address
	sim       *Simulator
	log       *slog.Logger
	links     *orderedMap[Address, *simLink]
	store     *orderedMap[PacketID, Packet]
	inbox     *orderedMap[PacketID, inboxEntry]
	algorithm RoutingAlgorithm
}

func newRouter(s *Simulator, addr Address) *simRouter {
	return &simRouter{
		id:    addr,
		sim:   s,
		log:   s.log.With("router", addr),
		links: newOrderedMap[Address, *simLink](),
		store: newOrderedMap[PacketID, Packet](),
		inbox: newOrderedMap[PacketID, inboxEntry](),
	}
}

func (r *simRouter) ID() Address {
	return r.id
}

func (r *simRouter) Logger() *slog.Logger {
	return r.log
}

func (r *simRouter) Links() []Link {
	links := make([]Link, 0, r.links.Len())
	for _, l := range r.links.Values() {
		links = append(links, l)
	}

	return links
}

func (r *simRouter) Link(dst Address) (Link, bool) {
	l, ok := r.links.Get(dst)
	if !ok {
		return nil, false
	}

	return l, true
}

func (r *simRouter) StoredPackets() []Packet {
	return r.store.Values()
}

func (r *simRouter) StorePacket(p Packet) {
	packetMustNotBeNil(p)

	r.store.Set(p.ID(), p)
	r.inbox.Delete(p.ID())
}

func (r *simRouter) DropPacket(p Packet) {
	packetMustNotBeNil(p)

	inStore := r.store.Delete(p.ID())
	inInbox := r.inbox.Delete(p.ID())

	if !inStore && !inInbox {
		return
	}

	r.log.Info("dropped packet",
		"packet", p.ID(), "src", p.Src(), "dst", p.Dst())
	r.sim.reportLoss(p, "dropped", string(r.id))
}

func (r *simRouter) ForwardPacket(l Link, p Packet) {
	packetMustNotBeNil(p)

	sl := r.ownLink(l)

	if _, isData := p.(*DataPacket); isData {
		if !r.store.Has(p.ID()) && !r.inbox.Has(p.ID()) {
			log.Panicf("router %s does not hold data packet %s", r.id, p.ID())
		}
	}

	sl.deposit(p)

	r.store.Delete(p.ID())
	r.inbox.Delete(p.ID())

	r.log.Debug("forwarding packet",
		"packet", p.ID(), "src", p.Src(), "dst", p.Dst(), "next", sl.dst)
	r.sim.reportForward(r, sl, p)
}

func (r *simRouter) ownLink(l Link) *simLink {
	sl, ok := l.(*simLink)
	if !ok || sl == nil {
		log.Panicf("router %s cannot forward onto a link of type %T", r.id, l)
	}

	current, ok := r.links.Get(sl.dst)
	if !ok || current != sl || sl.src != r.id {
		log.Panicf("link %s->%s does not belong to router %s",
			sl.src, sl.dst, r.id)
	}

	return sl
}

func (r *simRouter) NewControlPacket(
	dst Address,
	payload Payload,
) *ControlPacket {
	return NewControlPacket(r.sim.idGen, r.id, dst, payload)
}

func (r *simRouter) arrivals() []Arrival {
	entries := r.inbox.Values()
	arrivals := make([]Arrival, 0, len(entries))

	for _, e := range entries {
		a := Arrival{Packet: e.packet}
		if e.via != nil {
			a.Via = e.via
		}

		arrivals = append(arrivals, a)
	}

	return arrivals
}

// decide runs the routing algorithm on the inbox and then clears the inbox.
func (r *simRouter) decide() {
	r.algorithm.Route(r.arrivals())
	r.sweepInbox()
}

func (r *simRouter) sweepInbox() {
	for _, e := range r.inbox.Values() {
		p := e.packet

		if p.Dst() != r.id {
			r.log.Warn("silently dropped packet",
				"packet", p.ID(), "src", p.Src(), "dst", p.Dst())
			r.sim.reportLoss(p, "unclaimed", string(r.id))

			continue
		}

		if _, isData := p.(*DataPacket); isData {
			r.sim.reportLoss(p, "unclaimed", string(r.id))
		}
	}

	r.inbox.Clear()
}

func (r *simRouter) receive(via *simLink, p Packet) {
	r.inbox.Set(p.ID(), inboxEntry{via: via, packet: p})
}

func (r *simRouter) inboxDataPackets() int {
	n := 0

	for _, e := range r.inbox.Values() {
		if _, isData := e.packet.(*DataPacket); isData {
			n++
		}
	}

	return n
}

func (r *simRouter) storedDataPackets() int {
	n := 0

	for _, p := range r.store.Values() {
		if _, isData := p.(*DataPacket); isData {
			n++
		}
	}

	return n
}

func (r *simRouter) String() string {
	return fmt.Sprintf("router %s", r.id)
}

func packetMustNotBeNil(p Packet) {
	if p == nil {
		log.Panic("packet must not be nil")
	}
}
