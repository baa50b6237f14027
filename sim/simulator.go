package sim

import (
	"fmt"
	"log"
	"log/slog"
	"sort"

	"github.com/sarchlab/routesim/sim/hooking"
	"github.com/sarchlab/routesim/sim/id"
	"golang.org/x/sync/errgroup"
)

// HookPosTickEnd is triggered after every tick. The item is the current time.
var HookPosTickEnd = &hooking.HookPos{Name: "TickEnd"}

// HookPosDecideEnd is triggered after every router has decided and before any
// packet is delivered. The item is the current time.
var HookPosDecideEnd = &hooking.HookPos{Name: "DecideEnd"}

// Task kinds reported to the hooks.
const (
	TaskKindData    = "data"
	TaskKindControl = "control"
)

type linkKey struct {
	a, b Address
}

func makeLinkKey(a, b Address) linkKey {
	if b < a {
		a, b = b, a
	}

	return linkKey{a: a, b: b}
}

var _ hooking.NamedHookable = (*Simulator)(nil)

// Option configures a Simulator.
type Option func(s *Simulator)

// WithName sets the name of the simulator, which is used as the hook domain
// name.
func WithName(name string) Option {
	return func(s *Simulator) {
		s.name = name
	}
}

// WithLogger sets the logger used by the simulator and its routers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.log = logger
	}
}

// WithIDGenerator sets the generator of packet IDs.
func WithIDGenerator(gen id.Generator) Option {
	return func(s *Simulator) {
		s.idGen = gen
	}
}

// WithParallelDecide lets the decide phase run on up to n goroutines. A value
// less than 2 keeps the decide phase sequential.
func WithParallelDecide(n int) Option {
	return func(s *Simulator) {
		s.parallelism = n
	}
}

// Simulator moves packets between routers in synchronous ticks. In every tick
// all routers first decide what to do with their packets, and then all the
// forwarded packets are delivered to the neighbors.
//
// A Simulator is not safe for concurrent use.
type Simulator struct {
	hooking.HookableBase

	name        string
	log         *slog.Logger
	idGen       id.Generator
	routerIDGen id.Generator
	parallelism int

	routers  *orderedMap[Address, *simRouter]
	linkSet  map[linkKey]struct{}
	time     uint64
	injected uint64
	routable uint64
	routed   []*DataPacket
}

// NewSimulator creates a simulator with no routers.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		name:        "routesim",
		log:         slog.Default(),
		idGen:       id.NewSequentialGenerator(),
		routerIDGen: id.NewPrefixedGenerator("r"),
		routers:     newOrderedMap[Address, *simRouter](),
		linkSet:     make(map[linkKey]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the name of the simulator.
func (s *Simulator) Name() string {
	return s.name
}

// Now returns the current tick.
func (s *Simulator) Now() uint64 {
	return s.time
}

// AddRouter creates a router running the algorithm created by the factory. If
// addr is empty, an unused address is generated.
func (s *Simulator) AddRouter(
	factory AlgorithmFactory,
	addr Address,
) (Router, error) {
	if factory == nil {
		log.Panic("algorithm factory must not be nil")
	}

	if addr == "" {
		addr = s.unusedAddress()
	}

	if s.routers.Has(addr) {
		return nil, fmt.Errorf("add router %q: %w", addr, ErrDuplicateRouter)
	}

	r := newRouter(s, addr)

	r.algorithm = factory(r)
	if r.algorithm == nil {
		log.Panicf("algorithm factory returned nil for router %s", addr)
	}

	s.routers.Set(addr, r)
	s.log.Debug("added router", "router", addr)

	return r, nil
}

func (s *Simulator) unusedAddress() Address {
	for {
		addr := Address(s.routerIDGen.Generate())
		if !s.routers.Has(addr) {
			return addr
		}
	}
}

func (s *Simulator) pair(op string, a, b Address) (*simRouter, *simRouter, error) {
	ra, ok := s.routers.Get(a)
	if !ok {
		return nil, nil, fmt.Errorf("%s %s-%s: %q: %w", op, a, b, a, ErrUnknownRouter)
	}

	rb, ok := s.routers.Get(b)
	if !ok {
		return nil, nil, fmt.Errorf("%s %s-%s: %q: %w", op, a, b, b, ErrUnknownRouter)
	}

	if a == b {
		return nil, nil, fmt.Errorf("%s %s-%s: %w", op, a, b, ErrSelfLink)
	}

	return ra, rb, nil
}

// AddLink connects two routers. Connecting routers that are already connected
// does nothing.
func (s *Simulator) AddLink(a, b Address) error {
	ra, rb, err := s.pair("add link", a, b)
	if err != nil {
		return err
	}

	key := makeLinkKey(a, b)
	if _, ok := s.linkSet[key]; ok {
		return nil
	}

	la := newLink(ra.id, rb.id)
	lb := newLink(rb.id, ra.id)

	s.linkSet[key] = struct{}{}
	ra.links.Set(rb.id, la)
	rb.links.Set(ra.id, lb)

	s.log.Debug("added link", "a", a, "b", b, "time", s.time)

	ra.algorithm.AddLink(la)
	rb.algorithm.AddLink(lb)

	return nil
}

// DelLink disconnects two routers. Disconnecting routers that are not
// connected does nothing.
func (s *Simulator) DelLink(a, b Address) error {
	ra, rb, err := s.pair("del link", a, b)
	if err != nil {
		return err
	}

	key := makeLinkKey(a, b)
	if _, ok := s.linkSet[key]; !ok {
		return nil
	}

	la, _ := ra.links.Get(rb.id)
	lb, _ := rb.links.Get(ra.id)

	delete(s.linkSet, key)
	ra.links.Delete(rb.id)
	rb.links.Delete(ra.id)

	s.log.Debug("removed link", "a", a, "b", b, "time", s.time)

	ra.algorithm.DelLink(la)
	rb.algorithm.DelLink(lb)

	return nil
}

// AddPacket injects a data packet into the inbox of the source router. The
// packet counts towards the delivery rate only if the destination is a known
// router.
func (s *Simulator) AddPacket(src, dst Address) (*DataPacket, error) {
	r, ok := s.routers.Get(src)
	if !ok {
		return nil, fmt.Errorf("add packet %s->%s: %q: %w",
			src, dst, src, ErrUnknownRouter)
	}

	p := &DataPacket{
		packetMeta: packetMeta{
			id:  PacketID(s.idGen.Generate()),
			src: src,
			dst: dst,
		},
		StartTime: s.time,
	}

	s.injected++
	if s.routers.Has(dst) {
		s.routable++
	}

	r.receive(nil, p)

	s.log.Debug("injected packet",
		"packet", p.ID(), "src", src, "dst", dst, "time", s.time)
	hooking.StartTask(s, string(p.ID()), "", TaskKindData,
		fmt.Sprintf("%s->%s", src, dst), string(src))

	return p, nil
}

// Route advances the simulation by one tick.
func (s *Simulator) Route() {
	s.time++

	s.decide()
	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosDecideEnd,
		Item:   s.time,
	})
	s.deliver()

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosTickEnd,
		Item:   s.time,
	})
}

func (s *Simulator) decide() {
	routers := s.routers.Values()

	if s.parallelism < 2 || len(routers) < 2 {
		for _, r := range routers {
			r.decide()
		}

		return
	}

	s.decideInParallel(routers)
}

type decidePanic struct {
	router Address
	value  interface{}
}

func (p *decidePanic) Error() string {
	return fmt.Sprintf("router %s panicked: %v", p.router, p.value)
}

func (s *Simulator) decideInParallel(routers []*simRouter) {
	var g errgroup.Group

	g.SetLimit(s.parallelism)

	for _, r := range routers {
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = &decidePanic{router: r.id, value: v}
				}
			}()

			r.decide()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		panic(err.(*decidePanic).value)
	}
}

func (s *Simulator) deliver() {
	for _, r := range s.routers.Values() {
		for _, l := range r.links.Values() {
			if l.Idle() {
				continue
			}

			s.deliverOne(r, l, l.drain())
		}
	}
}

func (s *Simulator) deliverOne(from *simRouter, l *simLink, p Packet) {
	to, ok := s.routers.Get(l.dst)
	if !ok {
		s.log.Info("lost packet to unreachable router",
			"packet", p.ID(), "src", p.Src(), "dst", p.Dst(), "next", l.dst)
		s.reportLoss(p, "unreachable", string(from.id))

		return
	}

	if dp, isData := p.(*DataPacket); isData && dp.dst == l.dst {
		dp.StopTime = s.time
		dp.delivered = true
		s.routed = append(s.routed, dp)

		s.log.Info("routed packet",
			"packet", dp.ID(), "src", dp.Src(), "dst", dp.Dst(),
			"steps", dp.StopTime-dp.StartTime)
		hooking.EndTask(s, string(dp.ID()))

		return
	}

	back, _ := to.links.Get(from.id)
	to.receive(back, p)

	if _, isControl := p.(*ControlPacket); isControl {
		hooking.EndTask(s, string(p.ID()))
	}
}

func (s *Simulator) reportForward(r *simRouter, l *simLink, p Packet) {
	if s.NumHooks() == 0 {
		return
	}

	switch p := p.(type) {
	case *DataPacket:
		hooking.AddTaskStep(s, string(p.ID()),
			fmt.Sprintf("%s@%d", p.ID(), s.time),
			"hop", "forward", string(l.dst))
	case *ControlPacket:
		hooking.StartTask(s, string(p.ID()), "", TaskKindControl,
			p.payload.Kind(), string(r.id))
	}
}

func (s *Simulator) reportLoss(p Packet, reason, where string) {
	hooking.TagTask(s, string(p.ID()), reason, where)
	hooking.EndTask(s, string(p.ID()))
}

// Router returns the router with the given address.
func (s *Simulator) Router(addr Address) (Router, bool) {
	r, ok := s.routers.Get(addr)
	if !ok {
		return nil, false
	}

	return r, true
}

// Routers returns all the routers, in the order they were added.
func (s *Simulator) Routers() []Router {
	routers := make([]Router, 0, s.routers.Len())
	for _, r := range s.routers.Values() {
		routers = append(routers, r)
	}

	return routers
}

// Algorithm returns the routing algorithm that runs on a router.
func (s *Simulator) Algorithm(addr Address) (RoutingAlgorithm, bool) {
	r, ok := s.routers.Get(addr)
	if !ok {
		return nil, false
	}

	return r.algorithm, true
}

// Connected tells if two routers are linked.
func (s *Simulator) Connected(a, b Address) bool {
	_, ok := s.linkSet[makeLinkKey(a, b)]
	return ok
}

// Links returns all the connected pairs, sorted. The smaller address comes
// first in each pair.
func (s *Simulator) Links() [][2]Address {
	links := make([][2]Address, 0, len(s.linkSet))
	for k := range s.linkSet {
		links = append(links, [2]Address{k.a, k.b})
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i][0] != links[j][0] {
			return links[i][0] < links[j][0]
		}

		return links[i][1] < links[j][1]
	})

	return links
}

// RoutedPackets returns the delivered data packets in delivery order.
func (s *Simulator) RoutedPackets() []*DataPacket {
	routed := make([]*DataPacket, len(s.routed))
	copy(routed, s.routed)

	return routed
}

// InjectedPackets returns the number of data packets injected, including the
// ones with an unknown destination.
func (s *Simulator) InjectedPackets() uint64 {
	return s.injected
}

// StoredDataPackets returns the number of data packets held in the stores of
// all routers.
func (s *Simulator) StoredDataPackets() int {
	n := 0
	for _, r := range s.routers.Values() {
		n += r.storedDataPackets()
	}

	return n
}

// InFlightDataPackets returns the number of data packets that have crossed a
// link and wait in an inbox for the next tick.
func (s *Simulator) InFlightDataPackets() int {
	n := 0
	for _, r := range s.routers.Values() {
		n += r.inboxDataPackets()
	}

	return n
}
