package sim

// Arrival is a packet waiting in the inbox of a router, with the link it came
// through. Via is nil for packets injected at the router.
type Arrival struct {
	Via    Link
	Packet Packet
}

// RoutingAlgorithm decides what a router does with its packets. The simulator
// calls Route once per tick and notifies the algorithm about link changes.
type RoutingAlgorithm interface {
	// Route processes the packets that arrived at the router in this tick.
	// Every arrival must be stored, dropped, or forwarded before Route
	// returns; the packets left behind are lost.
	Route(arrivals []Arrival)

	// AddLink is called after a link is added to the router.
	AddLink(l Link)

	// DelLink is called after a link is removed from the router.
	DelLink(l Link)
}

// AlgorithmFactory creates the routing algorithm that runs on a router.
type AlgorithmFactory func(r Router) RoutingAlgorithm
