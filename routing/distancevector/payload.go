package distancevector

import (
	"github.com/sarchlab/routesim/sim"
)

// Route is the best known way to reach a destination.
type Route struct {
	Distance int         `json:"distance"`
	NextHop  sim.Address `json:"next_hop"`
}

// Table maps destinations to routes.
type Table map[sim.Address]Route

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	c := make(Table, len(t))
	for dst, r := range t {
		c[dst] = r
	}

	return c
}

// ResetPayload asks the neighbors to rebuild their tables. Resets are ordered
// by epoch; a router accepts only resets newer than the last one it has seen.
type ResetPayload struct {
	Epoch int
}

// Kind returns "reset".
func (ResetPayload) Kind() string {
	return "reset"
}

// Clone returns the payload itself.
func (p ResetPayload) Clone() sim.Payload {
	return p
}

// VectorPayload carries the routing table of the sender.
type VectorPayload struct {
	Table Table
}

// Kind returns "vector".
func (VectorPayload) Kind() string {
	return "vector"
}

// Clone returns a deep copy of the payload.
func (p VectorPayload) Clone() sim.Payload {
	return VectorPayload{Table: p.Table.Clone()}
}
