package sim

import (
	"log"

	"github.com/sarchlab/routesim/sim/id"
)

// Address identifies a router.
type Address string

// PacketID identifies a packet. No two packets in a simulator share an ID.
type PacketID string

// Packet is a unit of data in flight. It is either a *DataPacket or a
// *ControlPacket. Packets are compared by ID.
type Packet interface {
	ID() PacketID
	Src() Address
	Dst() Address

	isPacket()
}

type packetMeta struct {
	id       PacketID
	src, dst Address
}

// ID returns the unique ID of the packet.
func (m packetMeta) ID() PacketID {
	return m.id
}

// Src returns the address of the router that created the packet.
func (m packetMeta) Src() Address {
	return m.src
}

// Dst returns the address of the router that the packet is heading to.
func (m packetMeta) Dst() Address {
	return m.dst
}

func (packetMeta) isPacket() {}

// DataPacket is a packet injected by the driver of the simulation. Its
// StartTime is the tick of injection and its StopTime the tick of delivery.
type DataPacket struct {
	packetMeta

	StartTime uint64
	StopTime  uint64
	delivered bool
}

// Delivered tells if the packet has reached its destination.
func (p *DataPacket) Delivered() bool {
	return p.delivered
}

// Latency returns the number of ticks the packet took to be delivered. It
// returns 0 for packets that are not delivered.
func (p *DataPacket) Latency() uint64 {
	if !p.delivered {
		return 0
	}

	return p.StopTime - p.StartTime
}

// Payload is the protocol owned content of a control packet.
type Payload interface {
	// Kind names the payload type, for logging and tracing.
	Kind() string

	// Clone returns a deep copy of the payload.
	Clone() Payload
}

// ControlPacket carries routing information between neighboring routers.
type ControlPacket struct {
	packetMeta

	payload Payload
}

// NewControlPacket creates a control packet that carries a snapshot of the
// payload. Later changes to the given payload are not visible through the
// packet.
func NewControlPacket(
	gen id.Generator,
	src, dst Address,
	payload Payload,
) *ControlPacket {
	if payload == nil {
		log.Panicf("control packet %s->%s must carry a payload", src, dst)
	}

	return &ControlPacket{
		packetMeta: packetMeta{
			id:  PacketID(gen.Generate()),
			src: src,
			dst: dst,
		},
		payload: payload.Clone(),
	}
}

// Payload returns a copy of the payload carried by the packet.
func (p *ControlPacket) Payload() Payload {
	return p.payload.Clone()
}
