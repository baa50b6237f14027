package distancevector

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/routesim/sim"
	"github.com/sarchlab/routesim/sim/id"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Protocol", func() {
	var (
		mockCtrl *gomock.Controller
		router   *MockRouter
		gen      id.Generator
		links    []sim.Link
		stored   []sim.Packet
		sent     []sim.Packet
		p        *Protocol
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		router = NewMockRouter(mockCtrl)
		gen = id.NewSequentialGenerator()
		links = []sim.Link{
			&fakeLink{dst: "b", idle: true},
			&fakeLink{dst: "c", idle: true},
		}
		stored = nil
		sent = nil

		router.EXPECT().ID().Return(sim.Address("a")).AnyTimes()
		router.EXPECT().Logger().Return(testLogger()).AnyTimes()
		router.EXPECT().Links().DoAndReturn(func() []sim.Link {
			return links
		}).AnyTimes()
		router.EXPECT().StoredPackets().DoAndReturn(func() []sim.Packet {
			return stored
		}).AnyTimes()
		router.EXPECT().Link(gomock.Any()).DoAndReturn(
			func(dst sim.Address) (sim.Link, bool) {
				for _, l := range links {
					if l.Dst() == dst {
						return l, true
					}
				}

				return nil, false
			}).AnyTimes()
		router.EXPECT().
			NewControlPacket(gomock.Any(), gomock.Any()).
			DoAndReturn(func(dst sim.Address, payload sim.Payload) *sim.ControlPacket {
				return sim.NewControlPacket(gen, "a", dst, payload)
			}).AnyTimes()
		router.EXPECT().
			ForwardPacket(gomock.Any(), gomock.Any()).
			Do(func(_ sim.Link, pkt sim.Packet) {
				sent = append(sent, pkt)
			}).AnyTimes()

		p = New(router).(*Protocol)
		for _, l := range links {
			p.AddLink(l)
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	payloadOf := func(pkt sim.Packet) sim.Payload {
		return pkt.(*sim.ControlPacket).Payload()
	}

	control := func(src sim.Address, payload sim.Payload) sim.Arrival {
		return sim.Arrival{
			Via:    &fakeLink{dst: src, idle: true},
			Packet: sim.NewControlPacket(gen, src, "a", payload),
		}
	}

	It("should install direct routes for new links", func() {
		Expect(p.Table()).To(Equal(Table{
			"b": {Distance: 1, NextHop: "b"},
			"c": {Distance: 1, NextHop: "c"},
		}))
	})

	It("should broadcast the table on the first tick", func() {
		p.Route(nil)

		Expect(sent).To(HaveLen(2))
		Expect(sent[0].Dst()).To(Equal(sim.Address("b")))
		Expect(payloadOf(sent[0])).To(Equal(VectorPayload{Table: p.Table()}))
	})

	It("should relax routes through the sender, never to itself", func() {
		p.Route([]sim.Arrival{control("b", VectorPayload{Table: Table{
			"a": {Distance: 1, NextHop: "a"},
			"c": {Distance: 1, NextHop: "c"},
			"d": {Distance: 2, NextHop: "c"},
		}})})

		Expect(p.Table()).To(Equal(Table{
			"b": {Distance: 1, NextHop: "b"},
			"c": {Distance: 1, NextHop: "c"},
			"d": {Distance: 3, NextHop: "b"},
		}))
	})

	It("should keep the shorter route", func() {
		p.Route(nil)
		p.Route([]sim.Arrival{control("b", VectorPayload{Table: Table{
			"d": {Distance: 4, NextHop: "x"},
		}})})
		p.Route([]sim.Arrival{control("c", VectorPayload{Table: Table{
			"d": {Distance: 1, NextHop: "d"},
		}})})
		p.Route([]sim.Arrival{control("b", VectorPayload{Table: Table{
			"d": {Distance: 2, NextHop: "x"},
		}})})

		Expect(p.Table()["d"]).To(Equal(Route{Distance: 2, NextHop: "c"}))
	})

	It("should accept only newer resets", func() {
		p.Route(nil)
		p.Route([]sim.Arrival{control("c", VectorPayload{Table: Table{
			"d": {Distance: 1, NextHop: "d"},
		}})})

		p.Route([]sim.Arrival{control("b", ResetPayload{Epoch: 3})})
		Expect(p.Table()).NotTo(HaveKey(sim.Address("d")))
		Expect(p.lastResetEpoch).To(Equal(3))
		Expect(p.invalidated).To(BeTrue())

		p.Route([]sim.Arrival{control("c", VectorPayload{Table: Table{
			"d": {Distance: 1, NextHop: "d"},
		}})})
		p.Route([]sim.Arrival{control("b", ResetPayload{Epoch: 3})})
		Expect(p.Table()).To(HaveKey(sim.Address("d")))
	})

	It("should send the reset marker on the next broadcast tick", func() {
		p.Route(nil)
		p.Route([]sim.Arrival{control("b", ResetPayload{Epoch: 7})})

		sent = nil
		for i := 0; i < Period-1; i++ {
			p.Route(nil)
		}

		Expect(sent).To(HaveLen(2))
		Expect(payloadOf(sent[0])).To(Equal(ResetPayload{Epoch: 7}))
		Expect(payloadOf(sent[1])).To(Equal(ResetPayload{Epoch: 7}))
		Expect(p.invalidated).To(BeFalse())
	})

	It("should start a new epoch when a link goes away", func() {
		p.Route(nil)
		p.Route(nil)
		p.Route([]sim.Arrival{control("c", VectorPayload{Table: Table{
			"d": {Distance: 1, NextHop: "d"},
		}})})

		removed := links[1]
		links = links[:1]
		p.DelLink(removed)

		Expect(p.lastResetEpoch).To(Equal(3))
		Expect(p.Table()).To(Equal(Table{
			"b": {Distance: 1, NextHop: "b"},
		}))
	})

	It("should forward stored packets along idle next hops only", func() {
		s := sim.NewSimulator(sim.WithLogger(testLogger()))
		_, _ = s.AddRouter(New, "x")
		_, _ = s.AddRouter(New, "y")
		pkt, _ := s.AddPacket("x", "y")
		lost, _ := s.AddPacket("x", "z")

		router.EXPECT().StorePacket(gomock.Any()).Do(func(arrived sim.Packet) {
			stored = append(stored, arrived)
		}).Times(2)

		p.Route(nil)
		p.table["y"] = Route{Distance: 2, NextHop: "b"}

		links[0].(*fakeLink).idle = false
		sent = nil
		p.Route([]sim.Arrival{{Packet: pkt}, {Packet: lost}})
		Expect(sent).To(BeEmpty())

		links[0].(*fakeLink).idle = true
		p.Route(nil)
		Expect(sent).To(Equal([]sim.Packet{pkt}))
	})
})
