package scenario

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/routesim/routing"
	"github.com/sarchlab/routesim/sim"
	"github.com/sarchlab/routesim/simulation"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Run", func() {
	var (
		mockCtrl *gomock.Controller
		s        *MockSimulation
		scn      *Scenario
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		s = NewMockSimulation(mockCtrl)
		s.EXPECT().GetMonitor().Return(nil).AnyTimes()

		scn = &Scenario{
			Name:    "tiny",
			Routers: []string{"a", "b"},
			Links:   [][]string{{"a", "b"}},
			Ticks:   3,
			Drain:   1,
			Events: []Event{
				{At: 0, Every: 2, Inject: []string{"a", "b"}},
				{At: 1, DelLink: []string{"a", "b"}},
			},
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should set up the topology and fire the events", func() {
		gomock.InOrder(
			s.EXPECT().AddRouter(sim.Address("a")).Return(nil, nil),
			s.EXPECT().AddRouter(sim.Address("b")).Return(nil, nil),
			s.EXPECT().AddLink(sim.Address("a"), sim.Address("b")).Return(nil),
			s.EXPECT().AddPacket(sim.Address("a"), sim.Address("b")).Return(nil, nil),
			s.EXPECT().Step(1),
			s.EXPECT().DelLink(sim.Address("a"), sim.Address("b")).Return(nil),
			s.EXPECT().Step(1),
			s.EXPECT().AddPacket(sim.Address("a"), sim.Address("b")).Return(nil, nil),
			s.EXPECT().Step(1),
			s.EXPECT().Step(1),
			s.EXPECT().Stats().Return(sim.Stats{Packets: 2}),
		)

		stats, err := Run(context.Background(), s, scn)

		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Packets).To(Equal(uint64(2)))
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s.EXPECT().AddRouter(gomock.Any()).Return(nil, nil).Times(2)
		s.EXPECT().AddLink(gomock.Any(), gomock.Any()).Return(nil)
		s.EXPECT().Stats().Return(sim.Stats{})

		_, err := Run(ctx, s, scn)

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("should report the failing tick", func() {
		failure := errors.New("broken")

		s.EXPECT().AddRouter(gomock.Any()).Return(nil, nil).Times(2)
		s.EXPECT().AddLink(gomock.Any(), gomock.Any()).Return(nil)
		s.EXPECT().AddPacket(gomock.Any(), gomock.Any()).Return(nil, failure)
		s.EXPECT().Stats().Return(sim.Stats{})

		_, err := Run(context.Background(), s, scn)

		Expect(errors.Is(err, failure)).To(BeTrue())
		Expect(err.Error()).To(HavePrefix("tick 0"))
	})

	DescribeTable("playing the built-in scenarios",
		func(name, protocol string) {
			scn, err := BuiltIn(name)
			Expect(err).ToNot(HaveOccurred())

			built, err := simulation.MakeBuilder().
				WithProtocol(protocol).
				Build()
			Expect(err).ToNot(HaveOccurred())
			defer built.Terminate()

			stats, err := Run(context.Background(), built, scn)

			Expect(err).ToNot(HaveOccurred())
			Expect(built.Now()).To(Equal(scn.Ticks + scn.Drain))
			Expect(stats.Packets).To(BeNumerically(">", 0))
			Expect(stats.Routed).To(BeNumerically(">", 0))
			Expect(stats.Routed).To(BeNumerically("<=", stats.Packets))
		},
		Entry("line, distance vector", "line", routing.DistanceVector),
		Entry("line, link state", "line", routing.LinkState),
		Entry("line, random walk", "line", routing.RandomWalk),
		Entry("ring-chord, distance vector", "ring-chord", routing.DistanceVector),
		Entry("two-squares, link state", "two-squares", routing.LinkState),
		Entry("star-flap, link state", "star-flap", routing.LinkState),
	)

	It("should inject the packets of the line scenario", func() {
		scn, err := BuiltIn("line")
		Expect(err).ToNot(HaveOccurred())

		built, err := simulation.MakeBuilder().Build()
		Expect(err).ToNot(HaveOccurred())
		defer built.Terminate()

		stats, err := Run(context.Background(), built, scn)

		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Packets).To(Equal(uint64(26)))
	})
})
