package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/routesim/datarecording"
	"github.com/sarchlab/routesim/routing"
	"github.com/sarchlab/routesim/routing/distancevector"
	"github.com/sarchlab/routesim/sim"
)

var _ = Describe("Simulation", func() {
	var (
		simulation *Simulation
	)

	AfterEach(func() {
		if simulation != nil {
			Expect(simulation.Terminate()).To(Succeed())
			simulation = nil
		}
	})

	It("should deliver packets with the default protocol", func() {
		var err error
		simulation, err = MakeBuilder().Build()
		Expect(err).ToNot(HaveOccurred())

		buildLine(simulation, "a", "b", "c", "d")

		_, err = simulation.AddPacket("a", "d")
		Expect(err).ToNot(HaveOccurred())

		simulation.Step(30)

		Expect(simulation.Now()).To(Equal(uint64(30)))
		Expect(simulation.Protocol()).To(Equal(routing.DistanceVector))

		stats := simulation.Stats()
		Expect(stats.Packets).To(Equal(uint64(1)))
		Expect(stats.Routed).To(Equal(uint64(1)))
		Expect(simulation.AverageLifetime()).To(Equal(*stats.AvgTime))
		Expect(simulation.Losses()).To(BeEmpty())

		for _, p := range simulation.Pending() {
			Expect(p.Kind).ToNot(Equal(sim.TaskKindData))
		}
	})

	It("should give packets unique IDs on request", func() {
		var err error
		simulation, err = MakeBuilder().WithUniquePacketIDs().Build()
		Expect(err).ToNot(HaveOccurred())

		buildLine(simulation, "a", "b")

		first, err := simulation.AddPacket("a", "b")
		Expect(err).ToNot(HaveOccurred())
		second, err := simulation.AddPacket("a", "b")
		Expect(err).ToNot(HaveOccurred())

		Expect(string(first.ID())).To(HaveLen(20))
		Expect(second.ID()).ToNot(Equal(first.ID()))
	})

	It("should run the same packets in parallel", func() {
		var err error
		simulation, err = MakeBuilder().
			WithProtocol(routing.LinkState).
			WithParallelDecide(4).
			Build()
		Expect(err).ToNot(HaveOccurred())

		buildLine(simulation, "a", "b", "c", "d", "e")
		simulation.Step(10)

		_, err = simulation.AddPacket("a", "e")
		Expect(err).ToNot(HaveOccurred())

		simulation.Step(10)

		Expect(simulation.Stats().Routed).To(Equal(uint64(1)))
	})

	It("should fail on unknown protocols", func() {
		_, err := MakeBuilder().WithProtocol("flooding").Build()

		Expect(errors.Is(err, routing.ErrUnknownProtocol)).To(BeTrue())
	})

	It("should panic if a monitor port is set without monitoring", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithMonitorPort(8080).Build()
		}).To(Panic())
	})

	It("should count losses by reason", func() {
		var err error
		simulation, err = MakeBuilder().
			WithAlgorithm("drop-all", newDropAll).
			Build()
		Expect(err).ToNot(HaveOccurred())

		buildLine(simulation, "a", "b")

		_, err = simulation.AddPacket("a", "b")
		Expect(err).ToNot(HaveOccurred())
		_, err = simulation.AddPacket("b", "a")
		Expect(err).ToNot(HaveOccurred())

		simulation.Step(1)

		Expect(simulation.Protocol()).To(Equal("drop-all"))
		Expect(simulation.Losses()).To(Equal(map[string]uint64{"dropped": 2}))
		Expect(simulation.Stats().Routed).To(BeZero())
		Expect(simulation.Pending()).To(BeEmpty())
	})

	It("should let the routers be inspected", func() {
		var err error
		simulation, err = MakeBuilder().Build()
		Expect(err).ToNot(HaveOccurred())

		buildLine(simulation, "a", "b")

		Expect(simulation.RouterIDs()).To(Equal([]sim.Address{"a", "b"}))
		Expect(simulation.Links()).To(Equal([][2]sim.Address{{"a", "b"}}))

		var inspected sim.RoutingAlgorithm
		found := simulation.InspectRouter("a",
			func(r sim.Router, alg sim.RoutingAlgorithm) {
				Expect(r.ID()).To(Equal(sim.Address("a")))
				inspected = alg
			})

		Expect(found).To(BeTrue())
		Expect(inspected).To(BeAssignableToTypeOf(&distancevector.Protocol{}))
		Expect(simulation.InspectRouter("z",
			func(sim.Router, sim.RoutingAlgorithm) {})).To(BeFalse())
	})

	It("should only terminate once", func() {
		var err error
		simulation, err = MakeBuilder().Build()
		Expect(err).ToNot(HaveOccurred())

		Expect(simulation.Terminate()).To(Succeed())
		Expect(simulation.Terminate()).To(Succeed())
	})

	Context("with recording", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "trace")
		})

		It("should record the packets and the ticks", func() {
			var err error
			simulation, err = MakeBuilder().
				WithOutputFileName(path).
				Build()
			Expect(err).ToNot(HaveOccurred())
			Expect(simulation.GetDataRecorder().Path()).
				To(Equal(path + ".sqlite3"))

			buildLine(simulation, "a", "b", "c", "d")

			p, err := simulation.AddPacket("a", "d")
			Expect(err).ToNot(HaveOccurred())

			simulation.Step(20)
			Expect(simulation.Terminate()).To(Succeed())
			simulation = nil

			reader, err := datarecording.NewReader(path + ".sqlite3")
			Expect(err).ToNot(HaveOccurred())
			defer reader.Close()

			ctx := context.Background()

			tables, err := reader.StoredTables(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(tables).To(ConsistOf(TaskTable, StepTable, TickStatsTable))

			reader.MapTable(TaskTable, TaskEntry{})
			reader.MapTable(StepTable, StepEntry{})
			reader.MapTable(TickStatsTable, TickStatsEntry{})

			_, ticks, err := reader.Query(ctx, TickStatsTable,
				datarecording.QueryParams{})
			Expect(err).ToNot(HaveOccurred())
			Expect(ticks).To(Equal(20))

			tasks, _, err := reader.Query(ctx, TaskTable,
				datarecording.QueryParams{
					Where: "Kind = ?",
					Args:  []any{sim.TaskKindData},
				})
			Expect(err).ToNot(HaveOccurred())
			Expect(tasks).To(HaveLen(1))

			task := tasks[0].(*TaskEntry)
			Expect(task.ID).To(Equal(string(p.ID())))
			Expect(task.What).To(Equal("a->d"))
			Expect(task.Location).To(Equal("a"))
			Expect(task.Hops).To(Equal(3))
			Expect(task.Tags).To(BeEmpty())
			Expect(task.EndTime).To(Equal(p.StopTime))

			steps, _, err := reader.Query(ctx, StepTable,
				datarecording.QueryParams{
					Where:   "TaskID = ?",
					Args:    []any{string(p.ID())},
					OrderBy: "Time",
				})
			Expect(err).ToNot(HaveOccurred())
			Expect(steps).To(HaveLen(3))
			Expect(steps[0].(*StepEntry).Detail).To(Equal("b"))
			Expect(steps[2].(*StepEntry).Detail).To(Equal("d"))

			last, _, err := reader.Query(ctx, TickStatsTable,
				datarecording.QueryParams{OrderBy: "Time DESC", Limit: 1})
			Expect(err).ToNot(HaveOccurred())
			Expect(last[0].(*TickStatsEntry).Time).To(Equal(uint64(20)))
			Expect(last[0].(*TickStatsEntry).Routed).To(Equal(uint64(1)))
			Expect(last[0].(*TickStatsEntry).InFlight).To(BeZero())
		})

		It("should refuse to overwrite a recording", func() {
			first, err := MakeBuilder().WithOutputFileName(path).Build()
			Expect(err).ToNot(HaveOccurred())

			_, err = first.AddRouter("a")
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Terminate()).To(Succeed())

			_, err = MakeBuilder().WithOutputFileName(path).Build()
			Expect(errors.Is(err, datarecording.ErrFileExists)).To(BeTrue())
		})
	})

	It("should serve the monitor", func() {
		var err error
		simulation, err = MakeBuilder().WithMonitoring().Build()
		Expect(err).ToNot(HaveOccurred())
		Expect(simulation.GetMonitor()).ToNot(BeNil())

		buildLine(simulation, "a", "b")
		simulation.Step(2)

		_, port, err := net.SplitHostPort(simulation.MonitorAddr())
		Expect(err).ToNot(HaveOccurred())

		rsp, err := http.Get(fmt.Sprintf("http://localhost:%s/api/now", port))
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(MatchJSON(`{"now":2}`))
	})

	It("should release the resources when the monitor cannot start", func() {
		taken, err := net.Listen("tcp", ":0")
		Expect(err).ToNot(HaveOccurred())
		defer taken.Close()

		port := taken.Addr().(*net.TCPAddr).Port
		closer := &failingCloser{err: errors.New("log file busy")}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))

		_, err = MakeBuilder().
			WithLogger(logger, closer).
			WithMonitoring().
			WithMonitorPort(port).
			Build()

		Expect(err).To(MatchError(ContainSubstring("start monitor")))
		Expect(err).To(MatchError(ContainSubstring(strconv.Itoa(port))))
		Expect(errors.Is(err, closer.err)).To(BeTrue())
		Expect(closer.closed).To(BeTrue())
	})
})

type failingCloser struct {
	err    error
	closed bool
}

func (c *failingCloser) Close() error {
	c.closed = true
	return c.err
}
