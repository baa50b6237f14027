package simulation

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/routesim/datarecording"
	"github.com/sarchlab/routesim/monitoring"
	"github.com/sarchlab/routesim/routing"
	"github.com/sarchlab/routesim/sim"
	"github.com/sarchlab/routesim/sim/hooking"
	"github.com/sarchlab/routesim/sim/id"
)

// Builder can be used to build a simulation.
type Builder struct {
	protocol       string
	factory        sim.AlgorithmFactory
	seed           int64
	parallelism    int
	uniqueIDs      bool
	logger         *slog.Logger
	logCloser      io.Closer
	recordOn       bool
	outputFileName string
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		protocol:  routing.DistanceVector,
		seed:      1,
		recordOn:  false,
		monitorOn: false,
	}
}

// WithProtocol sets the name of the routing protocol that the routers run.
func (b Builder) WithProtocol(name string) Builder {
	b.protocol = name
	return b
}

// WithAlgorithm makes the routers run the algorithms created by the factory,
// instead of a registered protocol.
func (b Builder) WithAlgorithm(name string, factory sim.AlgorithmFactory) Builder {
	b.protocol = name
	b.factory = factory

	return b
}

// WithSeed sets the seed of the protocols that make random choices.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithParallelDecide lets up to n routers decide at the same time.
func (b Builder) WithParallelDecide(n int) Builder {
	b.parallelism = n
	return b
}

// WithUniquePacketIDs gives packets globally unique IDs instead of sequential
// numbers, so that recordings of several runs can be merged. Runs are then no
// longer identical ID by ID.
func (b Builder) WithUniquePacketIDs() Builder {
	b.uniqueIDs = true
	return b
}

// WithLogger sets the logger of the simulation. The closer, if not nil, is
// closed when the simulation terminates.
func (b Builder) WithLogger(logger *slog.Logger, closer io.Closer) Builder {
	b.logger = logger
	b.logCloser = closer

	return b
}

// WithRecording makes the simulation record the packet traces and the
// per-tick statistics.
func (b Builder) WithRecording() Builder {
	b.recordOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
// The file name does not include the .sqlite3 extension.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.recordOn = true
	b.outputFileName = filename

	return b
}

// WithMonitoring starts the monitoring server when the simulation is built.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitor in a browser.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.openBrowser {
		panic("browser cannot be opened when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	factory := b.factory
	if factory == nil {
		var err error

		factory, err = routing.Lookup(b.protocol, routing.WithSeed(b.seed))
		if err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulation{
		id:        xid.New().String(),
		protocol:  b.protocol,
		factory:   factory,
		log:       logger,
		logCloser: b.logCloser,
	}

	idGen := id.NewSequentialGenerator()
	if b.uniqueIDs {
		idGen = id.NewXIDGenerator()
	}

	s.simulator = sim.NewSimulator(
		sim.WithName("routesim"),
		sim.WithLogger(logger),
		sim.WithIDGenerator(idGen),
		sim.WithParallelDecide(b.parallelism),
	)

	s.attachTracers()

	if b.recordOn {
		err := b.attachRecorder(s)
		if err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		err := b.startMonitor(s)
		if err != nil {
			return nil, errors.Join(err, s.Terminate())
		}
	}

	return s, nil
}

func (s *Simulation) attachTracers() {
	s.latencyTracer = hooking.NewAverageTimeTracer(
		s.simulator, hooking.KindFilter(sim.TaskKindData))
	s.lossTracer = hooking.NewTagCountTracer(
		hooking.KindFilter(sim.TaskKindData))
	s.pendingTracer = hooking.NewPendingTracer(s.simulator)

	s.simulator.AcceptHook(s.latencyTracer)
	s.simulator.AcceptHook(s.lossTracer)
	s.simulator.AcceptHook(s.pendingTracer)
}

func (b Builder) attachRecorder(s *Simulation) error {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "routesim_" + s.id
	}

	recorder, err := datarecording.New(outputPath)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}

	s.dataRecorder = recorder
	s.dbTracer = hooking.NewDBTracer(s.simulator, newRecorderBackend(recorder))
	s.simulator.AcceptHook(s.dbTracer)
	s.simulator.AcceptHook(newTickStatsRecorder(s.simulator, recorder))

	return nil
}

func (b Builder) startMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor().WithLogger(s.log)
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	if b.openBrowser {
		s.monitor.WithBrowser()
	}

	s.monitor.RegisterSimulation(s)

	addr, err := s.monitor.StartServer()
	if err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}

	s.monitorAddr = addr

	return nil
}
