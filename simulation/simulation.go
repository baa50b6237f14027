// Package simulation wires a simulator together with the services around it:
// logging, tracing, recording and monitoring.
package simulation

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/sarchlab/routesim/datarecording"
	"github.com/sarchlab/routesim/monitoring"
	"github.com/sarchlab/routesim/sim"
	"github.com/sarchlab/routesim/sim/hooking"
)

var _ monitoring.Inspectable = (*Simulation)(nil)

// A Simulation owns a simulator and the services attached to it. Unlike the
// simulator, a Simulation is safe for concurrent use, so that the monitor can
// read it while it runs.
type Simulation struct {
	id       string
	protocol string
	factory  sim.AlgorithmFactory
	log      *slog.Logger

	lock      sync.Mutex
	simulator *sim.Simulator

	dataRecorder  datarecording.DataRecorder
	dbTracer      *hooking.DBTracer
	latencyTracer *hooking.TotalAvgTimeTracer
	lossTracer    *hooking.TagCountTracer
	pendingTracer *hooking.PendingTracer
	monitor       *monitoring.Monitor
	monitorAddr   string
	logCloser     io.Closer

	terminated bool
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Protocol returns the name of the routing protocol that new routers run.
func (s *Simulation) Protocol() string {
	return s.protocol
}

// Logger returns the logger of the simulation.
func (s *Simulation) Logger() *slog.Logger {
	return s.log
}

// Simulator returns the underlying simulator. The simulator is not protected
// by the lock of the simulation.
func (s *Simulation) Simulator() *sim.Simulator {
	return s.simulator
}

// GetDataRecorder returns the data recorder used in the simulation, or nil if
// the simulation is not recorded.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation, or nil if the
// simulation is not monitored.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorAddr returns the address the monitor listens on.
func (s *Simulation) MonitorAddr() string {
	return s.monitorAddr
}

// AddRouter adds a router that runs the protocol of the simulation.
func (s *Simulation) AddRouter(addr sim.Address) (sim.Router, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.simulator.AddRouter(s.factory, addr)
}

// AddLink connects two routers.
func (s *Simulation) AddLink(a, b sim.Address) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.simulator.AddLink(a, b)
}

// DelLink disconnects two routers.
func (s *Simulation) DelLink(a, b sim.Address) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.simulator.DelLink(a, b)
}

// AddPacket injects a data packet.
func (s *Simulation) AddPacket(src, dst sim.Address) (*sim.DataPacket, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.simulator.AddPacket(src, dst)
}

// Step advances the simulation by n ticks. The lock is released between
// ticks.
func (s *Simulation) Step(n int) {
	for i := 0; i < n; i++ {
		s.lock.Lock()
		s.simulator.Route()
		s.lock.Unlock()
	}
}

// Now returns the current tick.
func (s *Simulation) Now() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.simulator.Now()
}

// Stats returns the delivery statistics so far.
func (s *Simulation) Stats() sim.Stats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.simulator.Stats()
}

// RouterIDs returns the addresses of the routers in the order they were added.
func (s *Simulation) RouterIDs() []sim.Address {
	s.lock.Lock()
	defer s.lock.Unlock()

	routers := s.simulator.Routers()
	ids := make([]sim.Address, 0, len(routers))

	for _, r := range routers {
		ids = append(ids, r.ID())
	}

	return ids
}

// Links returns the connected pairs, sorted.
func (s *Simulation) Links() [][2]sim.Address {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.simulator.Links()
}

// InspectRouter calls fn with a router and its algorithm between two ticks.
func (s *Simulation) InspectRouter(
	addr sim.Address,
	fn func(r sim.Router, alg sim.RoutingAlgorithm),
) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	r, ok := s.simulator.Router(addr)
	if !ok {
		return false
	}

	alg, _ := s.simulator.Algorithm(addr)
	fn(r, alg)

	return true
}

// Pending returns the packets that are still in flight, oldest first.
func (s *Simulation) Pending() []hooking.PendingTask {
	return s.pendingTracer.Pending()
}

// AverageLifetime returns the average number of ticks between the injection
// of a data packet and its delivery or loss.
func (s *Simulation) AverageLifetime() float64 {
	return s.latencyTracer.AverageTime()
}

// Losses returns the number of lost data packets by reason.
func (s *Simulation) Losses() map[string]uint64 {
	losses := make(map[string]uint64)
	for _, name := range s.lossTracer.GetTagNames() {
		losses[name] = s.lossTracer.GetTagCount(name)
	}

	return losses
}

// Terminate writes out the unfinished traces and closes the recording and the
// log file. Calling Terminate more than once has no effect.
func (s *Simulation) Terminate() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.terminated {
		return nil
	}

	s.terminated = true

	var errs []error

	if s.dbTracer != nil {
		s.dbTracer.Terminate()
	}

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	if s.logCloser != nil {
		errs = append(errs, s.logCloser.Close())
	}

	return errors.Join(errs...)
}
