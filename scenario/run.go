package scenario

import (
	"context"
	"fmt"

	"github.com/sarchlab/routesim/monitoring"
	"github.com/sarchlab/routesim/sim"
)

// Simulation is what a scenario drives. *simulation.Simulation satisfies it.
type Simulation interface {
	AddRouter(addr sim.Address) (sim.Router, error)
	AddLink(a, b sim.Address) error
	DelLink(a, b sim.Address) error
	AddPacket(src, dst sim.Address) (*sim.DataPacket, error)
	Step(n int)
	Now() uint64
	Stats() sim.Stats
	GetMonitor() *monitoring.Monitor
}

// Run builds the topology of the scenario in the simulation and plays the
// scenario. The context is checked between ticks.
func Run(ctx context.Context, s Simulation, scn *Scenario) (sim.Stats, error) {
	err := setUp(s, scn)
	if err != nil {
		return sim.Stats{}, err
	}

	total := scn.Ticks + scn.Drain

	var bar *monitoring.ProgressBar
	if m := s.GetMonitor(); m != nil {
		bar = m.CreateProgressBar(scn.Name, total)
		defer m.CompleteProgressBar(bar)
	}

	for tick := uint64(0); tick < total; tick++ {
		if err := ctx.Err(); err != nil {
			return s.Stats(), err
		}

		if tick < scn.Ticks {
			err = fire(s, scn, tick)
			if err != nil {
				return s.Stats(), err
			}
		}

		s.Step(1)

		if bar != nil {
			bar.Tick(phaseOf(scn, tick))
		}
	}

	return s.Stats(), nil
}

func phaseOf(scn *Scenario, tick uint64) string {
	if tick < scn.Ticks {
		return monitoring.PhaseTraffic
	}

	return monitoring.PhaseDrain
}

func setUp(s Simulation, scn *Scenario) error {
	for _, r := range scn.Routers {
		_, err := s.AddRouter(address(r))
		if err != nil {
			return err
		}
	}

	for _, l := range scn.Links {
		err := s.AddLink(address(l[0]), address(l[1]))
		if err != nil {
			return err
		}
	}

	return nil
}

func fire(s Simulation, scn *Scenario, tick uint64) error {
	for _, e := range scn.Events {
		if !e.FiresAt(tick, scn.Ticks) {
			continue
		}

		var err error

		name, pair := e.action()
		a, b := address(pair[0]), address(pair[1])

		switch name {
		case "inject":
			_, err = s.AddPacket(a, b)
		case "add_link":
			err = s.AddLink(a, b)
		case "del_link":
			err = s.DelLink(a, b)
		}

		if err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
	}

	return nil
}
