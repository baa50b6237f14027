// Package routing lists the routing protocols that the simulator can run.
package routing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sarchlab/routesim/routing/distancevector"
	"github.com/sarchlab/routesim/routing/linkstate"
	"github.com/sarchlab/routesim/routing/randomwalk"
	"github.com/sarchlab/routesim/sim"
)

// Names of the registered protocols.
const (
	DistanceVector = "distance-vector"
	LinkState      = "link-state"
	RandomWalk     = "random-walk"
)

// ErrUnknownProtocol is returned when looking up a protocol that is not
// registered.
var ErrUnknownProtocol = errors.New("unknown protocol")

type options struct {
	seed int64
}

// Option configures the protocols returned by Lookup.
type Option func(o *options)

// WithSeed sets the seed of the protocols that make random choices.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

var registry = map[string]func(o options) sim.AlgorithmFactory{
	DistanceVector: func(options) sim.AlgorithmFactory {
		return distancevector.New
	},
	LinkState: func(options) sim.AlgorithmFactory {
		return linkstate.New
	},
	RandomWalk: func(o options) sim.AlgorithmFactory {
		return randomwalk.NewFactory(o.seed)
	},
}

// Lookup returns the factory of the named protocol.
func Lookup(name string, opts ...Option) (sim.AlgorithmFactory, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProtocol)
	}

	o := options{seed: 1}
	for _, opt := range opts {
		opt(&o)
	}

	return build(o), nil
}

// Names returns the names of all the protocols, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
