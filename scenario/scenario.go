// Package scenario describes simulation runs in YAML files: the topology, the
// packets to inject and the links that go up and down over time.
package scenario

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sarchlab/routesim/routing"
	"github.com/sarchlab/routesim/sim"
)

// ErrInvalidScenario is returned when a scenario fails validation.
var ErrInvalidScenario = errors.New("invalid scenario")

// ErrUnknownScenario is returned when looking up a built-in scenario that does
// not exist.
var ErrUnknownScenario = errors.New("unknown scenario")

// A Scenario is a complete description of a run.
type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Protocol    string     `yaml:"protocol,omitempty"`
	Routers     []string   `yaml:"routers"`
	Links       [][]string `yaml:"links"`
	Ticks       uint64     `yaml:"ticks"`
	Drain       uint64     `yaml:"drain,omitempty"`
	Events      []Event    `yaml:"events,omitempty"`
}

// An Event changes the simulation before the Route of a tick. A one-off event
// fires at tick At. If Every is set, the event repeats every Every ticks,
// starting from At and stopping before Until. An Until of 0 means the end of
// the scenario.
type Event struct {
	At    uint64 `yaml:"at"`
	Every uint64 `yaml:"every,omitempty"`
	Until uint64 `yaml:"until,omitempty"`

	Inject  []string `yaml:"inject,omitempty"`
	AddLink []string `yaml:"add_link,omitempty"`
	DelLink []string `yaml:"del_link,omitempty"`
}

// FiresAt tells if the event fires before the Route of the given tick, in a
// scenario of the given length.
func (e Event) FiresAt(tick, ticks uint64) bool {
	if tick < e.At {
		return false
	}

	if e.Every == 0 {
		return tick == e.At
	}

	until := e.Until
	if until == 0 {
		until = ticks
	}

	return tick < until && (tick-e.At)%e.Every == 0
}

func (e Event) action() (string, []string) {
	switch {
	case e.Inject != nil:
		return "inject", e.Inject
	case e.AddLink != nil:
		return "add_link", e.AddLink
	default:
		return "del_link", e.DelLink
	}
}

func (e Event) numActions() int {
	n := 0

	for _, a := range [][]string{e.Inject, e.AddLink, e.DelLink} {
		if a != nil {
			n++
		}
	}

	return n
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}

	err := yaml.UnmarshalWithOptions(data, s, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	err = s.Validate()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Load reads a scenario file. If the file does not name the scenario, the file
// name without extension is used.
func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	s := &Scenario{}

	err = yaml.UnmarshalWithOptions(data, s, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", filename, ErrInvalidScenario, err)
	}

	if s.Name == "" {
		base := filepath.Base(filename)
		s.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	err = s.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return s, nil
}

// Marshal encodes the scenario as YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}

// Validate checks that the scenario only refers to its own routers and that
// every event does exactly one thing.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return invalid("missing name")
	}

	if s.Protocol != "" && !slices.Contains(routing.Names(), s.Protocol) {
		return invalid("unknown protocol %q", s.Protocol)
	}

	if s.Ticks == 0 {
		return invalid("ticks must be positive")
	}

	routers := make(map[string]bool, len(s.Routers))
	for _, r := range s.Routers {
		if r == "" {
			return invalid("empty router address")
		}

		if routers[r] {
			return invalid("duplicated router %q", r)
		}

		routers[r] = true
	}

	for _, l := range s.Links {
		err := pairMustBeValid("link", l, routers, false)
		if err != nil {
			return err
		}
	}

	for i, e := range s.Events {
		err := eventMustBeValid(i, e, routers)
		if err != nil {
			return err
		}
	}

	return nil
}

func eventMustBeValid(i int, e Event, routers map[string]bool) error {
	if e.numActions() != 1 {
		return invalid("event %d must have exactly one action", i)
	}

	if e.Every == 0 && e.Until != 0 {
		return invalid("event %d sets until without every", i)
	}

	if e.Until != 0 && e.Until <= e.At {
		return invalid("event %d ends before it starts", i)
	}

	name, pair := e.action()

	return pairMustBeValid(
		fmt.Sprintf("event %d %s", i, name), pair, routers, name == "inject")
}

func pairMustBeValid(
	what string,
	pair []string,
	routers map[string]bool,
	sameAllowed bool,
) error {
	if len(pair) != 2 {
		return invalid("%s needs 2 routers, got %d", what, len(pair))
	}

	for _, r := range pair {
		if !routers[r] {
			return invalid("%s refers to unknown router %q", what, r)
		}
	}

	if !sameAllowed && pair[0] == pair[1] {
		return invalid("%s connects %q to itself", what, pair[0])
	}

	return nil
}

func address(r string) sim.Address {
	return sim.Address(r)
}

//go:embed builtin/*.yaml
var builtinFS embed.FS

// BuiltIn returns a copy of a built-in scenario.
func BuiltIn(name string) (*Scenario, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownScenario)
	}

	return Parse(data)
}

// BuiltInNames returns the names of the built-in scenarios, sorted.
func BuiltInNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}

	sort.Strings(names)

	return names
}

// Resolve returns the built-in scenario with the given name, or loads the
// scenario file if the argument is not a built-in name.
func Resolve(nameOrFile string) (*Scenario, error) {
	if slices.Contains(BuiltInNames(), nameOrFile) {
		return BuiltIn(nameOrFile)
	}

	if _, err := os.Stat(nameOrFile); err != nil {
		return nil, fmt.Errorf("%q: %w", nameOrFile, ErrUnknownScenario)
	}

	return Load(nameOrFile)
}
