package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/routesim/routing"
	"github.com/sarchlab/routesim/scenario"
	"github.com/sarchlab/routesim/sim"
	"github.com/sarchlab/routesim/simulation"
	"github.com/spf13/cobra"
)

type runOptions struct {
	protocol    string
	ticks       uint64
	seed        int64
	parallel    int
	uniqueIDs   bool
	record      bool
	output      string
	monitor     bool
	monitorPort int
	open        bool
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run [scenario|file.yaml]",
		Short: "Run a scenario and print the delivery statistics.",
		Long: "Run a built-in scenario or a scenario file. " +
			"The line scenario is used if none is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "line"
			if len(args) > 0 {
				name = args[0]
			}

			scn, err := scenario.Resolve(name)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("ticks") {
				scn.Ticks = o.ticks
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return a.run(ctx, cmd.OutOrStdout(), scn, o)
		},
	}

	runCmd.Flags().StringVar(&o.protocol, "protocol", "",
		"routing protocol, one of "+strings.Join(routing.Names(), ", ")+
			" (default: the protocol of the scenario, or "+
			routing.DistanceVector+")")
	runCmd.Flags().Uint64Var(&o.ticks, "ticks", 0,
		"number of ticks with events, overriding the scenario")
	runCmd.Flags().Int64Var(&o.seed, "seed", 1,
		"seed of the protocols that make random choices")
	runCmd.Flags().IntVar(&o.parallel, "parallel", 0,
		"number of routers that decide at the same time")
	runCmd.Flags().BoolVar(&o.uniqueIDs, "unique-ids", false,
		"give packets globally unique IDs instead of sequential numbers")
	runCmd.Flags().BoolVar(&o.record, "record", false,
		"record the packet traces in an SQLite file")
	runCmd.Flags().StringVar(&o.output, "output", "",
		"name of the recording, without extension (env "+envOutput+")")
	runCmd.Flags().BoolVar(&o.monitor, "monitor", false,
		"serve the monitor while the simulation runs")
	runCmd.Flags().IntVar(&o.monitorPort, "monitor-port", 0,
		"port of the monitor (env "+envMonitorPort+")")
	runCmd.Flags().BoolVar(&o.open, "open", false,
		"open the monitor in a browser")

	return runCmd
}

func pickProtocol(flag string, scn *scenario.Scenario) string {
	if flag != "" {
		return flag
	}

	if scn.Protocol != "" {
		return scn.Protocol
	}

	return routing.DistanceVector
}

func (a *app) run(
	ctx context.Context,
	out io.Writer,
	scn *scenario.Scenario,
	o *runOptions,
) error {
	protocol := pickProtocol(o.protocol, scn)

	b := simulation.MakeBuilder().
		WithProtocol(protocol).
		WithSeed(o.seed).
		WithParallelDecide(o.parallel).
		WithLogger(a.logger, nil)

	if o.uniqueIDs {
		b = b.WithUniquePacketIDs()
	}

	if o.record || o.output != "" {
		b = b.WithRecording().WithOutputFileName(o.output)
	}

	if o.monitor {
		b = b.WithMonitoring().WithMonitorPort(o.monitorPort)
		if o.open {
			b = b.WithBrowser()
		}
	}

	s, err := b.Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	stats, err := scenario.Run(ctx, s, scn)
	if err != nil {
		return err
	}

	printReport(out, report{
		scenario: scn.Name,
		protocol: protocol,
		ticks:    s.Now(),
		stats:    stats,
		losses:   s.Losses(),
	})

	if rec := s.GetDataRecorder(); rec != nil {
		fmt.Fprintf(out, "Recorded to %s\n", rec.Path())
	}

	if o.monitor {
		fmt.Fprintf(out, "Monitor at %s, press Ctrl+C to exit.\n",
			s.MonitorAddr())
		<-ctx.Done()
	}

	return s.Terminate()
}

type report struct {
	scenario string
	protocol string
	ticks    uint64
	stats    sim.Stats
	losses   map[string]uint64
}

func printReport(out io.Writer, r report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Scenario:\t%s\n", r.scenario)
	fmt.Fprintf(w, "Protocol:\t%s\n", r.protocol)
	fmt.Fprintf(w, "Ticks:\t%d\n", r.ticks)
	fmt.Fprintf(w, "Packets:\t%d\n", r.stats.Packets)
	fmt.Fprintf(w, "Routed:\t%d\n", r.stats.Routed)
	fmt.Fprintf(w, "Delivery rate:\t%s\n", formatOptional(r.stats.DeliveryRate, 3))
	fmt.Fprintf(w, "Average time:\t%s\n", formatOptional(r.stats.AvgTime, 2))
	fmt.Fprintf(w, "Losses:\t%s\n", formatLosses(r.losses))

	w.Flush()
}

func formatOptional(v *float64, digits int) string {
	if v == nil {
		return "n/a"
	}

	return fmt.Sprintf("%.*f", digits, *v)
}

func formatLosses(losses map[string]uint64) string {
	if len(losses) == 0 {
		return "none"
	}

	reasons := make([]string, 0, len(losses))
	for reason := range losses {
		reasons = append(reasons, reason)
	}

	sort.Strings(reasons)

	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, losses[reason]))
	}

	return strings.Join(parts, " ")
}
