package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/sarchlab/routesim/routing"
	"github.com/sarchlab/routesim/scenario"
	"github.com/sarchlab/routesim/simulation"
	"github.com/spf13/cobra"
)

func newCompareCmd(a *app) *cobra.Command {
	var seed int64

	compareCmd := &cobra.Command{
		Use:   "compare [scenario|file.yaml]",
		Short: "Run a scenario with every protocol and compare the results.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "line"
			if len(args) > 0 {
				name = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return a.compare(ctx, cmd.OutOrStdout(), name, seed)
		},
	}

	compareCmd.Flags().Int64Var(&seed, "seed", 1,
		"seed of the protocols that make random choices")

	return compareCmd
}

func (a *app) compare(
	ctx context.Context,
	out io.Writer,
	name string,
	seed int64,
) error {
	scn, err := scenario.Resolve(name)
	if err != nil {
		return err
	}

	reports := make([]report, 0, len(routing.Names()))

	for _, protocol := range routing.Names() {
		r, err := a.runOnce(ctx, scn, protocol, seed)
		if err != nil {
			return fmt.Errorf("%s: %w", protocol, err)
		}

		reports = append(reports, r)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROTOCOL\tPACKETS\tROUTED\tDELIVERY RATE\tAVG TIME\tLOSSES")

	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
			r.protocol,
			r.stats.Packets,
			r.stats.Routed,
			formatOptional(r.stats.DeliveryRate, 3),
			formatOptional(r.stats.AvgTime, 2),
			formatLosses(r.losses))
	}

	return w.Flush()
}

func (a *app) runOnce(
	ctx context.Context,
	scn *scenario.Scenario,
	protocol string,
	seed int64,
) (report, error) {
	s, err := simulation.MakeBuilder().
		WithProtocol(protocol).
		WithSeed(seed).
		WithLogger(a.logger, nil).
		Build()
	if err != nil {
		return report{}, err
	}
	defer s.Terminate()

	stats, err := scenario.Run(ctx, s, scn)
	if err != nil {
		return report{}, err
	}

	return report{
		scenario: scn.Name,
		protocol: protocol,
		ticks:    s.Now(),
		stats:    stats,
		losses:   s.Losses(),
	}, nil
}
