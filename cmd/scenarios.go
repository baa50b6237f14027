package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sarchlab/routesim/scenario"
	"github.com/spf13/cobra"
)

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios [name]",
		Short: "List the built-in scenarios, or print one as YAML.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				scn, err := scenario.BuiltIn(args[0])
				if err != nil {
					return err
				}

				data, err := scn.Marshal()
				if err != nil {
					return err
				}

				_, err = out.Write(data)

				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, name := range scenario.BuiltInNames() {
				scn, err := scenario.BuiltIn(name)
				if err != nil {
					return err
				}

				fmt.Fprintf(w, "%s\t%d routers\t%d ticks\t%s\n",
					name, len(scn.Routers), scn.Ticks+scn.Drain,
					scn.Description)
			}

			return w.Flush()
		},
	}
}
