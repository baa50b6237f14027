package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/structs"
	"github.com/sarchlab/routesim/datarecording"
	"github.com/sarchlab/routesim/simulation"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	table   string
	where   string
	orderBy string
	limit   int
	offset  int
}

func newInspectCmd() *cobra.Command {
	o := &inspectOptions{}

	inspectCmd := &cobra.Command{
		Use:   "inspect <recording.sqlite3>",
		Short: "Print the tables of a recording.",
		Long: "Without --table, list the tables and their sizes. With --table, " +
			"print the rows of the table.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			reader.MapTable(simulation.TaskTable, simulation.TaskEntry{})
			reader.MapTable(simulation.StepTable, simulation.StepEntry{})
			reader.MapTable(simulation.TickStatsTable, simulation.TickStatsEntry{})

			if o.table == "" {
				return listTables(cmd, reader)
			}

			return printTable(cmd, reader, o)
		},
	}

	inspectCmd.Flags().StringVar(&o.table, "table", "",
		"table to print")
	inspectCmd.Flags().StringVar(&o.where, "where", "",
		`condition on the rows, for example "Kind = 'data'"`)
	inspectCmd.Flags().StringVar(&o.orderBy, "order-by", "",
		`order of the rows, for example "Time DESC"`)
	inspectCmd.Flags().IntVar(&o.limit, "limit", 20,
		"maximum number of rows, 0 for all")
	inspectCmd.Flags().IntVar(&o.offset, "offset", 0,
		"number of rows to skip")

	return inspectCmd
}

func listTables(cmd *cobra.Command, reader datarecording.DataReader) error {
	stored, err := reader.StoredTables(cmd.Context())
	if err != nil {
		return err
	}

	mapped := make(map[string]bool)
	for _, t := range reader.ListTables() {
		mapped[t] = true
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS")

	for _, t := range stored {
		if !mapped[t] {
			fmt.Fprintf(w, "%s\t?\n", t)
			continue
		}

		_, count, err := reader.Query(cmd.Context(), t,
			datarecording.QueryParams{Limit: 1})
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\t%d\n", t, count)
	}

	return w.Flush()
}

func printTable(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	o *inspectOptions,
) error {
	rows, total, err := reader.Query(cmd.Context(), o.table,
		datarecording.QueryParams{
			Where:   o.where,
			OrderBy: o.orderBy,
			Limit:   o.limit,
			Offset:  o.offset,
		})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	for i, row := range rows {
		if i == 0 {
			fmt.Fprintln(w, strings.ToUpper(strings.Join(structs.Names(row), "\t")))
		}

		writeRow(w, structs.Values(row))
	}

	err = w.Flush()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "%d of %d rows\n", len(rows), total)

	return err
}

func writeRow(w io.Writer, values []any) {
	cells := make([]string, 0, len(values))
	for _, v := range values {
		cells = append(cells, fmt.Sprint(v))
	}

	fmt.Fprintln(w, strings.Join(cells, "\t"))
}
