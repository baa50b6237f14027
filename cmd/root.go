// Package cmd provides the command-line interface of routesim.
package cmd

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/sarchlab/routesim/simulation"
	"github.com/spf13/cobra"
)

// Environment variables that provide defaults for the flags. They can also be
// set in a .env file in the working directory.
const (
	envLogLevel    = "ROUTESIM_LOG_LEVEL"
	envMonitorPort = "ROUTESIM_MONITOR_PORT"
	envOutput      = "ROUTESIM_OUTPUT"
)

var flagEnvs = map[string]string{
	"log-level":    envLogLevel,
	"monitor-port": envMonitorPort,
	"output":       envOutput,
}

// app holds the state shared by the commands of one invocation.
type app struct {
	logLevel  string
	logFile   string
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "routesim",
		Short: "routesim compares routing protocols on a tick-based network simulator.",
		Long: `routesim simulates packet delivery over a network whose links ` +
			`come and go, and reports how well each routing protocol ` +
			`delivers the packets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setUp(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.tearDown()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn",
		"lowest level to log: debug, info, warn or error (env "+envLogLevel+")")
	rootCmd.PersistentFlags().StringVar(&a.logFile, "log-file", "",
		"also write the logs to this file")

	rootCmd.AddCommand(
		newRunCmd(a),
		newCompareCmd(a),
		newScenariosCmd(),
		newInspectCmd(),
	)

	return rootCmd
}

// Execute runs the command line.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) setUp(cmd *cobra.Command) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	err = applyEnv(cmd)
	if err != nil {
		return err
	}

	level, err := simulation.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}

	a.logger, a.logCloser, err = simulation.NewLogger(simulation.LogConfig{
		Level:   level,
		Console: cmd.ErrOrStderr(),
		File:    a.logFile,
	})

	return err
}

func (a *app) tearDown() error {
	if a.logCloser == nil {
		return nil
	}

	return a.logCloser.Close()
}

// applyEnv fills the flags that are not set on the command line from the
// environment.
func applyEnv(cmd *cobra.Command) error {
	for flag, env := range flagEnvs {
		f := cmd.Flags().Lookup(flag)
		if f == nil || f.Changed {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}

		err := cmd.Flags().Set(flag, value)
		if err != nil {
			return err
		}
	}

	return nil
}
