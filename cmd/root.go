// Package cmd implements the command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flowgrid-io/flowgrid/internal/build"
	"github.com/flowgrid-io/flowgrid/internal/config"
	"github.com/flowgrid-io/flowgrid/internal/logger"
)

var (
	// cfgFile is the --config flag value.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   build.Slug,
		Short: "Deterministic DAG execution engine for API-call workflows.",
		Long: `Deterministic DAG execution engine for API-call workflows.

Workflows declare steps, input mappings and edges; tools declare HTTP
endpoints. The engine validates the graph, orders it deterministically
and executes the configured calls.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(versionCmd())
}

// loadConfig loads the application config honoring the --config flag.
func loadConfig() (*config.Config, error) {
	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	return config.Load(opts...)
}

// newLogger builds the process logger from the config.
func newLogger(cfg *config.Config) logger.Logger {
	opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.Debug {
		opts = append(opts, logger.WithDebug())
	}
	return logger.NewLogger(opts...)
}
