// Package cli implements the typedsql command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shipq/typedsql/internal/config"
	"github.com/shipq/typedsql/logging"
)

// RootOptions holds global flags and the config they resolve to.
type RootOptions struct {
	ConfigDir string
	LogFormat string
	LogLevel  string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand creates the typedsql command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "typedsql",
		Short: "Render and run typed SQL statements",
		Long: `typedsql renders CRUD statements for the tables of a schema file and
runs them against postgres, mysql or sqlite databases.

Settings come from typedsql.ini in the config directory; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "directory holding typedsql.ini (default: working directory)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|pretty|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewCrudCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigDir)
	if err != nil {
		return commandError("config", err)
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.LogLevel != "" {
		level, err := logging.ParseLevel(o.LogLevel)
		if err != nil {
			return commandError("--log-level", err)
		}
		cfg.Log.Level = level
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return commandError("--log-format", err)
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *RootOptions) output(cmd *cobra.Command) Output {
	return Output{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func missing(what, flag, key string) error {
	return commandError(what, fmt.Errorf("set --%s or %s in %s", flag, key, config.ConfigFilename))
}
