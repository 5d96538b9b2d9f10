// Package cli is the fanaf command line: it runs the finalization server and
// exposes the same engine operations for back-office scripts.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/engine"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/config"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fanaf",
		Short: "FANAF payment finalization engine",
		Long: `Finalizes registration payments exactly once and keeps the
reconciliation figures of every console instance in sync.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewFinalizeCommand(opts))
	cmd.AddCommand(NewImportSettledCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewHashSecretCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// openEngine loads configuration and wires an engine. Logs go to stderr so
// command output stays parseable.
func (o *RootOptions) openEngine(ctx context.Context, cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	e, err := engine.Open(ctx, cfg, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open engine", err)
	}
	return e, nil
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return NewOutputFormatter(o.Format, cmd.OutOrStdout())
}
