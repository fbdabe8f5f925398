/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// root.go defines the root command and CLI execution entry point.
//
// Separated from init_plugins.go to isolate cobra setup from loader
// construction.
//
// Design: the loader is built before flags are parsed, because the commands
// themselves come from the plugins it activates. Flags only refine the
// per-invocation parameters in PersistentPreRunE.

package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/internal/config"
	"github.com/jpl-au/spi/internal/log"
	"github.com/jpl-au/spi/internal/output"
	"github.com/jpl-au/spi/plugin"
)

var rootCmd = &cobra.Command{
	Use:   "spi",
	Short: "Inspect and generate extension point wiring",
	Long: `spi inspects the extension points of a Go program: the descriptors that
name their extensions, activation order and adaptive dispatch plans. It
also generates adaptive stubs and serves the same views over MCP.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		setLogLevel()
		p, err := extension.ParseParams(params)
		if err != nil {
			return err
		}
		if format != "" {
			formats := output.Formats(app.Loader)
			if !slices.Contains(formats, format) {
				return fmt.Errorf("invalid output format: %s (valid: %v)", format, formats)
			}
			p[output.Key] = format
		}
		app.Params = p
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if !metrics {
			return nil
		}
		s, err := plugin.Gather(app.Registry)
		if err != nil {
			return err
		}
		return s.WriteText(os.Stderr)
	},
}

// Execute runs the root command and handles process lifecycle.
// Loads config, opens audit logging, builds the loader, adds the commands
// of the activated plugins and executes. Exit code 1 indicates error.
func Execute() {
	if err := execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func execute() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Audit logging is best-effort
	if cfg.AuditEnabled() {
		if err := log.Open(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
		}
		defer log.Close()
	}

	if err := initPlugins(cfg); err != nil {
		return fmt.Errorf("initialise plugins: %w", err)
	}
	defer func() {
		if err := app.Loader.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}()
	return rootCmd.Execute()
}

// reportError prints err as {"error": ...} when JSON output was requested,
// otherwise to stderr.
func reportError(err error) {
	if app != nil && app.Params.Get(output.Key) == "json" {
		_ = output.JSONPrinter{}.Print(app.Params, app.Out, map[string]string{"error": err.Error()})
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
