/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// flags.go defines global CLI flags.
//
// Separated from root.go to isolate flag definitions from command logic.
// Plugins never read these variables: PersistentPreRunE folds them into
// the shared plugin Context before any command runs.

package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/internal/output"
)

var (
	format  string
	params  []string
	metrics bool
	debug   bool
)

// level is the loader's log level, raised by --debug.
var level = new(slog.LevelVar)

func setLogLevel() {
	if debug {
		level.Set(slog.LevelDebug)
	}
}

func init() {
	level.Set(slog.LevelWarn)

	rootCmd.PersistentFlags().StringVarP(&format, "output", "o", "", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringArrayVarP(&params, "param", "p", nil, "Parameter key=value (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&metrics, "metrics", false, "Print loader metrics to stderr after the command")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log loader activity to stderr")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		if app == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return output.Formats(app.Loader), cobra.ShellCompDirectiveNoFileComp
	})
}
