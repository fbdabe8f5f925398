/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// init_plugins.go builds the loader and registers plugin commands.
//
// Separated from root.go to isolate the initialisation logic that turns
// configuration into a loader, a container and the shared plugin Context.
//
// Design: spi is assembled by its own extension loader. Plugins are
// extensions of the plugin.Plugin point, activated for the "cli" group and
// wrapped by the audit wrapper. The Context reaches them through the bean
// container, the adaptive Printer through the loader itself.

package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/internal/config"
	"github.com/jpl-au/spi/internal/log"
	"github.com/jpl-au/spi/plugin"
)

// app is the Context shared by every plugin of this process.
var app *plugin.Context

var (
	pluginsOnce sync.Once
	pluginsErr  error
)

// newLoader builds a loader from configuration. Configured sources are
// descriptor roots on disk, scanned after the built-in ones.
func newLoader(cfg *config.Config, beans extension.Container, reg prometheus.Registerer, logger *slog.Logger) *extension.Loader {
	opts := []extension.Option{
		extension.WithCompiler(cfg.CompilerName()),
		extension.WithContainer(beans),
		extension.WithLogger(logger),
		extension.WithRegisterer(reg),
	}
	for _, dir := range cfg.Sources {
		opts = append(opts, extension.WithSources(extension.DirSources(dir)...))
	}
	if cfg.StrictOrder() {
		opts = append(opts, extension.WithStrictOrdering())
	}
	return extension.New(opts...)
}

// initPlugins creates the shared Context and adds the commands of every
// plugin activated for the CLI. Runs once per process.
func initPlugins(cfg *config.Config) error {
	pluginsOnce.Do(func() {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		reg := prometheus.NewRegistry()
		beans := extension.NewBeans()

		l := newLoader(cfg, beans, reg, logger)
		app = plugin.NewContext(l, cfg, reg)
		beans.Provide(plugin.ContextBean, app)

		if wd, err := os.Getwd(); err == nil {
			if abs, err := filepath.Abs(wd); err == nil {
				log.SetProject(abs)
			}
		}

		plugins, err := plugin.Activated(app, plugin.GroupCLI)
		if err != nil {
			pluginsErr = err
			return
		}
		for _, p := range plugins {
			rootCmd.AddCommand(p.Commands()...)
		}
	})
	return pluginsErr
}
