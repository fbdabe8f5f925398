// config.go implements the "spi config" command for configuration management.
//
// Config follows a cascade model similar to git: local config
// (.spi/config.yaml) takes precedence over global (~/.spi/config.yaml).
// The --local flag forces use of local config even if it doesn't exist yet.

package core

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/internal/config"
	"github.com/jpl-au/spi/plugin"
)

func (p *Plugin) newConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "View or set config values",
		Long: `View or set config values.

  spi config                  # show config
  spi config compiler         # show the adaptive compiler
  spi config plugins -- -gen  # disable the gen plugin

Configuration locations:
  Global: ~/.spi/config.yaml
  Local:  .spi/config.yaml

Uses local config if it exists, otherwise global.
Writes go to the same place reads come from.
Use --local to use local config instead.`,
		Args:        cobra.MaximumNArgs(2),
		Annotations: map[string]string{plugin.AnnotationAction: "config", plugin.AnnotationArgs: "key"},
		RunE:        p.runConfig,
	}
	c.Flags().Bool(plugin.FlagLocal, false, "Use local config (.spi/config.yaml)")
	return c
}

func (p *Plugin) runConfig(c *cobra.Command, args []string) error {
	forceLocal, _ := c.Flags().GetBool(plugin.FlagLocal)

	var cfg *config.Config
	var err error
	if forceLocal {
		cfg, err = config.LoadScope(config.ScopeLocal)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	switch len(args) {
	case 0:
		return p.Print(cfg.All())

	case 1:
		v, err := cfg.Get(args[0])
		if err != nil {
			return fmt.Errorf("config get %q: %w", args[0], err)
		}
		return p.Print(map[string]string{args[0]: v})

	default:
		if err := cfg.Set(args[0], args[1]); err != nil {
			return fmt.Errorf("config set %q: %w", args[0], err)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("config save: %w", err)
		}
		scope := "global"
		if cfg.Scope() == config.ScopeLocal {
			scope = "local"
		}
		return p.Print(fmt.Sprintf("%s = %s (%s)", args[0], args[1], scope))
	}
}

func (p *Plugin) configGetTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_config_get",
			mcp.WithDescription("Get a configuration value"),
			mcp.WithString("key", mcp.Description("Config key (compiler, order.strict, sources, plugins, audit.enabled) or empty for all")),
		),
		Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cfg, err := config.Load()
			if err != nil {
				return plugin.ErrorResult(err)
			}
			key := plugin.String(req, "key", "")
			if key == "" {
				return plugin.JSONResult(cfg.All())
			}
			v, err := cfg.Get(key)
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return plugin.JSONResult(map[string]string{key: v})
		},
	}
}
