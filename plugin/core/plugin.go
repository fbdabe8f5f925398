// Package core provides the core spi plugin.
// It contributes commands: config, serve, guide, version.
package core

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/plugin"
)

func init() {
	extension.Provide(extension.Implementation{
		Type: extension.TypeOf[Plugin](),
		New:  extension.Factory(func() *Plugin { return &Plugin{} }),
		Activate: &extension.Activate{
			Groups: []string{plugin.GroupCLI, plugin.GroupMCP},
			Order:  10,
		},
	})
}

// Plugin implements the core plugin.
type Plugin struct {
	plugin.Base
}

var _ plugin.Plugin = (*Plugin)(nil)

// Commands returns the core CLI commands.
func (p *Plugin) Commands() []*cobra.Command {
	return []*cobra.Command{
		p.newConfigCmd(),
		p.newServeCmd(),
		p.newGuideCmd(),
		p.newVersionCmd(),
	}
}

// Tools returns the guide and config tools.
func (p *Plugin) Tools() []plugin.Tool {
	return []plugin.Tool{
		p.guideTool(),
		p.configGetTool(),
	}
}
