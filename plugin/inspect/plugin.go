// Package inspect provides the plugin that looks into a loader: the points
// it knows, their extensions, activation and adaptive plans.
package inspect

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
			Order:  20,
		},
	})
}

// Plugin implements the inspect plugin.
type Plugin struct {
	plugin.Base
}

var _ plugin.Plugin = (*Plugin)(nil)

// Commands returns the inspection commands.
func (p *Plugin) Commands() []*cobra.Command {
	return []*cobra.Command{
		p.newLsCmd(),
		p.newDescribeCmd(),
		p.newGetCmd(),
		p.newActivateCmd(),
		p.newOrderCmd(),
		p.newAdaptiveCmd(),
	}
}

// Tools returns the inspection tools.
func (p *Plugin) Tools() []plugin.Tool {
	return []plugin.Tool{
		p.pointsTool(),
		p.describeTool(),
		p.getTool(),
		p.activateTool(),
		p.adaptiveTool(),
		p.metricsTool(),
	}
}

func (p *Plugin) loader() *extension.Loader { return p.Ctx.Loader }

// annotate marks a command whose arguments are a point and a name.
func annotate(action string) map[string]string {
	return map[string]string{
		plugin.AnnotationAction: action,
		plugin.AnnotationArgs:   "point,name",
	}
}
