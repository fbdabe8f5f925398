// serve.go implements the "spi serve" command for MCP server operation.
// Unlike other commands that run and exit, serve blocks handling MCP
// requests over stdio.

package core

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/internal/mcp"
	"github.com/jpl-au/spi/plugin"
)

func (p *Plugin) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start MCP server",
		Long: `Start an MCP (Model Context Protocol) server over stdio for LLM integration.

Tools come from the plugins activated for the "mcp" group.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{plugin.AnnotationAction: "serve"},
		RunE: func(_ *cobra.Command, _ []string) error {
			tools, err := p.tools()
			if err != nil {
				return err
			}
			return mcp.Serve(p.Ctx.Loader, tools)
		},
	}
}

// tools collects the tools of every plugin activated for MCP.
func (p *Plugin) tools() ([]plugin.Tool, error) {
	plugins, err := plugin.Activated(p.Ctx, plugin.GroupMCP)
	if err != nil {
		return nil, err
	}
	var tools []plugin.Tool
	for _, pl := range plugins {
		tools = append(tools, pl.Tools()...)
	}
	return tools, nil
}
