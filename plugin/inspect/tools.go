package inspect

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/spi/plugin"
)

func (p *Plugin) pointsTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_points",
			mcp.WithDescription("List extension points with their default, selection keys and extension names"),
		),
		Handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ps, err := p.points()
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return plugin.JSONResult(ps)
		},
	}
}

func (p *Plugin) describeTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_describe",
			mcp.WithDescription("Describe an extension point: extensions, wrappers, adaptive implementation and discovery failures"),
			mcp.WithString("point", mcp.Required(), mcp.Description("Point name or unique suffix (e.g. output.Printer)")),
		),
		Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			point, err := req.RequireString("point")
			if err != nil {
				return plugin.ErrorResult(err)
			}
			d, err := p.describe(point)
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return plugin.JSONResult(d)
		},
	}
}

func (p *Plugin) getTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_get",
			mcp.WithDescription("Construct a named extension and report its type"),
			mcp.WithString("point", mcp.Required(), mcp.Description("Point name or unique suffix")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Extension name")),
		),
		Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			point, err := req.RequireString("point")
			if err != nil {
				return plugin.ErrorResult(err)
			}
			name, err := req.RequireString("name")
			if err != nil {
				return plugin.ErrorResult(err)
			}
			i, err := p.get(point, name)
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return plugin.JSONResult(i)
		},
	}
}

func (p *Plugin) activateTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_activate",
			mcp.WithDescription("List the extensions of a point activated for a group and parameters, in order"),
			mcp.WithString("point", mcp.Required(), mcp.Description("Point name or unique suffix")),
			mcp.WithString("group", mcp.Description("Activation group (empty matches every group)")),
			mcp.WithString("key", mcp.Description("Parameter holding an explicit activation list")),
			mcp.WithObject("params", mcp.Description("String parameters, e.g. {\"cache\": \"lru\"}")),
		),
		Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			point, err := req.RequireString("point")
			if err != nil {
				return plugin.ErrorResult(err)
			}
			a, err := p.activate(point,
				plugin.Params(req, "params"),
				plugin.String(req, "group", ""),
				plugin.String(req, "key", ""))
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return plugin.JSONResult(a)
		},
	}
}

func (p *Plugin) adaptiveTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_adaptive",
			mcp.WithDescription("Show the adaptive dispatch plan of an extension point"),
			mcp.WithString("point", mcp.Required(), mcp.Description("Point name or unique suffix")),
		),
		Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			point, err := req.RequireString("point")
			if err != nil {
				return plugin.ErrorResult(err)
			}
			pl, err := p.plan(point)
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return mcp.NewToolResultText(pl.Source), nil
		},
	}
}

func (p *Plugin) metricsTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_metrics",
			mcp.WithDescription("Report constructions, adaptive dispatches and skipped descriptor entries of this server"),
		),
		Handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if p.Ctx.Registry == nil {
				return plugin.JSONResult(plugin.Samples{})
			}
			s, err := plugin.Gather(p.Ctx.Registry)
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return plugin.JSONResult(s)
		},
	}
}
