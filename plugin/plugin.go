// Package plugin defines the contract for spi command groups. Plugins are
// extensions of the Plugin point: they are named in descriptor resources,
// activated for the "cli" or "mcp" group and receive their dependencies by
// injection, so the CLI is assembled by the same loader it inspects.
package plugin

import (
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/internal/config"
	"github.com/jpl-au/spi/internal/output"
)

// Activation groups.
const (
	GroupCLI = "cli"
	GroupMCP = "mcp"
)

// Key is the parameter holding the plugin activation list, e.g. "-gen".
const Key = "plugins"

// ContextBean is the container name the Context is provided under.
const ContextBean = "context"

// Plugin contributes CLI commands and MCP tools.
type Plugin interface {
	// Commands returns CLI commands to add to the root command.
	Commands() []*cobra.Command

	// Tools returns MCP tools to register with the server.
	Tools() []Tool
}

// Tool pairs an MCP tool definition with its handler.
type Tool struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// Context is the state shared by every plugin of one process.
type Context struct {
	Loader   *extension.Loader
	Config   *config.Config
	Registry *prometheus.Registry
	Out      io.Writer
	Params   extension.Params
}

// NewContext returns a Context writing to stdout.
func NewContext(l *extension.Loader, cfg *config.Config, reg *prometheus.Registry) *Context {
	return &Context{
		Loader:   l,
		Config:   cfg,
		Registry: reg,
		Out:      os.Stdout,
		Params:   extension.Params{},
	}
}

// Base carries the injected dependencies plugins have in common.
// Embed it to receive the Context and the adaptive Printer.
type Base struct {
	Ctx     *Context
	Printer output.Printer
}

// SetContext is called by the loader with the container's Context bean.
func (b *Base) SetContext(c *Context) { b.Ctx = c }

// SetPrinter is called by the loader with the adaptive Printer.
func (b *Base) SetPrinter(p output.Printer) { b.Printer = p }

// Print writes v in the format selected by the current parameters.
// Without an adaptive Printer (a misconfigured compiler) it writes text.
func (b *Base) Print(v any) error {
	if b.Printer == nil {
		return output.TextPrinter{}.Print(b.Ctx.Params, b.Ctx.Out, v)
	}
	return b.Printer.Print(b.Ctx.Params, b.Ctx.Out, v)
}

// Tools returns no tools.
func (b *Base) Tools() []Tool { return nil }

func init() {
	extension.Declare[Plugin](extension.Point{}, nil)
	extension.Provide(extension.Implementation{
		Type: extension.TypeOf[Audit](),
		Wrap: extension.Wrapper(func(p Plugin) Plugin { return &Audit{inner: p} }),
	})
}

// Activated returns the plugins active for group, in activation order.
// The Context's Key parameter, or else the configured list, selects
// plugins explicitly.
func Activated(c *Context, group string) ([]Plugin, error) {
	r, err := extension.For[Plugin](c.Loader)
	if err != nil {
		return nil, err
	}
	p := c.Params
	if p.Get(Key) == "" && c.Config != nil {
		p = p.With(Key, c.Config.Plugins)
	}
	return r.Activated(p, group, Key)
}
