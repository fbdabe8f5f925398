// audit.go implements the wrapper that records plugin commands and tools in
// the audit log. It wraps every plugin, so commands do not log themselves.

package plugin

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/internal/log"
)

// Command annotations read by Audit.
const (
	// AnnotationAction names the audited action; defaults to "run".
	AnnotationAction = "audit.action"
	// AnnotationArgs lists the log fields positional args fill, e.g. "point,name".
	AnnotationArgs = "audit.args"
)

// Audit wraps a Plugin so every command and tool invocation is written to
// the audit log, unless audit.enabled is false.
type Audit struct {
	Base
	inner Plugin
}

// Unwrap returns the wrapped plugin.
func (a *Audit) Unwrap() Plugin { return a.inner }

func (a *Audit) enabled() bool {
	return a.Ctx == nil || a.Ctx.Config == nil || a.Ctx.Config.AuditEnabled()
}

// Commands returns the inner commands with audited run functions.
func (a *Audit) Commands() []*cobra.Command {
	cmds := a.inner.Commands()
	if !a.enabled() {
		return cmds
	}
	for _, c := range cmds {
		a.wrapCommand(c)
	}
	return cmds
}

func (a *Audit) wrapCommand(c *cobra.Command) {
	for _, sub := range c.Commands() {
		a.wrapCommand(sub)
	}
	run := c.RunE
	if run == nil {
		return
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		b := log.Event(source(cmd), action(cmd.Annotations))
		fill(b, cmd.Annotations[AnnotationArgs], args)
		b.Write(err)
		return err
	}
}

// Tools returns the inner tools with audited handlers.
func (a *Audit) Tools() []Tool {
	tools := a.inner.Tools()
	if !a.enabled() {
		return tools
	}
	out := make([]Tool, len(tools))
	for i, t := range tools {
		h := t.Handler
		name := t.Tool.Name
		out[i] = Tool{
			Tool: t.Tool,
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := h(ctx, req)
				b := log.Event("mcp:"+name, "call").
					Point(String(req, "point", "")).
					Name(String(req, "name", ""))
				if err == nil && res != nil && res.IsError {
					b.Detail("result", "error")
				}
				b.Write(err)
				return res, err
			},
		}
	}
	return out
}

// source is "{command}:{subcommand}" below the root, e.g. "config:set".
func source(cmd *cobra.Command) string {
	var parts []string
	for c := cmd; c.HasParent(); c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	return strings.Join(parts, ":")
}

func action(annotations map[string]string) string {
	if a := annotations[AnnotationAction]; a != "" {
		return a
	}
	return "run"
}

func fill(b *log.Builder, fields string, args []string) {
	if fields == "" {
		if len(args) > 0 {
			b.Detail("args", args)
		}
		return
	}
	for i, f := range strings.Split(fields, ",") {
		if i >= len(args) {
			break
		}
		switch f {
		case "point":
			b.Point(args[i])
		case "name":
			b.Name(args[i])
		default:
			b.Detail(f, args[i])
		}
	}
}
