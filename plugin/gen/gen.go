// Package gen provides the plugin that writes adaptive stubs for extension
// point interfaces and checks checked-in stubs for drift.
package gen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/internal/diff"
	"github.com/jpl-au/spi/internal/gen"
	"github.com/jpl-au/spi/plugin"
)

// ErrStale is returned by --check when the stub on disk differs.
var ErrStale = errors.New("adaptive stub is out of date")

func init() {
	extension.Provide(extension.Implementation{
		Type: extension.TypeOf[Plugin](),
		New:  extension.Factory(func() *Plugin { return &Plugin{} }),
		Activate: &extension.Activate{
			Groups: []string{plugin.GroupCLI, plugin.GroupMCP},
			Order:  30,
		},
	})
}

// Plugin implements the gen plugin.
type Plugin struct {
	plugin.Base
}

var _ plugin.Plugin = (*Plugin)(nil)

// Commands returns the gen command.
func (p *Plugin) Commands() []*cobra.Command {
	return []*cobra.Command{p.newGenCmd()}
}

// Tools returns the gen tool.
func (p *Plugin) Tools() []plugin.Tool {
	return []plugin.Tool{p.genTool()}
}

func (p *Plugin) newGenCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "gen",
		Short: "Generate an adaptive stub",
		Long: `Generate the adaptive stub of an extension point interface.

  spi gen --file output.go --type Printer --out printer_adaptive.go
  spi gen --file output.go --type Printer --out printer_adaptive.go --check

Without --out the stub is written to stdout. With --check nothing is
written: the stub is compared with --out and the command fails when
they differ.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{plugin.AnnotationAction: "generate"},
		RunE:        p.runGen,
	}
	c.Flags().String(plugin.FlagFile, os.Getenv("GOFILE"), "Go source file declaring the interface")
	c.Flags().String(plugin.FlagType, "", "Interface type name")
	c.Flags().String(plugin.FlagOut, "", "Output file (default stdout)")
	c.Flags().Bool(plugin.FlagCheck, false, "Compare with --out instead of writing")
	_ = c.MarkFlagRequired(plugin.FlagType)
	return c
}

func (p *Plugin) runGen(c *cobra.Command, _ []string) error {
	file, _ := c.Flags().GetString(plugin.FlagFile)
	typ, _ := c.Flags().GetString(plugin.FlagType)
	out, _ := c.Flags().GetString(plugin.FlagOut)
	check, _ := c.Flags().GetBool(plugin.FlagCheck)

	if file == "" {
		return fmt.Errorf("--%s is required outside go generate", plugin.FlagFile)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	name := out
	if name == "" {
		name = filepath.Base(file)
	}
	stub, err := gen.Generate(gen.Request{Filename: name, Src: src, Type: typ})
	if err != nil {
		return err
	}

	switch {
	case check:
		if out == "" {
			return fmt.Errorf("--%s requires --%s", plugin.FlagCheck, plugin.FlagOut)
		}
		return p.check(out, stub)
	case out == "":
		_, err := p.Ctx.Out.Write(stub)
		return err
	default:
		if err := os.WriteFile(out, stub, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		return p.Print(fmt.Sprintf("wrote %s", out))
	}
}

// check diffs the stub on disk against the generated one.
func (p *Plugin) check(path string, stub []byte) error {
	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	r := diff.Compute(string(current), string(stub), path, "generated")
	if !r.Changed() {
		return nil
	}
	if _, err := fmt.Fprint(p.Ctx.Out, r.Format(p.colour())); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrStale, path)
}

func (p *Plugin) colour() bool {
	f, ok := p.Ctx.Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Plugin) genTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_gen",
			mcp.WithDescription("Generate the adaptive stub of an extension point interface from Go source"),
			mcp.WithString("source", mcp.Required(), mcp.Description("Go source declaring the interface")),
			mcp.WithString("type", mcp.Required(), mcp.Description("Interface type name")),
		),
		Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			src, err := req.RequireString("source")
			if err != nil {
				return plugin.ErrorResult(err)
			}
			typ, err := req.RequireString("type")
			if err != nil {
				return plugin.ErrorResult(err)
			}
			stub, err := gen.Generate(gen.Request{Filename: "source.go", Src: []byte(src), Type: typ})
			if err != nil {
				return plugin.ErrorResult(err)
			}
			return mcp.NewToolResultText(string(stub)), nil
		},
	}
}
