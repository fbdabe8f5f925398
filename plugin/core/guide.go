// guide.go implements the "spi guide" command for documentation access.
//
// Terminal output gets glamour rendering for readability; pipe/redirect
// gets raw markdown for machine consumption and LLM context loading.

package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpl-au/spi/guide"
	"github.com/jpl-au/spi/plugin"
)

func (p *Plugin) newGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guide [topic]",
		Short: "Show the spi usage guide",
		Long: `Outputs the spi guide for LLMs and humans.

  spi guide              # main guide
  spi guide descriptors  # descriptor file format
  spi guide adaptive     # adaptive dispatch`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{plugin.AnnotationAction: "read", plugin.AnnotationArgs: "topic"},
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			content, err := guide.Get(name)
			if err != nil {
				available, listErr := guide.List()
				if listErr != nil {
					return listErr
				}
				return fmt.Errorf("guide %q not found. Available: %s", name, strings.Join(available, ", "))
			}

			if f, ok := p.Ctx.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				rendered, err := glamour.Render(content, "dark")
				if err == nil {
					fmt.Fprint(p.Ctx.Out, rendered)
					return nil
				}
			}

			fmt.Fprint(p.Ctx.Out, content)
			return nil
		},
	}
}

func (p *Plugin) guideTool() plugin.Tool {
	return plugin.Tool{
		Tool: mcp.NewTool("spi_guide",
			mcp.WithDescription("Get help/guide content for spi"),
			mcp.WithString("topic", mcp.Description("Guide topic (e.g., 'descriptors', 'adaptive') or empty for index")),
		),
		Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			content, err := guide.Get(plugin.String(req, "topic", ""))
			if err != nil {
				topics, listErr := guide.List()
				if listErr != nil {
					return nil, fmt.Errorf("listing guides: %w", listErr)
				}
				return plugin.JSONResult(map[string]any{
					"error":            err.Error(),
					"available_topics": topics,
				})
			}
			return mcp.NewToolResultText(content), nil
		},
	}
}
