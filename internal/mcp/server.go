// Package mcp implements the Model Context Protocol server, exposing the
// tools of the activated plugins and the loader's extension points to LLMs.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/plugin"
)

// Version is advertised to clients for capability negotiation.
const Version = "1.0.0"

// New returns a server exposing tools and the point resources of l.
func New(l *extension.Loader, tools []plugin.Tool) *server.MCPServer {
	s := server.NewMCPServer(
		"spi",
		Version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	h := &handlers{loader: l}
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			scheme+"{+point}",
			"Extension point",
			mcp.WithTemplateDescription("Descriptors of an extension point"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		h.readPoint,
	)

	for _, t := range tools {
		s.AddTool(t.Tool, t.Handler)
	}
	return s
}

// Serve starts the MCP server over stdio.
func Serve(l *extension.Loader, tools []plugin.Tool) error {
	// Log to stderr; stdout is reserved for MCP JSON-RPC messages
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	s := New(l, tools)
	slog.Info("spi MCP server ready", "version", Version, "transport", "stdio", "tools", len(tools))

	err := server.ServeStdio(s)
	if errors.Is(err, context.Canceled) {
		slog.Info("server stopped")
		return nil
	}
	return err
}

// handlers serves resources from the loader.
type handlers struct {
	loader *extension.Loader
}
