// resources.go implements MCP resource handlers for extension points.
//
// Resource URIs follow the pattern spi://points/{point}, where point is the
// fully qualified interface name, e.g. spi://points/github.com/acme/app.Printer.

package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
)

const scheme = "spi://points/"

var (
	// ErrInvalidURI indicates a malformed resource URI.
	ErrInvalidURI = errors.New("invalid URI")
	// ErrEmptyPoint indicates a missing point name in a resource URI.
	ErrEmptyPoint = errors.New("empty extension point")
)

// readPoint returns the descriptors of the point named by the URI.
func (h *handlers) readPoint(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	point, err := parsePointURI(uri)
	if err != nil {
		return nil, err
	}
	ds, err := h.loader.Descriptors(point)
	if err != nil {
		return nil, err
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(ds, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func parsePointURI(uri string) (string, error) {
	point, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	if point == "" {
		return "", ErrEmptyPoint
	}
	return point, nil
}
