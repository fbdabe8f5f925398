// tools.go provides helpers for MCP tool handlers.
//
// Extraction is permissive: a missing or mistyped optional argument yields
// the caller's default instead of an error.

package plugin

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/spi/extension"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// String extracts a string argument, or def if it is missing.
func String(req mcp.CallToolRequest, name, def string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return def
}

// Bool extracts a boolean argument, or def if it is missing.
func Bool(req mcp.CallToolRequest, name string, def bool) bool {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}

// Params extracts an object argument of string values as Params.
// Non-string values are skipped.
func Params(req mcp.CallToolRequest, name string) extension.Params {
	p := extension.Params{}
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return p
	}
	obj, ok := args[name].(map[string]any)
	if !ok {
		return p
	}
	for k, v := range obj {
		if s, ok := v.(string); ok {
			p[k] = s
		}
	}
	return p
}

// JSONResult serialises v as indented JSON in a text result.
// Marshalling failures become error results.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorResult reports err to the client as a tool error.
func ErrorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
