package common

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// StructuredResult returns a successful result carrying both a readable
// summary and the machine-readable structured content.
func StructuredResult(summary string, structured any) *mcp.CallToolResult {
	return mcp.NewToolResultStructured(structured, summary)
}
