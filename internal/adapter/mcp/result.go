package mcp

import mcplib "github.com/mark3labs/mcp-go/mcp"

// toolResultJSON wraps a JSON payload as a successful tool result.
func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
