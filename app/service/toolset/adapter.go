package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

var _ Tool = (*mcpToolAdapter)(nil)

type mcpToolAdapter struct {
	client client.MCPClient
	tool   mcp.Tool
	name   string
}

func (m *mcpToolAdapter) Name() string {
	return m.name
}

func (m *mcpToolAdapter) Description() string {
	return m.tool.Description
}

func (m *mcpToolAdapter) Parameters() any {
	if len(m.tool.RawInputSchema) > 0 {
		return m.tool.RawInputSchema
	}

	return m.tool.InputSchema
}

func (m *mcpToolAdapter) Call(ctx context.Context, input string) (string, error) {
	callRequest := mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
	}

	callRequest.Params.Name = m.tool.Name
	callRequest.Params.Arguments = m.arguments(input)

	response, err := m.client.CallTool(ctx, callRequest)
	if err != nil {
		return "", fmt.Errorf("MCP tool call failed: %w", err)
	}

	var result strings.Builder
	for _, content := range response.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			result.WriteString(textContent.Text)
			result.WriteString("\n")
		}
	}

	if response.IsError {
		return "", fmt.Errorf("MCP tool %s failed: %s", m.tool.Name, strings.TrimSpace(result.String()))
	}

	return strings.TrimSpace(result.String()), nil
}

// arguments turns model input into MCP arguments. Models normally send a JSON object,
// anything else is bound to the first schema property.
func (m *mcpToolAdapter) arguments(input string) map[string]any {
	trimmed := strings.TrimSpace(input)

	if strings.HasPrefix(trimmed, "{") {
		var args map[string]any
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
			return args
		}

		return map[string]any{
			"input": input,
		}
	}

	for propName := range m.tool.InputSchema.Properties {
		return map[string]any{
			propName: input,
		}
	}

	return map[string]any{
		"input": input,
	}
}
