package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tutorbot/app/config"

	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

const webSearchToolName = "web_search"

var _ Tool = (*agentTool)(nil)

type agentTool struct {
	name        string
	description string
	parameters  any
	call        func(ctx context.Context, input string) (string, error)
}

func (m *agentTool) Name() string {
	return m.name
}

func (m *agentTool) Description() string {
	return m.description
}

func (m *agentTool) Parameters() any {
	return m.parameters
}

func (m *agentTool) Call(ctx context.Context, input string) (string, error) {
	return m.call(ctx, input)
}

type searchRequest struct {
	Query string `json:"query"`
}

func createSearchTool(cfg config.Search, handler callbacks.Handler) (Tool, error) {
	ddg, err := duckduckgo.New(cfg.MaxResults, cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create duckduckgo tool: %w", err)
	}
	ddg.CallbacksHandler = handler

	return newSearchTool(ddg), nil
}

// newSearchTool exposes a plain-text search tool with a JSON {query} signature.
func newSearchTool(search tools.Tool) Tool {
	return &agentTool{
		name:        webSearchToolName,
		description: "Search the web. Use it for documentation, library APIs or facts you are not sure about. Returns titles, links and snippets.",
		parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
		call: func(ctx context.Context, input string) (string, error) {
			var req searchRequest
			if err := json.Unmarshal([]byte(input), &req); err != nil {
				// some models send the bare query
				req.Query = input
			}

			query := strings.TrimSpace(req.Query)
			if query == "" {
				return "", fmt.Errorf("empty search query")
			}

			return search.Call(ctx, query)
		},
	}
}
