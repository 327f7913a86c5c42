package toolset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tutorbot/app/config"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const mcpInitTimeout = time.Minute

type mcpClientWrapper struct {
	client client.MCPClient
	tools  []Tool
	name   string
}

type mcpConnector func(server config.MCPServer) (client.MCPClient, error)

func createMCPClient(server config.MCPServer) (client.MCPClient, error) {
	return client.NewStdioMCPClient(
		server.Command,
		server.Env,
		server.Args...,
	)
}

func (s *Service) initializeMCPClients(servers []config.MCPServer) error {
	for _, server := range servers {
		if err := s.initializeMCPClient(server); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) initializeMCPClient(server config.MCPServer) error {
	mcpClient, err := s.connect(server)
	if err != nil {
		return fmt.Errorf("failed to create MCP client for %s: %w", server.Name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mcpInitTimeout)
	defer cancel()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "tutorbot",
		Version: "1.0.0",
	}

	if _, err = mcpClient.Initialize(ctx, initRequest); err != nil {
		_ = mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP client %s: %w", server.Name, err)
	}

	toolsResponse, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = mcpClient.Close()
		return fmt.Errorf("failed to list tools from %s: %w", server.Name, err)
	}

	wrapper := &mcpClientWrapper{
		client: mcpClient,
		tools:  make([]Tool, 0, len(toolsResponse.Tools)),
		name:   server.Name,
	}

	for _, mcpTool := range toolsResponse.Tools {
		wrapper.tools = append(wrapper.tools, &mcpToolAdapter{
			client: mcpClient,
			tool:   mcpTool,
			name:   fmt.Sprintf("%s_%s", server.Name, mcpTool.Name),
		})
	}

	s.mcpClients = append(s.mcpClients, wrapper)
	s.tools = append(s.tools, wrapper.tools...)

	slog.Info("MCP server connected",
		"server", server.Name,
		"tools", len(wrapper.tools),
	)

	return nil
}
