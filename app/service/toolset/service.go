package toolset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tutorbot/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

var _ do.Shutdownable = (*Service)(nil)

// ErrUnknownTool is returned by Call when the model asks for a tool that is not bound.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is a langchaingo tool that also describes its JSON arguments.
type Tool interface {
	tools.Tool
	Parameters() any
}

// Service holds the tools offered to the reply model. It is read-only after construction
// and shared between concurrent chats.
type Service struct {
	tools      []Tool
	mcpClients []*mcpClientWrapper
	connect    mcpConnector
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	s := &Service{
		connect: createMCPClient,
	}

	if cfg.Search.Enabled {
		searchTool, err := createSearchTool(cfg.Search, LogCallbackHandler{})
		if err != nil {
			return nil, err
		}
		s.tools = append(s.tools, searchTool)
	}

	if err := s.initializeMCPClients(cfg.MCP.Servers); err != nil {
		_ = s.Shutdown()
		return nil, err
	}

	slog.Info("Tools ready", "tools", s.Names())

	return s, nil
}

func NewWithTools(tools ...Tool) *Service {
	return &Service{
		tools: tools,
	}
}

func (s *Service) Names() []string {
	return pie.Map(s.tools, func(t Tool) string {
		return t.Name()
	})
}

// Definitions describes the tools in the form expected by llms.WithTools.
func (s *Service) Definitions() []llms.Tool {
	return pie.Map(s.tools, func(t Tool) llms.Tool {
		return llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	})
}

func (s *Service) Call(ctx context.Context, name, arguments string) (string, error) {
	index := pie.FindFirstUsing(s.tools, func(t Tool) bool {
		return t.Name() == name
	})
	if index < 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	return s.tools[index].Call(ctx, arguments)
}

func (s *Service) Shutdown() error {
	var errs []error

	for _, wrapper := range s.mcpClients {
		if err := wrapper.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close MCP client %s: %w", wrapper.name, err))
		}
	}
	s.mcpClients = nil

	return errors.Join(errs...)
}
