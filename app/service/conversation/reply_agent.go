package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

// ToolSet is the set of tools the reply model may call while producing a turn.
type ToolSet interface {
	Definitions() []llms.Tool
	Call(ctx context.Context, name, arguments string) (string, error)
}

// ReplyAgent produces the next assistant turn. Tool calls are resolved internally,
// only the final text reaches the conversation.
type ReplyAgent struct {
	model        llms.Model
	temperature  float64
	tools        ToolSet
	maxToolSteps int
}

func NewReplyAgent(model llms.Model, temperature float64, tools ToolSet, maxToolSteps int) *ReplyAgent {
	return &ReplyAgent{
		model:        model,
		temperature:  temperature,
		tools:        tools,
		maxToolSteps: maxToolSteps,
	}
}

func (a *ReplyAgent) Call(ctx context.Context, problem string, state *State) (string, error) {
	prompt, ok := systemPrompt(state.Level)
	if !ok {
		return "", fmt.Errorf("%w: unknown level %d", ErrInvalidRequest, state.Level)
	}

	messages := withSystemPrompt(prompt+"\n\nProblem:\n"+problem, state.Messages)

	var definitions []llms.Tool
	if a.tools != nil {
		definitions = a.tools.Definitions()
	}

	for step := 0; ; step++ {
		options := []llms.CallOption{llms.WithTemperature(a.temperature)}

		// the last round goes without tools so the model has to answer in text
		withTools := len(definitions) > 0 && step < a.maxToolSteps
		if withTools {
			options = append(options, llms.WithTools(definitions))
		}

		resp, err := a.model.GenerateContent(ctx, messages, options...)
		if err != nil {
			return "", upstreamError("respond", err)
		}

		choice, ok := firstChoice(resp)
		if !ok {
			return "", upstreamError("respond", fmt.Errorf("no completion choices"))
		}

		if !withTools || len(choice.ToolCalls) == 0 {
			state.add(RoleAssistant, choice.Content)
			return choice.Content, nil
		}

		messages = append(messages, toolCallMessage(choice))
		for _, call := range choice.ToolCalls {
			messages = append(messages, a.callTool(ctx, call))
		}
	}
}

func (a *ReplyAgent) callTool(ctx context.Context, call llms.ToolCall) llms.MessageContent {
	var name, arguments string
	if call.FunctionCall != nil {
		name = call.FunctionCall.Name
		arguments = call.FunctionCall.Arguments
	}

	output, err := a.tools.Call(ctx, name, arguments)
	if err != nil {
		slog.WarnContext(ctx, "Tool call failed",
			"tool", name,
			"error", err,
		)
		output = "Error: " + err.Error()
	}

	return llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{
			llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       name,
				Content:    output,
			},
		},
	}
}

func toolCallMessage(choice *llms.ContentChoice) llms.MessageContent {
	parts := make([]llms.ContentPart, 0, len(choice.ToolCalls)+1)
	if choice.Content != "" {
		parts = append(parts, llms.TextContent{Text: choice.Content})
	}
	for _, call := range choice.ToolCalls {
		parts = append(parts, call)
	}

	return llms.MessageContent{
		Role:  llms.ChatMessageTypeAI,
		Parts: parts,
	}
}
