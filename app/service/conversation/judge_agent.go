package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const (
	extractCodeTool = "ExtractCode"
	noCodeTool      = "NoCode"
)

var judgeTools = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        extractCodeTool,
			Description: "The last assistant message contains a complete runnable program. Extract it.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code": map[string]any{
						"type":        "string",
						"description": "Full source code of the program, without markdown fences",
					},
					"language": map[string]any{
						"type":        "string",
						"description": "Programming language in lowercase, e.g. python, go, javascript, cpp",
					},
				},
				"required": []string{"code", "language"},
			},
		},
	},
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        noCodeTool,
			Description: "The last assistant message has no runnable program.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	},
}

// JudgeAgent decides whether the latest reply carries code that has to be run.
type JudgeAgent struct {
	model           llms.Model
	temperature     float64
	forceToolChoice bool
}

func NewJudgeAgent(model llms.Model, temperature float64, forceToolChoice bool) *JudgeAgent {
	return &JudgeAgent{
		model:           model,
		temperature:     temperature,
		forceToolChoice: forceToolChoice,
	}
}

func (a *JudgeAgent) Call(ctx context.Context, state *State) (Decision, error) {
	options := []llms.CallOption{
		llms.WithTemperature(a.temperature),
		llms.WithTools(judgeTools),
	}
	if a.forceToolChoice {
		options = append(options, llms.WithToolChoice("required"))
	}

	resp, err := a.model.GenerateContent(ctx, withSystemPrompt(judgePrompt, state.Messages), options...)
	if err != nil {
		return nil, upstreamError("judge", err)
	}

	choice, ok := firstChoice(resp)
	if !ok || len(choice.ToolCalls) == 0 {
		slog.DebugContext(ctx, "Judge selected no tool")
		return NoCode{}, nil
	}

	return parseDecision(choice.ToolCalls[0])
}

// parseDecision maps the first tool call to a decision. Anything but ExtractCode is NoCode.
func parseDecision(call llms.ToolCall) (Decision, error) {
	if call.FunctionCall == nil || call.FunctionCall.Name != extractCodeTool {
		return NoCode{}, nil
	}

	var decision ExtractCode
	if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &decision); err != nil {
		return nil, upstreamError("judge", fmt.Errorf("malformed %s arguments: %w", extractCodeTool, err))
	}

	decision.Language = strings.ToLower(strings.TrimSpace(decision.Language))
	if strings.TrimSpace(decision.Code) == "" {
		return nil, upstreamError("judge", fmt.Errorf("%s without code", extractCodeTool))
	}

	return decision, nil
}
