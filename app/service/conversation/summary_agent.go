package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/sashabaranov/go-openai"
)

const (
	newSummaryPrompt    = "Summarize the following conversation:"
	updateSummaryPrompt = "Existing summary:\n%s\n\nUpdate it based on the following conversation:"
)

// ChatCompleter is the part of the OpenAI client used for plain completions.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SummaryAgent folds the conversation into the rolling summary and drops old turns.
type SummaryAgent struct {
	client      ChatCompleter
	model       string
	temperature float32
	keep        int
}

func NewSummaryAgent(client ChatCompleter, model string, temperature float64, keep int) *SummaryAgent {
	return &SummaryAgent{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		keep:        keep,
	}
}

func (a *SummaryAgent) Call(ctx context.Context, state *State) error {
	prompt := newSummaryPrompt
	if state.Summary != "" {
		prompt = fmt.Sprintf(updateSummaryPrompt, state.Summary)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(state.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt,
	})
	messages = append(messages, pie.Map(state.Messages, func(msg Message) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	})...)

	aiResponse, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: a.temperature,
	})
	if err != nil {
		return upstreamError("summarize", err)
	}

	if len(aiResponse.Choices) == 0 {
		return upstreamError("summarize", fmt.Errorf("no chat completion found"))
	}

	before := len(state.Messages)

	state.Summary = strings.TrimSpace(aiResponse.Choices[0].Message.Content)
	state.truncate(a.keep)

	slog.DebugContext(ctx, "Conversation summarized",
		"messages_before", before,
		"messages_after", len(state.Messages),
		"summary_length", len(state.Summary),
	)

	return nil
}
