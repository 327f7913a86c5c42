package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"tutorbot/app/client/runner"
	"tutorbot/app/config"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

var errNoScript = errors.New("fake model: no scripted response")

type fakeCall struct {
	messages []llms.MessageContent
	options  llms.CallOptions
}

// fakeModel replays scripted responses in order and records every request.
type fakeModel struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	err       error
	calls     []fakeCall
}

var _ llms.Model = (*fakeModel)(nil)

func newFakeModel(responses ...*llms.ContentResponse) *fakeModel {
	return &fakeModel{responses: responses}
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	f.calls = append(f.calls, fakeCall{
		messages: append([]llms.MessageContent(nil), messages...),
		options:  opts,
	})

	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errNoScript
	}

	resp := f.responses[0]
	f.responses = f.responses[1:]

	return resp, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func toolResponse(name, arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:   "call_" + name,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			}},
		}},
	}
}

func extractCodeResponse(code, language string) *llms.ContentResponse {
	arguments, _ := json.Marshal(ExtractCode{Code: code, Language: language})
	return toolResponse(extractCodeTool, string(arguments))
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()

	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			return text.Text
		}
	}

	t.Fatalf("message %v has no text part", msg.Role)
	return ""
}

// fakeCompleter replays scripted completions for the summarizer.
type fakeCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)

	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if len(f.responses) == 0 {
		return openai.ChatCompletionResponse{}, nil
	}

	content := f.responses[0]
	f.responses = f.responses[1:]

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
		}},
	}, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

type fakeExecutor struct {
	mu      sync.Mutex
	results []*runner.Result
	err     error
	calls   []ExtractCode
}

func (f *fakeExecutor) Execute(_ context.Context, code, language string) (*runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, ExtractCode{Code: code, Language: language})

	if f.err != nil {
		return nil, f.err
	}

	// the last scripted result repeats
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}

	return result, nil
}

func passed(output string) *runner.Result {
	return &runner.Result{Passed: true, Output: output}
}

func failed(reason string) *runner.Result {
	return &runner.Result{Passed: false, Output: "False", Error: reason}
}

type fakeTools struct {
	calls  []string
	output string
	err    error
}

func (f *fakeTools) Definitions() []llms.Tool {
	return []llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:       "web_search",
			Parameters: map[string]any{"type": "object"},
		},
	}}
}

func (f *fakeTools) Call(_ context.Context, name, arguments string) (string, error) {
	f.calls = append(f.calls, name+" "+arguments)
	return f.output, f.err
}

type harness struct {
	summaryModel *fakeCompleter
	replyModel   *fakeModel
	judgeModel   *fakeModel
	executor     *fakeExecutor
	service      *Service
}

func testAgentConfig() config.Agent {
	return config.Agent{
		SummaryThreshold: 5,
		KeepMessages:     5,
		MaxReflections:   3,
		MaxToolSteps:     2,
	}
}

func newHarness(agentCfg config.Agent) *harness {
	h := &harness{
		summaryModel: &fakeCompleter{},
		replyModel:   newFakeModel(),
		judgeModel:   newFakeModel(),
		executor:     &fakeExecutor{results: []*runner.Result{passed("")}},
	}

	h.service = newService(
		agentCfg,
		NewSummaryAgent(h.summaryModel, "summarizer", 0.5, agentCfg.KeepMessages),
		NewReplyAgent(h.replyModel, 0.3, nil, agentCfg.MaxToolSteps),
		NewJudgeAgent(h.judgeModel, 0.6, false),
		h.executor,
	)

	return h
}

func userMessages(texts ...string) []Message {
	result := make([]Message, 0, len(texts))
	for _, text := range texts {
		result = append(result, Message{Role: RoleUser, Content: text})
	}

	return result
}
