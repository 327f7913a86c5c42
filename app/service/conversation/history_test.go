package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"
)

func numberedState(n int) *State {
	state := &State{}
	for i := 0; i < n; i++ {
		state.add(RoleUser, fmt.Sprintf("message %d", i))
	}

	return state
}

func TestRoutingThreshold(t *testing.T) {
	svc := newService(testAgentConfig(), nil, nil, nil, nil)

	for n := 1; n <= 12; n++ {
		t.Run(fmt.Sprintf("%d messages", n), func(t *testing.T) {
			want := stepRespond
			if n > 5 {
				want = stepSummarize
			}

			assert.Equal(t, want, svc.route(numberedState(n)))
		})
	}
}

func TestTruncateKeepsMostRecentInOrder(t *testing.T) {
	for n := 0; n <= 12; n++ {
		state := numberedState(n)
		original := state.snapshot()

		state.truncate(5)

		assert.LessOrEqual(t, len(state.Messages), 5)

		start := 0
		if n > 5 {
			start = n - 5
		}
		assert.Equal(t, original[start:], state.Messages, "n=%d", n)
	}
}

func TestTruncateDoesNotAliasOldSlice(t *testing.T) {
	state := numberedState(8)
	old := state.Messages

	state.truncate(5)
	state.add(RoleAssistant, "reply")

	assert.Equal(t, "message 0", old[0].Content)
	assert.Len(t, state.Messages, 6)
}

func TestLastReply(t *testing.T) {
	state := numberedState(2)

	_, ok := state.lastReply()
	assert.False(t, ok)

	state.add(RoleAssistant, "first")
	state.add(RoleAssistant, "second")
	state.add(RoleUser, "Execution failed: boom. Try running the correct code.")

	reply, ok := state.lastReply()
	assert.True(t, ok)
	assert.Equal(t, "second", reply)
}

func TestNewStateCopiesMessages(t *testing.T) {
	req := Request{Messages: userMessages("hi"), Summary: "earlier", Level: 2}

	state := newState(req)
	state.add(RoleAssistant, "hello")

	assert.Len(t, req.Messages, 1)
	assert.Equal(t, "earlier", state.Summary)
	assert.Equal(t, 2, state.Level)
}

func TestWithSystemPrompt(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
	}

	result := withSystemPrompt("lead", messages)

	assert.Len(t, result, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, result[0].Role)
	assert.Equal(t, "lead", textOf(t, result[0]))
	assert.Equal(t, llms.ChatMessageTypeSystem, result[1].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, result[2].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, result[3].Role)
	assert.Equal(t, "answer", textOf(t, result[3]))
}
