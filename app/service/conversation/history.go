package conversation

import (
	"github.com/elliotchance/pie/v2"
	"github.com/tmc/langchaingo/llms"
)

func newState(req Request) *State {
	return &State{
		Messages: append([]Message(nil), req.Messages...),
		Summary:  req.Summary,
		Level:    req.Level,
	}
}

// needsSummary reports whether the log must be compressed before the next reply.
func (s *State) needsSummary(threshold int) bool {
	return len(s.Messages) > threshold
}

// truncate keeps the last keep messages in their original order.
func (s *State) truncate(keep int) {
	if len(s.Messages) <= keep {
		return
	}

	s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-keep:]...)
}

func (s *State) add(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:    role,
		Content: content,
	})
}

func (s *State) lastReply() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content, true
		}
	}

	return "", false
}

func (s *State) snapshot() []Message {
	return append([]Message(nil), s.Messages...)
}

func withSystemPrompt(prompt string, messages []Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages)+1)
	result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, prompt))

	return append(result, pie.Map(messages, toMessageContent)...)
}

func toMessageContent(msg Message) llms.MessageContent {
	return llms.TextParts(roleType(msg.Role), msg.Content)
}

func roleType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
