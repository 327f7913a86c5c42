package conversation

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// Request is the input of a single chat run.
type Request struct {
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
	Problem  string    `json:"problem" validate:"required"`
	Summary  string    `json:"summary"`
	Level    int       `json:"level" validate:"gte=0"`
}

// Result of a chat run. Messages always ends with an assistant reply: when the run is
// Exhausted the last failed execution is not turned into a correction.
type Result struct {
	Response    string    `json:"response"`
	Summary     string    `json:"summary"`
	Messages    []Message `json:"messages"`
	Reflections int       `json:"reflections"`
	Exhausted   bool      `json:"exhausted"`
}

// State is owned by one run and mutated in place by every step.
type State struct {
	Messages []Message
	Summary  string
	Level    int
}

// Decision is the judge verdict on the latest reply: NoCode or ExtractCode.
type Decision interface {
	isDecision()
}

type NoCode struct{}

type ExtractCode struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (NoCode) isDecision()      {}
func (ExtractCode) isDecision() {}
