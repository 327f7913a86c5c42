package conversation

import (
	_ "embed"
)

//go:embed prompts/beginner.txt
var beginnerPrompt string

//go:embed prompts/intermediate.txt
var intermediatePrompt string

//go:embed prompts/advanced.txt
var advancedPrompt string

//go:embed prompts/judge.txt
var judgePrompt string

// LevelCount is the number of difficulty levels, valid levels are [0, LevelCount).
const LevelCount = 3

func systemPrompt(level int) (string, bool) {
	switch level {
	case 0:
		return beginnerPrompt, true
	case 1:
		return intermediatePrompt, true
	case 2:
		return advancedPrompt, true
	default:
		return "", false
	}
}
