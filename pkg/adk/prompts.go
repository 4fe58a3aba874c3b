package adk

import (
	_ "embed"
)

//go:embed prompts/system_prompt.md
var systemPrompt string

// GetSystemPrompt returns the system instruction sent with every request.
func GetSystemPrompt() string {
	return systemPrompt
}
