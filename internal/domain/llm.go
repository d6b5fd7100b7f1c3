package domain

import (
	"context"
	"encoding/json"
)

// Role of a prompt message.
type Role string

// Prompt roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single prompt message.
type Message struct {
	Role    Role
	Content string
}

// Prompt is an ordered list of messages sent to the language model.
type Prompt struct {
	Messages []Message
}

// NewPrompt builds a system + user prompt.
func NewPrompt(system, user string) Prompt {
	return Prompt{Messages: []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}}
}

// Append returns a copy of the prompt with extra messages.
func (p Prompt) Append(msgs ...Message) Prompt {
	out := make([]Message, 0, len(p.Messages)+len(msgs))
	out = append(out, p.Messages...)
	out = append(out, msgs...)
	return Prompt{Messages: out}
}

// Schema constrains structured output to a JSON schema document.
type Schema struct {
	Name       string
	Definition json.RawMessage
}

// Completion is a language model reply.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// LanguageModel is the hosted model capability. Structured output and free text are
// distinct modes: Structured must only return content conforming to the schema.
type LanguageModel interface {
	Structured(ctx context.Context, prompt Prompt, schema Schema) (Completion, error)
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}
