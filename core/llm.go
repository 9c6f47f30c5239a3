package core

import "context"

type LLMMessageRole string

const (
	LLMMessageRoleUser      LLMMessageRole = "user"
	LLMMessageRoleAssistant LLMMessageRole = "assistant"
	LLMMessageRoleSystem    LLMMessageRole = "system"
)

// LLMMessage represents a message exchanged with the LLM.
type LLMMessage struct {
	Role    LLMMessageRole `json:"role"`    // Role of the message sender (user, assistant, system).
	Content string         `json:"content"` // Content of the message.
}

// ChatOptions bound a single chat completion call.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int // 0 means no explicit limit.
}

// ChatClient is the language-model backend contract. Implementations are
// expected to retry transient failures with backoff internally; callers treat
// a returned error as final.
type ChatClient interface {
	Chat(ctx context.Context, messages []LLMMessage, opts ChatOptions) (string, error)
}

// SystemMessage is a convenience constructor for single-prompt calls.
func SystemMessage(content string) []LLMMessage {
	return []LLMMessage{{Role: LLMMessageRoleSystem, Content: content}}
}
