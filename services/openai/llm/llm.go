// Package llm adapts the OpenAI chat completion API to the core.ChatClient
// interface used by the memory store and the response generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"twinkit/core"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds the configuration for the OpenAI chat service
type Config struct {
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	MaxRetries  int     `json:"max_retries"`
}

// OpenAIChatService implements core.ChatClient using OpenAI
type OpenAIChatService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// NewOpenAIChatService creates a new chat service with the provided config.
func NewOpenAIChatService(config Config, logger *core.Logger) (*OpenAIChatService, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIChatService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(map[string]interface{}{"component": "openai_chat"}),
	}, nil
}

// Chat sends the messages and returns the trimmed assistant reply. Options
// override the configured model, temperature and token limit per call.
func (s *OpenAIChatService) Chat(ctx context.Context, messages []core.LLMMessage, opts core.ChatOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = s.config.Model
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = s.config.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.config.MaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * 500 * time.Millisecond
			s.logger.Infof("retrying chat completion (attempt %d/%d) in %v after error: %v",
				attempt+1, s.config.MaxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("chat completion returned no choices")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("chat completion failed after %d attempts: %w", s.config.MaxRetries, lastErr)
}

func convertMessages(messages []core.LLMMessage) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Content,
		})
	}
	return converted
}

func convertRole(role core.LLMMessageRole) string {
	switch role {
	case core.LLMMessageRoleAssistant:
		return openai.ChatMessageRoleAssistant
	case core.LLMMessageRoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
