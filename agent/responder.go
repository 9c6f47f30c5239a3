package agent

import (
	"context"
	"fmt"
	"strings"

	"twinkit/core"
)

// ResponderConfig controls reply generation.
type ResponderConfig struct {
	Model       string
	Temperature float32
	TopK        int
	GraphDepth  int
	Drift       DriftConfig
}

// DefaultResponderConfig returns the generation policy used in production.
func DefaultResponderConfig() ResponderConfig {
	return ResponderConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.5,
		TopK:        5,
		GraphDepth:  1,
		Drift:       DefaultDriftConfig(),
	}
}

// ResponseGenerator produces in-character replies: it retrieves relevant
// memories and graph context, assembles the persona prompt, calls the chat
// backend, and records the exchange back into memory.
type ResponseGenerator struct {
	chat   core.ChatClient
	styles *StyleLoader
	config ResponderConfig
	logger *core.Logger
}

// NewResponseGenerator wires the chat backend and style transcripts.
func NewResponseGenerator(chat core.ChatClient, styles *StyleLoader, config ResponderConfig, logger *core.Logger) *ResponseGenerator {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.5
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.GraphDepth <= 0 {
		config.GraphDepth = 1
	}
	if styles == nil {
		styles = NewStyleLoader("transcripts")
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ResponseGenerator{
		chat:   chat,
		styles: styles,
		config: config,
		logger: logger.With(map[string]interface{}{"component": "responder"}),
	}
}

// GenerateResponse answers userMsg as the agent and appends the exchange to
// the agent's memory.
func (g *ResponseGenerator) GenerateResponse(ctx context.Context, a *Agent, userMsg string) (string, error) {
	relevant := strings.Join(a.Store.Retrieve(ctx, userMsg, g.config.TopK), "\n")
	graphInfo := strings.Join(a.Store.GraphContext(userMsg, g.config.GraphDepth), ", ")

	prompt := g.buildPrompt(a, userMsg, relevant, graphInfo)

	answer, err := g.chat.Chat(ctx, core.SystemMessage(prompt), core.ChatOptions{
		Model:       g.config.Model,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	reply := stripSpeakerPrefix(answer, a.Name)

	feedback := fmt.Sprintf("User: %s\n%s: %s", userMsg, a.Name, reply)
	if err := a.Store.AddMemory(ctx, feedback); err != nil {
		g.logger.Warn("failed to record exchange", "agent", a.Name, "error", err)
	}
	return reply, nil
}

// buildPrompt assembles the persona system prompt: identity, delivery rules,
// a corrective note when the agent is drifting into repetitive patterns,
// style transcript, retrieved memories, and graph context.
func (g *ResponseGenerator) buildPrompt(a *Agent, userMsg, relevant, graphInfo string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Personality: %s\n", a.Name, a.Personality)
	b.WriteString(
		"Speak naturally and conversationally. Keep responses concise and flowing. " +
			"Use fragments, statements, and natural pauses. Avoid ending every response with questions. " +
			"When you do ask questions, make them feel organic to the conversation. " +
			"Don't fixate on single topics - let conversations evolve naturally. " +
			"Respond like you would in a casual chat with a friend.\n")

	if fixation := DetectFixation(relevant, a.Name, g.config.Drift); fixation != "" {
		g.logger.Debug("fixation pattern detected", "agent", a.Name, "pattern", fixation)
		switch {
		case strings.Contains(fixation, "questions"):
			b.WriteString("IMPORTANT: You've been asking many questions lately. Try making statements, sharing thoughts, or responding more directly instead of always asking follow-ups.\n")
		case strings.Contains(fixation, "repeating phrases"):
			fmt.Fprintf(&b, "IMPORTANT: You've been %s. Vary your language and try expressing ideas differently.\n", fixation)
		case strings.Contains(fixation, "repetitive sentence structures"):
			b.WriteString("IMPORTANT: You've been using similar sentence patterns. Mix up your responses - use different sentence types, lengths, and styles.\n")
		case strings.Contains(fixation, "drilling down"):
			b.WriteString("IMPORTANT: You've been focusing intensely on the same topics. Try acknowledging what was said and naturally moving to related but different aspects.\n")
		default:
			fmt.Fprintf(&b, "IMPORTANT: You've been %s. Try to vary your conversational approach and let the discussion flow more naturally.\n", fixation)
		}
	}

	if transcript := g.styles.LoadTranscript(a.Name); transcript != "" {
		fmt.Fprintf(&b, "Example speech from transcript:\n%s\n\n", transcript)
	}

	fmt.Fprintf(&b, "Relevant memories:\n%s\n", relevant)
	fmt.Fprintf(&b, "Graph context: %s\n\n", graphInfo)
	fmt.Fprintf(&b, "User: %s\n%s:", userMsg, a.Name)
	return b.String()
}

// stripSpeakerPrefix drops a leading "Name:" echo some models prepend.
func stripSpeakerPrefix(answer, name string) string {
	cleaned := strings.TrimLeft(answer, " \t\n")
	prefix := name + ":"
	if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
		cleaned = strings.TrimLeft(cleaned[len(prefix):], " \t\n")
	}
	return cleaned
}
