// Package agent ties an identity (name, personality, voice) to its memory
// store and generates in-character replies from retrieved context.
package agent

import "twinkit/memory"

// Agent is one digital twin.
type Agent struct {
	Name        string
	Personality string
	VoiceID     string
	Store       *memory.Store
}

// NewAgent binds an identity to its memory store.
func NewAgent(name, personality, voiceID string, store *memory.Store) *Agent {
	return &Agent{
		Name:        name,
		Personality: personality,
		VoiceID:     voiceID,
		Store:       store,
	}
}
