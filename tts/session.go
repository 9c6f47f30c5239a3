package tts

import (
	"context"

	"twinkit/core"
)

// StreamFormat describes the audio a VoiceSession produces.
type StreamFormat struct {
	Encoding   core.AudioEncodingFormat
	SampleRate int
	Channels   int
}

// VoiceSession is a persistent synthesis connection for a single voice.
// Connect is idempotent; implementations reconnect lazily when the backend
// drops the connection between generations. StreamText sends the text,
// signals end of input, and writes raw audio chunks to out until the
// generation finishes; it must not send on out after returning and must stop
// promptly when ctx is cancelled.
type VoiceSession interface {
	Connect(ctx context.Context) error
	Format() StreamFormat
	StreamText(ctx context.Context, text string, out chan<- []byte) error
	Close() error
}

// SessionFactory builds a VoiceSession for a voice id. The Manager pools the
// result, so factories should not share connections between voices.
type SessionFactory func(voiceID string) VoiceSession
