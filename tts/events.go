package tts

// EventType identifies the kind of a StreamEvent.
type EventType string

const (
	EventAudioStart EventType = "audio_start"
	EventAudioData  EventType = "audio_data"
	EventAudioEnd   EventType = "audio_end"
	EventError      EventType = "error"
)

// StreamEvent is one framed event produced by a streaming job. The first
// event of a healthy stream is audio_start carrying the encoding metadata,
// followed by audio_data events with an incrementing ChunkIndex, and every
// stream terminates with exactly one audio_end.
type StreamEvent struct {
	Type       EventType `json:"type"`
	ID         string    `json:"id"`
	Encoding   string    `json:"encoding,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
	Channels   int       `json:"channels,omitempty"`
	Data       []byte    `json:"data,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
	Error      string    `json:"error,omitempty"`
}
