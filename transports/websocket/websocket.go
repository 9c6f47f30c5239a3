// Package websocket forwards TTS stream events to a browser or app client
// over a WebSocket connection. Control events travel as JSON text frames;
// audio payloads are sliced into fixed-size binary frames announced by a JSON
// header.
package websocket

import (
	"fmt"
	"sync"

	"twinkit/core"
	"twinkit/tts"
	"twinkit/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// ForwarderConfig controls how audio payloads hit the wire.
type ForwarderConfig struct {
	// FrameSize is the maximum binary frame size in bytes; defaults to
	// audio.DefaultFrameSize (100ms of 22.05 kHz mono s16le).
	FrameSize int

	// ULawOutput re-encodes PCM payloads to 8-bit µ-law before sending,
	// halving bandwidth for telephony-grade clients.
	ULawOutput bool
}

// StreamForwarder writes one job's stream events to a WebSocket client.
type StreamForwarder struct {
	conn   *websocket.Conn
	config ForwarderConfig
	logger *core.Logger

	mu sync.Mutex // protects writes
}

// audioHeader announces the binary frames that follow one audio_data event.
type audioHeader struct {
	Type       tts.EventType `json:"type"`
	ID         string        `json:"id"`
	ChunkIndex int           `json:"chunk_index"`
	Frames     int           `json:"frames"`
	Size       int           `json:"size"`
}

// NewStreamForwarder wraps an already-accepted connection.
func NewStreamForwarder(conn *websocket.Conn, config ForwarderConfig, logger *core.Logger) *StreamForwarder {
	if config.FrameSize <= 0 {
		config.FrameSize = audio.DefaultFrameSize
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &StreamForwarder{
		conn:   conn,
		config: config,
		logger: logger.With(map[string]interface{}{"component": "ws_forwarder"}),
	}
}

// Forward consumes events until the channel closes. On a write error the
// remaining events are drained so the producing job can still finish, and the
// first error is returned.
func (f *StreamForwarder) Forward(events <-chan tts.StreamEvent) error {
	var firstErr error
	for ev := range events {
		if firstErr != nil {
			continue
		}
		if err := f.send(ev); err != nil {
			f.logger.Warn("failed to forward stream event", "type", ev.Type, "error", err)
			firstErr = err
		}
	}
	return firstErr
}

func (f *StreamForwarder) send(ev tts.StreamEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ev.Type != tts.EventAudioData {
		if ev.Type == tts.EventAudioStart && f.config.ULawOutput {
			ev.Encoding = core.ULAW.EncodingName()
		}
		return f.writeJSON(ev)
	}

	payload := ev.Data
	if f.config.ULawOutput {
		encoded, err := audio.PCMBytesToULaw(payload)
		if err != nil {
			return fmt.Errorf("failed to re-encode audio chunk: %w", err)
		}
		payload = encoded
	}

	frames := audio.SliceFrames(payload, f.config.FrameSize)
	header := audioHeader{
		Type:       tts.EventAudioData,
		ID:         ev.ID,
		ChunkIndex: ev.ChunkIndex,
		Frames:     len(frames),
		Size:       len(payload),
	}
	if err := f.writeJSON(header); err != nil {
		return err
	}
	for _, frame := range frames {
		if err := f.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return err
		}
	}
	return nil
}

func (f *StreamForwarder) writeJSON(msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return f.conn.WriteMessage(websocket.TextMessage, data)
}
