package elevenlabs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"twinkit/core"
	"twinkit/tts"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// SessionState tracks where a realtime session is in its connection
// lifecycle. Every stream outcome lands back in Disconnected rather than
// Configured: the stream-input backend closes the socket after end-of-input,
// so the next StreamText reconnects lazily instead of reusing a socket the
// server has already torn down.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConfigured
	StateStreaming
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// RealtimeTTSConfig holds configuration for the ElevenLabs realtime TTS API
type RealtimeTTSConfig struct {
	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url"`
	VoiceID      string `json:"voice_id"`
	OutputFormat string `json:"output_format"`
	SampleRate   int    `json:"sample_rate"`

	// Voice settings
	Speed           float64 `json:"speed"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`

	// ReadTimeout bounds each wait for a backend frame so a stalled
	// generation ends the stream instead of hanging it.
	ReadTimeout time.Duration `json:"read_timeout"`
}

// RealtimeSession is a persistent WebSocket connection to the ElevenLabs
// realtime synthesis API for one voice. The backend closes the socket after
// each generation completes, so the session reconnects lazily on the next
// use.
type RealtimeSession struct {
	config RealtimeTTSConfig
	logger *core.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	state SessionState
}

// Client messages
type (
	// Sent once per connection to configure voice settings and output.
	elConfigMessage struct {
		Text          string          `json:"text"`
		VoiceSettings elVoiceSettings `json:"voice_settings"`
		XiAPIKey      string          `json:"xi_api_key"`
	}

	elVoiceSettings struct {
		Speed           float64 `json:"speed"`
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}

	// Text chunk; an empty Text signals end of input.
	elTextMessage struct {
		Text                 string `json:"text"`
		TryTriggerGeneration bool   `json:"try_trigger_generation,omitempty"`
	}
)

// Server message: base64 audio, final marker, or an error.
type elAudioMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewRealtimeSession creates a realtime session for the given voice with the
// provided config.
func NewRealtimeSession(config RealtimeTTSConfig, logger *core.Logger) *RealtimeSession {
	if config.BaseURL == "" {
		config.BaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "pcm_22050"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}
	if config.Speed == 0 {
		config.Speed = 1
	}
	if config.Stability == 0 {
		config.Stability = 0.55
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.8
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}

	if logger == nil {
		logger = core.GetLogger()
	}
	return &RealtimeSession{
		config: config,
		logger: logger.With(map[string]interface{}{"voice_id": config.VoiceID}),
	}
}

// NewSessionFactory returns a factory the TTS manager can use to build one
// RealtimeSession per voice from a shared config.
func NewSessionFactory(config RealtimeTTSConfig, logger *core.Logger) tts.SessionFactory {
	return func(voiceID string) tts.VoiceSession {
		cfg := config
		cfg.VoiceID = voiceID
		return NewRealtimeSession(cfg, logger)
	}
}

// State returns the current lifecycle state.
func (s *RealtimeSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Format describes the PCM stream this session produces.
func (s *RealtimeSession) Format() tts.StreamFormat {
	return tts.StreamFormat{
		Encoding:   core.PCM,
		SampleRate: s.config.SampleRate,
		Channels:   1,
	}
}

// Connect establishes and configures the WebSocket connection. It is a no-op
// when already connected.
func (s *RealtimeSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *RealtimeSession) connectLocked(ctx context.Context) error {
	if s.conn != nil && s.state != StateDisconnected {
		return nil
	}
	if s.config.APIKey == "" {
		return errors.New("ElevenLabs API key is required")
	}

	s.state = StateConnecting
	conn, err := s.establishConnection(ctx)
	if err != nil {
		s.state = StateDisconnected
		return err
	}

	config := elConfigMessage{
		Text: " ",
		VoiceSettings: elVoiceSettings{
			Speed:           s.config.Speed,
			Stability:       s.config.Stability,
			SimilarityBoost: s.config.SimilarityBoost,
		},
		XiAPIKey: s.config.APIKey,
	}
	if err := sendJSON(conn, config); err != nil {
		conn.Close()
		s.state = StateDisconnected
		return fmt.Errorf("failed to send session config: %w", err)
	}

	s.conn = conn
	s.state = StateConfigured
	s.logger.Debug("realtime session configured", "output_format", s.config.OutputFormat)
	return nil
}

// establishConnection dials the realtime endpoint with retry logic
func (s *RealtimeSession) establishConnection(ctx context.Context) (*websocket.Conn, error) {
	const maxRetries = 3
	const baseDelay = 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(attempt)
			s.logger.Infof("ElevenLabs TTS: retrying connection (attempt %d/%d) in %v after error: %v",
				attempt+1, maxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		conn, err := s.dialConnection(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, lastErr)
}

// dialConnection performs a single WebSocket dial to ElevenLabs
func (s *RealtimeSession) dialConnection(ctx context.Context) (*websocket.Conn, error) {
	url := fmt.Sprintf("%s/%s/stream-input?output_format=%s",
		s.config.BaseURL,
		s.config.VoiceID,
		s.config.OutputFormat,
	)

	headers := map[string][]string{
		"xi-api-key": {s.config.APIKey},
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// StreamText sends text for synthesis followed by the end-of-input signal,
// then writes raw PCM chunks to out until the generation finishes. A read
// timeout or clean close ends the stream gracefully; the session is left
// disconnected afterwards and reconnects on the next call.
func (s *RealtimeSession) StreamText(ctx context.Context, text string, out chan<- []byte) error {
	s.mu.Lock()
	if err := s.connectLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	conn := s.conn
	s.state = StateStreaming

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := sendJSON(conn, elTextMessage{Text: text, TryTriggerGeneration: true}); err != nil {
		s.disconnectLocked()
		s.mu.Unlock()
		return fmt.Errorf("failed to send text: %w", err)
	}
	if err := sendJSON(conn, elTextMessage{Text: ""}); err != nil {
		s.disconnectLocked()
		s.mu.Unlock()
		return fmt.Errorf("failed to send end of input: %w", err)
	}
	s.mu.Unlock()

	// Wake a blocked read as soon as the job is cancelled.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-watchDone:
		}
	}()

	chunkCount := 0
	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			s.disconnect()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("read timed out, ending stream", "chunks", chunkCount)
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.logger.Debug("stream complete, connection closed", "chunks", chunkCount)
				return nil
			}
			return fmt.Errorf("stream truncated: %w", err)
		}

		switch messageType {
		case websocket.BinaryMessage:
			if len(message) == 0 {
				continue
			}
			if !deliver(ctx, out, message) {
				s.disconnect()
				return ctx.Err()
			}
			chunkCount++
		case websocket.TextMessage:
			done, err := s.handleTextMessage(ctx, message, out, &chunkCount)
			if err != nil {
				s.disconnect()
				return err
			}
			if done {
				s.disconnect()
				s.logger.Debug("stream complete", "chunks", chunkCount)
				return nil
			}
		}
	}
}

// handleTextMessage decodes one JSON frame; returns done=true on isFinal.
func (s *RealtimeSession) handleTextMessage(ctx context.Context, message []byte, out chan<- []byte, chunkCount *int) (bool, error) {
	var msg elAudioMessage
	if err := sonic.Unmarshal(message, &msg); err != nil {
		s.logger.Warn("failed to parse backend message", "error", err)
		return false, nil
	}

	if msg.Error != "" {
		if msg.Message != "" {
			return false, fmt.Errorf("ElevenLabs error: %s: %s", msg.Error, msg.Message)
		}
		return false, fmt.Errorf("ElevenLabs error: %s", msg.Error)
	}

	if msg.Audio != "" {
		audio, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			s.logger.Warn("failed to decode audio payload", "error", err)
		} else if len(audio) > 0 {
			if !deliver(ctx, out, audio) {
				return false, ctx.Err()
			}
			*chunkCount++
		}
	}

	return msg.IsFinal, nil
}

// Close shuts the connection down; the session can be reused via Connect.
func (s *RealtimeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
	return nil
}

func (s *RealtimeSession) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

// disconnectLocked closes the connection (must be called with lock held)
func (s *RealtimeSession) disconnectLocked() {
	if s.conn != nil {
		s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
	}
	s.state = StateDisconnected
}

func deliver(ctx context.Context, out chan<- []byte, data []byte) bool {
	chunk := make([]byte, len(data))
	copy(chunk, data)
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// sendJSON marshals and sends a JSON message over the WebSocket
func sendJSON(conn *websocket.Conn, msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
