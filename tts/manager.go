package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"twinkit/core"

	"github.com/google/uuid"
)

// Manager pools voice sessions and tracks streaming jobs so they can be
// cancelled mid-stream. Sessions are keyed by voice id and reused across
// jobs; jobs are ephemeral and removed once their terminal event is sent.
type Manager struct {
	factory SessionFactory
	logger  *core.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	jobs     map[string]*job
	closed   bool
}

// sessionEntry serializes jobs that share one voice connection.
type sessionEntry struct {
	mu      sync.Mutex
	session VoiceSession
}

type job struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewManager creates a Manager that builds sessions with factory.
func NewManager(factory SessionFactory, logger *core.Logger) *Manager {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Manager{
		factory:  factory,
		logger:   logger.With(map[string]interface{}{"component": "tts_manager"}),
		sessions: make(map[string]*sessionEntry),
		jobs:     make(map[string]*job),
	}
}

// GetOrCreateSession returns the pooled session for voiceID, creating and
// connecting it on first use. Useful for warming up a voice before the first
// stream request.
func (m *Manager) GetOrCreateSession(ctx context.Context, voiceID string) (VoiceSession, error) {
	entry, err := m.entryFor(voiceID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := entry.session.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect session for voice %s: %w", voiceID, err)
	}
	return entry.session, nil
}

// Stream synthesizes text with the voice's pooled session and returns the
// event channel plus the job id (generated when jobID is empty). The channel
// is unbuffered and always ends with exactly one audio_end event, whether the
// stream completed, failed, or was cancelled; the caller must consume it
// until that terminal event.
func (m *Manager) Stream(ctx context.Context, text, voiceID, jobID string) (<-chan StreamEvent, string) {
	if jobID == "" {
		jobID = uuid.New().String()
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j := &job{cancel: cancel}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		events := make(chan StreamEvent)
		go func() {
			defer close(events)
			events <- StreamEvent{Type: EventError, ID: jobID, Error: "manager is closed"}
			events <- StreamEvent{Type: EventAudioEnd, ID: jobID}
		}()
		return events, jobID
	}
	m.jobs[jobID] = j
	m.mu.Unlock()

	events := make(chan StreamEvent)
	go m.runJob(jobCtx, j, jobID, text, voiceID, events)
	return events, jobID
}

// Cancel flags the job so its stream breaks at the next chunk boundary.
// Returns whether the job was tracked. Cancellation is cooperative: at most
// one more audio_data event may be delivered before audio_end.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	j.cancelled.Store(true)
	j.cancel()
	m.logger.Info("cancelled streaming job", "job_id", jobID)
	return true
}

// CloseAll cancels every tracked job and closes every pooled session. The
// manager rejects new streams afterwards.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	jobs := m.jobs
	sessions := m.sessions
	m.jobs = make(map[string]*job)
	m.sessions = make(map[string]*sessionEntry)
	m.mu.Unlock()

	for id, j := range jobs {
		j.cancelled.Store(true)
		j.cancel()
		m.logger.Debug("cancelled job during shutdown", "job_id", id)
	}
	for voiceID, entry := range sessions {
		entry.mu.Lock()
		if err := entry.session.Close(); err != nil {
			m.logger.Warn("failed to close session", "voice_id", voiceID, "error", err)
		}
		entry.mu.Unlock()
	}
	m.logger.Info("closed all TTS sessions")
}

func (m *Manager) entryFor(voiceID string) (*sessionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("manager is closed")
	}
	if entry, ok := m.sessions[voiceID]; ok {
		return entry, nil
	}
	entry := &sessionEntry{session: m.factory(voiceID)}
	m.sessions[voiceID] = entry
	return entry, nil
}

// runJob drives one streaming job and owns the events channel. The ordering
// contract is strict: optional audio_start, zero or more audio_data, optional
// error, then exactly one audio_end followed by channel close.
func (m *Manager) runJob(ctx context.Context, j *job, jobID, text, voiceID string, events chan<- StreamEvent) {
	defer func() {
		// Deregister before the terminal event so Cancel cannot observe a
		// job whose audio_end has already been delivered.
		m.mu.Lock()
		delete(m.jobs, jobID)
		m.mu.Unlock()
		j.cancel()

		events <- StreamEvent{Type: EventAudioEnd, ID: jobID}
		close(events)
	}()

	entry, err := m.entryFor(voiceID)
	if err != nil {
		m.emitError(ctx, events, j, jobID, err)
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.session.Connect(ctx); err != nil {
		m.emitError(ctx, events, j, jobID, fmt.Errorf("failed to connect session for voice %s: %w", voiceID, err))
		return
	}

	format := entry.session.Format()
	start := StreamEvent{
		Type:       EventAudioStart,
		ID:         jobID,
		Encoding:   format.Encoding.EncodingName(),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}
	select {
	case events <- start:
	case <-ctx.Done():
		return
	}

	raw := make(chan []byte)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- entry.session.StreamText(ctx, text, raw)
		close(raw)
	}()

	chunkIndex := 0
	for chunk := range raw {
		if j.cancelled.Load() {
			break
		}
		ev := StreamEvent{
			Type:       EventAudioData,
			ID:         jobID,
			Data:       chunk,
			ChunkIndex: chunkIndex,
		}
		select {
		case events <- ev:
			chunkIndex++
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	// Let the producer goroutine finish even when we broke out early.
	j.cancel()
	for range raw {
	}

	if err := <-streamErr; err != nil && !j.cancelled.Load() && !errors.Is(err, context.Canceled) {
		m.emitError(ctx, events, j, jobID, err)
		return
	}
	m.logger.Debug("streaming job finished", "job_id", jobID, "chunks", chunkIndex)
}

func (m *Manager) emitError(ctx context.Context, events chan<- StreamEvent, j *job, jobID string, err error) {
	m.logger.Warn("streaming job failed", "job_id", jobID, "error", err)
	if j.cancelled.Load() {
		return
	}
	select {
	case events <- StreamEvent{Type: EventError, ID: jobID, Error: err.Error()}:
	case <-ctx.Done():
	}
}
