package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodingName(t *testing.T) {
	assert.Equal(t, "pcm_s16le", PCM.EncodingName())
	assert.Equal(t, "ulaw", ULAW.EncodingName())
	assert.Equal(t, "alaw", ALAW.EncodingName())
}

func TestAudioChunkDuration(t *testing.T) {
	pcm := &AudioChunk{Data: make([]byte, 44100), SampleRate: 22050, Channels: 1, Format: PCM}
	assert.InDelta(t, 1.0, pcm.GetDurationInSeconds(), 1e-9)

	// One byte per sample for companded formats.
	ulaw := &AudioChunk{Data: make([]byte, 22050), SampleRate: 22050, Channels: 1, Format: ULAW}
	assert.InDelta(t, 1.0, ulaw.GetDurationInSeconds(), 1e-9)

	stereo := &AudioChunk{Data: make([]byte, 44100), SampleRate: 22050, Channels: 2, Format: PCM}
	assert.InDelta(t, 0.5, stereo.GetDurationInSeconds(), 1e-9)

	empty := &AudioChunk{}
	assert.Zero(t, empty.GetDurationInSeconds())
}
