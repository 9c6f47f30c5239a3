// Package audio provides PCM helpers for the streaming pipeline: G.711
// telephony encodings, WAV framing for debugging dumps, and transport frame
// slicing.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/zaf/g711"
)

// DefaultFrameSize is the transport frame size in bytes for 22.05 kHz mono
// s16le audio: 100ms per frame.
const DefaultFrameSize = 4410

// PCMToULaw converts a single 16-bit PCM sample to 8-bit µ-law
func PCMToULaw(sample int16) byte {
	return g711.EncodeUlawFrame(sample)
}

// ULawToPCM converts a single 8-bit µ-law sample to 16-bit PCM
func ULawToPCM(u byte) int16 {
	return g711.DecodeUlawFrame(u)
}

// PCMBytesToULaw converts 16-bit little-endian PCM bytes to µ-law bytes
func PCMBytesToULaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM data must have even length (16-bit samples)")
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawBytesToPCM converts µ-law bytes to 16-bit little-endian PCM bytes
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// PCMToALaw converts a single 16-bit PCM sample to 8-bit A-law
func PCMToALaw(sample int16) byte {
	return g711.EncodeAlawFrame(sample)
}

// ALawToPCM converts a single 8-bit A-law sample to 16-bit PCM
func ALawToPCM(a byte) int16 {
	return g711.DecodeAlawFrame(a)
}

// PCMBytesToALaw converts 16-bit little-endian PCM bytes to A-law bytes
func PCMBytesToALaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM data must have even length (16-bit samples)")
	}
	return g711.EncodeAlaw(pcm), nil
}

// ALawBytesToPCM converts A-law bytes to 16-bit little-endian PCM bytes
func ALawBytesToPCM(aBytes []byte) []byte {
	return g711.DecodeAlaw(aBytes)
}

// ValidatePCMData validates PCM byte array for basic integrity
func ValidatePCMData(pcm []byte, numChannels int) error {
	if len(pcm) == 0 {
		return errors.New("PCM data is empty")
	}
	if len(pcm)%2 != 0 {
		return errors.New("PCM data must have even length (16-bit samples)")
	}
	if numChannels <= 0 {
		return errors.New("invalid number of channels")
	}
	if len(pcm)%(2*numChannels) != 0 {
		return errors.New("PCM data length doesn't match channel count")
	}
	return nil
}

// GetPCMSampleCount returns number of 16-bit samples in PCM data
func GetPCMSampleCount(pcm []byte) int {
	if len(pcm)%2 != 0 {
		return 0
	}
	return len(pcm) / 2
}

// GetPCMDurationSeconds returns duration in seconds
func GetPCMDurationSeconds(pcm []byte, numChannels, sampleRate int) (float64, error) {
	if err := ValidatePCMData(pcm, numChannels); err != nil {
		return 0, err
	}
	if sampleRate <= 0 {
		return 0, errors.New("invalid sample rate")
	}

	frameCount := GetPCMSampleCount(pcm) / numChannels
	return float64(frameCount) / float64(sampleRate), nil
}

// SliceFrames splits PCM bytes into transport frames of at most frameSize
// bytes. A non-positive frameSize falls back to DefaultFrameSize. The last
// frame carries the remainder and may be shorter.
func SliceFrames(pcm []byte, frameSize int) [][]byte {
	if len(pcm) == 0 {
		return nil
	}
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}

	frames := make([][]byte, 0, (len(pcm)+frameSize-1)/frameSize)
	for start := 0; start < len(pcm); start += frameSize {
		end := start + frameSize
		if end > len(pcm) {
			end = len(pcm)
		}
		frames = append(frames, pcm[start:end])
	}
	return frames
}

// PCMBytesToWavBytes wraps PCM []byte into WAV []byte (16-bit little endian)
func PCMBytesToWavBytes(pcm []byte, numChannels, sampleRate int) ([]byte, error) {
	if err := ValidatePCMData(pcm, numChannels); err != nil {
		return nil, err
	}
	if numChannels > 2 {
		return nil, errors.New("only mono (1) or stereo (2) channels supported")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	const (
		bitsPerSample  = 16
		audioFormatPCM = 1
		subchunk1Size  = 16
	)

	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)
	fileSize := 36 + dataSize

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(subchunk1Size))
	binary.Write(&buf, binary.LittleEndian, uint16(audioFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes(), nil
}
