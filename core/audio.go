package core

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // 16-bit little-endian pulse-code modulation.
	ULAW                            // µ-law encoding format.
	ALAW                            // A-law encoding format.
)

// EncodingName returns the wire label used in stream event metadata.
func (f AudioEncodingFormat) EncodingName() string {
	switch f {
	case ULAW:
		return "ulaw"
	case ALAW:
		return "alaw"
	default:
		return "pcm_s16le"
	}
}

// AudioChunk is one contiguous block of synthesized audio.
type AudioChunk struct {
	Data       []byte              // Raw audio data.
	SampleRate int                 // Sample rate of the audio data.
	Channels   int                 // Number of audio channels.
	Format     AudioEncodingFormat // Encoding format of the audio data.
}

func (ac *AudioChunk) GetDurationInSeconds() float64 {
	if ac.SampleRate == 0 || ac.Channels == 0 {
		return 0.0
	}
	bytesPerSample := 2 // 16-bit samples
	if ac.Format == ULAW || ac.Format == ALAW {
		bytesPerSample = 1
	}
	totalSamples := len(ac.Data) / (bytesPerSample * ac.Channels)
	return float64(totalSamples) / float64(ac.SampleRate)
}
