// Package factories assembles configured twin runtimes from a single
// settings document, mirroring how deployments ship one settings.json
// per install.
package factories

import (
	"fmt"
	"os"

	"twinkit/memory"
	elevenlabs "twinkit/services/elevenlabs/tts"
	"twinkit/services/openai/embedding"
	"twinkit/services/openai/llm"

	"github.com/bytedance/sonic"
)

// AgentConfig describes one twin persona.
type AgentConfig struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
	VoiceID     string `json:"voice_id"`
	SeedMode    string `json:"seed_mode"`
}

// MemoryConfig controls persistence and rollup policy for agent memory.
type MemoryConfig struct {
	Dir           string `json:"dir"`
	MaxRaw        int    `json:"max_raw"`
	Chunk         int    `json:"chunk"`
	SyncEvery     int    `json:"sync_every"`
	SeedDB        string `json:"seed_db"`
	TranscriptDir string `json:"transcript_dir"`
}

// SettingsConfig is the root configuration document.
type SettingsConfig struct {
	Agents    []AgentConfig                `json:"agents"`
	LLM       llm.Config                   `json:"llm"`
	Embedding embedding.Config             `json:"embedding"`
	TTS       elevenlabs.RealtimeTTSConfig `json:"tts"`
	Memory    MemoryConfig                 `json:"memory"`
	Mem0      memory.Mem0Config            `json:"mem0"`
}

// DefaultSettingsConfig returns a runnable configuration with the stock
// personas. API keys are expected to arrive via InjectAPIKeys.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Agents: []AgentConfig{
			{Name: "Mateo", Personality: "Musician and researcher from Quito fascinated by HCI and Buddhism.", VoiceID: "EXAVITQu4vr4xnSDxMaL"},
			{Name: "Dünya", Personality: "Researcher focused on digital twins and human augmentation.", VoiceID: "ThT5KcBeYPX3keUQqHPh"},
		},
		LLM:       llm.Config{Model: "gpt-4o-mini", Temperature: 0.5},
		Embedding: embedding.Config{},
		TTS:       elevenlabs.RealtimeTTSConfig{},
		Memory: MemoryConfig{
			Dir:           "memories",
			SeedDB:        "seed_data.db",
			TranscriptDir: "transcripts",
		},
	}
}

// SettingsConfigFromJSON parses settings over the defaults, so absent
// fields keep their default values.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	config := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("settings: parse: %w", err)
	}
	return config, nil
}

// SettingsConfigFromFile reads and parses a settings file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %s: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// APIKeys carries credentials sourced from the environment.
type APIKeys struct {
	OpenAI     string
	ElevenLabs string
	Mem0       string
}

// InjectAPIKeys fills in credentials the settings file left empty. Keys
// already present in the file win.
func InjectAPIKeys(config *SettingsConfig, keys APIKeys) {
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = keys.OpenAI
	}
	if config.Embedding.APIKey == "" {
		config.Embedding.APIKey = keys.OpenAI
	}
	if config.TTS.APIKey == "" {
		config.TTS.APIKey = keys.ElevenLabs
	}
	if config.Mem0.APIKey == "" {
		config.Mem0.APIKey = keys.Mem0
	}
}
