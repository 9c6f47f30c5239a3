package factories

import (
	"context"
	"fmt"

	"twinkit/agent"
	"twinkit/core"
	"twinkit/memory"
	"twinkit/seeds"
	elevenlabs "twinkit/services/elevenlabs/tts"
	"twinkit/services/openai/embedding"
	"twinkit/services/openai/llm"
	"twinkit/tts"
)

// NewChatService builds the chat client, or nil when no OpenAI key is
// configured.
func NewChatService(config SettingsConfig, logger *core.Logger) (core.ChatClient, error) {
	if config.LLM.APIKey == "" {
		return nil, nil
	}
	return llm.NewOpenAIChatService(config.LLM, logger)
}

// NewEmbedder builds the embedding client. Without an OpenAI key it falls
// back to the deterministic stub so retrieval still works offline.
func NewEmbedder(config SettingsConfig, logger *core.Logger) (core.Embedder, error) {
	if config.Embedding.APIKey == "" {
		if logger == nil {
			logger = core.GetLogger()
		}
		logger.Warn("no OpenAI key configured, using stub embedder")
		return core.NewStubEmbedder(64), nil
	}
	return embedding.NewOpenAIEmbedder(config.Embedding, logger)
}

// NewMemoryStore builds and loads the memory store for one agent. Fresh
// stores are seeded from the seed database when one is configured.
func NewMemoryStore(ctx context.Context, cfg AgentConfig, settings SettingsConfig, embedder core.Embedder, chat core.ChatClient, logger *core.Logger) (*memory.Store, error) {
	index := memory.NewEmbeddingIndex(embedder, logger)

	var disk memory.Persister
	if settings.Memory.Dir != "" {
		disk = memory.NewFileStore(settings.Memory.Dir)
	}

	var remote memory.RemoteBackend
	if settings.Mem0.APIKey != "" {
		remote = memory.NewMem0Backend(settings.Mem0, logger)
	}

	store := memory.NewStore(cfg.Name, memory.Config{
		MaxRaw:    settings.Memory.MaxRaw,
		Chunk:     settings.Memory.Chunk,
		SyncEvery: settings.Memory.SyncEvery,
	}, index, chat, disk, remote, logger)

	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	raw, summaries := store.Counts()
	if raw+summaries == 0 && settings.Memory.SeedDB != "" {
		mode := cfg.SeedMode
		if mode == "" {
			mode = seeds.ModeCombined
		}
		texts, err := seeds.LoadSeedMemories(settings.Memory.SeedDB, cfg.Name, mode)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", cfg.Name, err)
		}
		for _, text := range texts {
			if err := store.AddMemory(ctx, text); err != nil {
				return nil, fmt.Errorf("seed %q: %w", cfg.Name, err)
			}
		}
	}
	return store, nil
}

// NewAgents builds every configured agent with its own memory store.
func NewAgents(ctx context.Context, settings SettingsConfig, embedder core.Embedder, chat core.ChatClient, logger *core.Logger) ([]*agent.Agent, error) {
	agents := make([]*agent.Agent, 0, len(settings.Agents))
	for _, cfg := range settings.Agents {
		store, err := NewMemoryStore(ctx, cfg, settings, embedder, chat, logger)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent.NewAgent(cfg.Name, cfg.Personality, cfg.VoiceID, store))
	}
	return agents, nil
}

// NewResponseGenerator builds the reply pipeline with the configured
// transcript directory.
func NewResponseGenerator(settings SettingsConfig, chat core.ChatClient, logger *core.Logger) *agent.ResponseGenerator {
	styles := agent.NewStyleLoader(settings.Memory.TranscriptDir)
	config := agent.DefaultResponderConfig()
	config.Model = settings.LLM.Model
	config.Temperature = settings.LLM.Temperature
	return agent.NewResponseGenerator(chat, styles, config, logger)
}

// NewTTSManager builds the speech pipeline, or nil when no ElevenLabs key
// is configured.
func NewTTSManager(settings SettingsConfig, logger *core.Logger) *tts.Manager {
	if settings.TTS.APIKey == "" {
		return nil
	}
	factory := elevenlabs.NewSessionFactory(settings.TTS, logger)
	return tts.NewManager(factory, logger)
}
