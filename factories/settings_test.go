package factories

import (
	"context"
	"path/filepath"
	"testing"

	"twinkit/seeds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsConfigFromJSONKeepsDefaults(t *testing.T) {
	config, err := SettingsConfigFromJSON([]byte(`{"llm":{"model":"gpt-4o"}}`))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", config.LLM.Model)
	// Unspecified sections keep the defaults.
	assert.Len(t, config.Agents, 2)
	assert.Equal(t, "memories", config.Memory.Dir)
	assert.Equal(t, "seed_data.db", config.Memory.SeedDB)
}

func TestSettingsConfigFromJSONOverridesAgents(t *testing.T) {
	config, err := SettingsConfigFromJSON([]byte(`{"agents":[{"name":"ada","personality":"a mathematician","voice_id":"v1"}]}`))
	require.NoError(t, err)

	require.Len(t, config.Agents, 1)
	assert.Equal(t, "ada", config.Agents[0].Name)
	assert.Equal(t, "v1", config.Agents[0].VoiceID)
}

func TestSettingsConfigFromJSONRejectsGarbage(t *testing.T) {
	_, err := SettingsConfigFromJSON([]byte(`{"agents":`))
	assert.Error(t, err)
}

func TestInjectAPIKeysFillsOnlyEmpty(t *testing.T) {
	config := DefaultSettingsConfig()
	config.LLM.APIKey = "from-file"

	InjectAPIKeys(&config, APIKeys{OpenAI: "env-openai", ElevenLabs: "env-eleven"})

	assert.Equal(t, "from-file", config.LLM.APIKey)
	assert.Equal(t, "env-openai", config.Embedding.APIKey)
	assert.Equal(t, "env-eleven", config.TTS.APIKey)
}

func TestNewEmbedderFallsBackToStub(t *testing.T) {
	embedder, err := NewEmbedder(DefaultSettingsConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, embedder)

	vectors, err := embedder.Encode(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
}

func TestNewTTSManagerNilWithoutKey(t *testing.T) {
	assert.Nil(t, NewTTSManager(DefaultSettingsConfig(), nil))
}

func TestNewAgentsSeedsFreshStores(t *testing.T) {
	dir := t.TempDir()
	seedDB := filepath.Join(dir, "seed.db")
	require.NoError(t, seeds.InitDB(seedDB))

	settings := DefaultSettingsConfig()
	settings.Memory.Dir = filepath.Join(dir, "memories")
	settings.Memory.SeedDB = seedDB

	embedder, err := NewEmbedder(settings, nil)
	require.NoError(t, err)

	agents, err := NewAgents(context.Background(), settings, embedder, nil, nil)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	for _, a := range agents {
		raw, _ := a.Store.Counts()
		assert.Greater(t, raw, 0, "agent %s should be seeded", a.Name)
	}
}

func TestNewAgentsSkipsSeedingLoadedStores(t *testing.T) {
	dir := t.TempDir()
	seedDB := filepath.Join(dir, "seed.db")
	require.NoError(t, seeds.InitDB(seedDB))

	settings := DefaultSettingsConfig()
	settings.Agents = settings.Agents[:1]
	settings.Memory.Dir = filepath.Join(dir, "memories")
	settings.Memory.SeedDB = seedDB

	embedder, err := NewEmbedder(settings, nil)
	require.NoError(t, err)

	agents, err := NewAgents(context.Background(), settings, embedder, nil, nil)
	require.NoError(t, err)
	require.NoError(t, agents[0].Store.AddMemory(context.Background(), "remembered between runs"))
	require.NoError(t, agents[0].Store.Sync())
	rawBefore, _ := agents[0].Store.Counts()

	reloaded, err := NewAgents(context.Background(), settings, embedder, nil, nil)
	require.NoError(t, err)
	rawAfter, _ := reloaded[0].Store.Counts()
	assert.Equal(t, rawBefore, rawAfter)
}
