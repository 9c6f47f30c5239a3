package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"twinkit/agent"
	"twinkit/core"
	"twinkit/factories"
	"twinkit/seeds"
	"twinkit/tts"
	"twinkit/utils/text"

	"github.com/joho/godotenv"
)

func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "settings", "", "path to settings.json (default $SETTINGS_PATH or ./settings.json)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings := loadSettingsFromEnv(settingsPath)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	run(ctx, settings)
	core.GetLogger().Info("Shutting down...")
}

// loadSettingsFromEnv loads SettingsConfig from file or SETTINGS_JSON_B64 env var, and API keys from env vars.
func loadSettingsFromEnv(settingsPath string) factories.SettingsConfig {
	var settings factories.SettingsConfig
	var err error

	if b64 := os.Getenv("SETTINGS_JSON_B64"); b64 != "" {
		data, decErr := base64.StdEncoding.DecodeString(b64)
		if decErr != nil {
			core.GetLogger().With(map[string]any{"error": decErr}).Error("failed to decode SETTINGS_JSON_B64")
			settings = factories.DefaultSettingsConfig()
		} else {
			settings, err = factories.SettingsConfigFromJSON(data)
			if err != nil {
				core.GetLogger().With(map[string]any{"error": err}).Error("failed to parse SETTINGS_JSON_B64")
				settings = factories.DefaultSettingsConfig()
			}
		}
	} else {
		if settingsPath == "" {
			settingsPath = getEnv("SETTINGS_PATH", "./settings.json")
		}
		settings, err = factories.SettingsConfigFromFile(settingsPath)
		if err != nil {
			core.GetLogger().With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
			settings = factories.DefaultSettingsConfig()
		}
	}

	factories.InjectAPIKeys(&settings, factories.APIKeys{
		OpenAI:     getEnv("OPENAI_API_KEY", ""),
		ElevenLabs: getEnv("ELEVENLABS_API_KEY", getEnv("ELEVEN_API_KEY", "")),
		Mem0:       getEnv("MEM0_API_KEY", ""),
	})
	return settings
}

// run builds the agents and drives the interactive console loop until the
// context is cancelled or stdin closes.
func run(ctx context.Context, settings factories.SettingsConfig) {
	logger := core.GetLogger().With(map[string]any{"component": "console"})

	if settings.Memory.SeedDB != "" {
		if err := seeds.InitDB(settings.Memory.SeedDB); err != nil {
			logger.With(map[string]any{"error": err}).Warn("seed database unavailable")
			settings.Memory.SeedDB = ""
		}
	}

	chat, err := factories.NewChatService(settings, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("failed to build chat service")
		return
	}
	if chat == nil {
		logger.Warn("no OpenAI key configured, replies are disabled")
	}

	embedder, err := factories.NewEmbedder(settings, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("failed to build embedder")
		return
	}

	agents, err := factories.NewAgents(ctx, settings, embedder, chat, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("failed to build agents")
		return
	}
	if len(agents) == 0 {
		logger.Error("no agents configured")
		return
	}

	responder := factories.NewResponseGenerator(settings, chat, logger)

	manager := factories.NewTTSManager(settings, logger)
	if manager == nil {
		logger.Warn("no ElevenLabs key configured, speech synthesis disabled")
	} else {
		defer manager.CloseAll()
	}

	defer func() {
		for _, a := range agents {
			if err := a.Store.Sync(); err != nil {
				logger.With(map[string]any{"agent": a.Name, "error": err}).Warn("final sync failed")
			}
		}
	}()

	current := agents[0]
	fmt.Printf("Talking to %s. Commands: /agent <name>, /quit\n", current.Name)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/agent "):
			name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "/agent")))
			found := false
			for _, a := range agents {
				if strings.ToLower(a.Name) == name {
					current = a
					found = true
					break
				}
			}
			if found {
				fmt.Printf("Talking to %s.\n", current.Name)
			} else {
				fmt.Printf("No agent named %q.\n", name)
			}
		default:
			reply, err := responder.GenerateResponse(ctx, current, line)
			if err != nil {
				logger.With(map[string]any{"agent": current.Name, "error": err}).Error("reply failed")
				continue
			}
			fmt.Printf("%s: %s\n", current.Name, reply)
			speak(ctx, manager, current, reply, logger)
		}
	}
}

// speak synthesizes one reply and drains the stream, logging the outcome.
func speak(ctx context.Context, manager *tts.Manager, a *agent.Agent, reply string, logger *core.Logger) {
	if manager == nil || a.VoiceID == "" {
		return
	}
	normalizer := text.NewSpeechNormalizer()
	events, jobID := manager.Stream(ctx, normalizer.Normalize(reply), a.VoiceID, "")

	chunks := 0
	var seconds float64
	sampleRate, channels := 0, 0
	for event := range events {
		switch event.Type {
		case tts.EventAudioStart:
			sampleRate, channels = event.SampleRate, event.Channels
		case tts.EventAudioData:
			chunks++
			chunk := core.AudioChunk{Data: event.Data, SampleRate: sampleRate, Channels: channels, Format: core.PCM}
			seconds += chunk.GetDurationInSeconds()
		case tts.EventError:
			logger.With(map[string]any{"job_id": jobID, "error": event.Error}).Warn("speech stream error")
		}
	}
	logger.With(map[string]any{"job_id": jobID, "chunks": chunks, "seconds": seconds}).Debug("speech stream finished")
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
