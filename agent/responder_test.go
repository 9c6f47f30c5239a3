package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"twinkit/core"
	"twinkit/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChat struct {
	reply   string
	err     error
	prompts []string
	opts    []core.ChatOptions
}

func (c *scriptedChat) Chat(_ context.Context, messages []core.LLMMessage, opts core.ChatOptions) (string, error) {
	if len(messages) > 0 {
		c.prompts = append(c.prompts, messages[0].Content)
	}
	c.opts = append(c.opts, opts)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func newTestAgent(t *testing.T, name string) *Agent {
	t.Helper()
	index := memory.NewEmbeddingIndex(core.NewStubEmbedder(3), nil)
	store := memory.NewStore(name, memory.Config{}, index, nil, nil, nil, nil)
	return NewAgent(name, "warm and curious", "voice-1", store)
}

func TestGenerateResponseRecordsExchange(t *testing.T) {
	a := newTestAgent(t, "Mia")
	require.NoError(t, a.Store.AddMemory(context.Background(), "I enjoy Radiohead."))

	chat := &scriptedChat{reply: "Mia: sure, sounds fun"}
	g := NewResponseGenerator(chat, NewStyleLoader(t.TempDir()), DefaultResponderConfig(), nil)

	reply, err := g.GenerateResponse(context.Background(), a, "want to hang out?")
	require.NoError(t, err)
	assert.Equal(t, "sure, sounds fun", reply)

	require.Len(t, chat.prompts, 1)
	prompt := chat.prompts[0]
	assert.Contains(t, prompt, "You are Mia. Personality: warm and curious")
	assert.Contains(t, prompt, "Relevant memories:\nI enjoy Radiohead.")
	assert.Contains(t, prompt, "User: want to hang out?\nMia:")

	require.Len(t, chat.opts, 1)
	assert.Equal(t, "gpt-4o-mini", chat.opts[0].Model)
	assert.InDelta(t, 0.5, chat.opts[0].Temperature, 1e-6)

	records := a.Store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "User: want to hang out?\nMia: sure, sounds fun", records[1].Text)
}

func TestGenerateResponseIncludesTranscriptStyle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mia.txt"),
		[]byte("Short, dry sentences."), 0o644))

	a := newTestAgent(t, "Mia")
	chat := &scriptedChat{reply: "ok"}
	g := NewResponseGenerator(chat, NewStyleLoader(dir), DefaultResponderConfig(), nil)

	_, err := g.GenerateResponse(context.Background(), a, "hello")
	require.NoError(t, err)
	assert.Contains(t, chat.prompts[0], "Example speech from transcript:\nShort, dry sentences.")
}

func TestGenerateResponseInjectsDriftAdvisory(t *testing.T) {
	a := newTestAgent(t, "Mia")
	ctx := context.Background()
	require.NoError(t, a.Store.AddMemory(ctx, "User: hi\nMia: what do you think about music?"))
	require.NoError(t, a.Store.AddMemory(ctx, "User: dunno\nMia: how does that make you feel?"))
	require.NoError(t, a.Store.AddMemory(ctx, "User: fine\nMia: why is that, though?"))

	chat := &scriptedChat{reply: "ok"}
	g := NewResponseGenerator(chat, NewStyleLoader(t.TempDir()), DefaultResponderConfig(), nil)

	_, err := g.GenerateResponse(ctx, a, "so what now")
	require.NoError(t, err)
	assert.Contains(t, chat.prompts[0], "IMPORTANT: You've been asking many questions lately.")
}

func TestGenerateResponsePropagatesChatError(t *testing.T) {
	a := newTestAgent(t, "Mia")
	chat := &scriptedChat{err: errors.New("backend down")}
	g := NewResponseGenerator(chat, NewStyleLoader(t.TempDir()), DefaultResponderConfig(), nil)

	_, err := g.GenerateResponse(context.Background(), a, "hello")
	require.Error(t, err)
	assert.Empty(t, a.Store.Records())
}

func TestStripSpeakerPrefix(t *testing.T) {
	assert.Equal(t, "hello there", stripSpeakerPrefix("Mia: hello there", "Mia"))
	assert.Equal(t, "hello there", stripSpeakerPrefix("  mia:  hello there", "Mia"))
	assert.Equal(t, "hello there", stripSpeakerPrefix("hello there", "Mia"))
	assert.Equal(t, "Mianote", stripSpeakerPrefix("Mianote", "Mia"))
	assert.Equal(t, "", stripSpeakerPrefix("Mia:", "Mia"))
}
