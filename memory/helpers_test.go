package memory

import (
	"context"
	"sync"

	"twinkit/core"
)

// fakeEmbedder returns canned vectors by exact text, falling back to a zero
// vector, so tests control similarity ordering precisely.
type fakeEmbedder struct {
	dim     int
	vectors map[string][]float32
	calls   int
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, vectors: make(map[string][]float32)}
}

func (f *fakeEmbedder) set(text string, vec []float32) {
	f.vectors[text] = vec
}

func (f *fakeEmbedder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = make([]float32, f.dim)
		}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dim }

// stubChat returns a fixed reply and records prompts.
type stubChat struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (c *stubChat) Chat(_ context.Context, messages []core.LLMMessage, _ core.ChatOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(messages) > 0 {
		c.prompts = append(c.prompts, messages[0].Content)
	}
	return c.reply, nil
}

// memPersister counts saves and keeps the last snapshot.
type memPersister struct {
	mu    sync.Mutex
	saves int
	last  []*Record
}

func (p *memPersister) Save(_ string, records []*Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	p.last = append([]*Record(nil), records...)
	return nil
}

func (p *memPersister) Load(_ string) ([]*Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, nil
}
