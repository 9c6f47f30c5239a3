package core

import "context"

// Embedder converts text into fixed-size vectors. Dimensions returns the
// vector length every Encode result is guaranteed to have, so callers can
// detect history written under a different encoder.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// StubEmbedder is the degraded-mode encoder: every text maps to the zero
// vector, so downstream similarity collapses to ties broken by insertion
// order. Used when no embedding backend is configured.
type StubEmbedder struct {
	Dim int
}

func NewStubEmbedder(dim int) *StubEmbedder {
	if dim <= 0 {
		dim = 3
	}
	return &StubEmbedder{Dim: dim}
}

func (s *StubEmbedder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = make([]float32, s.Dim)
	}
	return vecs, nil
}

func (s *StubEmbedder) Dimensions() int {
	return s.Dim
}
