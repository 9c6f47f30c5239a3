package memory

import (
	"context"
	"fmt"
	"math"

	"twinkit/core"
)

// EmbeddingIndex wraps an embedding backend and owns backfill of missing
// record embeddings. Records embedded under a different encoder version
// (vector length differs from the active encoder's dimensionality) are
// re-embedded lazily rather than rejected or padded.
type EmbeddingIndex struct {
	embedder core.Embedder
	logger   *core.Logger
}

func NewEmbeddingIndex(embedder core.Embedder, logger *core.Logger) *EmbeddingIndex {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &EmbeddingIndex{embedder: embedder, logger: logger}
}

// Encode converts a single text to a vector.
func (ix *EmbeddingIndex) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := ix.embedder.Encode(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("index: encode: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("index: encoder returned %d vectors for one text", len(vecs))
	}
	return vecs[0], nil
}

// EnsureEmbeddings fills the embedding of every record whose vector is empty
// or was produced under a different dimensionality, batching the texts into
// one encoder call. Mutates the passed records; no other side effects.
func (ix *EmbeddingIndex) EnsureEmbeddings(ctx context.Context, records []*Record) error {
	dim := ix.embedder.Dimensions()
	var missing []*Record
	for _, r := range records {
		if len(r.Embedding) == 0 || len(r.Embedding) != dim {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for i, r := range missing {
		texts[i] = r.Text
	}
	vecs, err := ix.embedder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("index: backfill %d embeddings: %w", len(missing), err)
	}
	if len(vecs) != len(missing) {
		return fmt.Errorf("index: encoder returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for i, r := range missing {
		r.Embedding = vecs[i]
	}
	return nil
}

// Dimensions reports the active encoder's vector length.
func (ix *EmbeddingIndex) Dimensions() int {
	return ix.embedder.Dimensions()
}

// CosineSimilarity returns the cosine of the angle between a and b in
// [-1, 1]. Mismatched lengths and zero vectors score 0, so degraded-mode
// retrieval falls back to ties broken by insertion order.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
