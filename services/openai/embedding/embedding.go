// Package embedding adapts the OpenAI embeddings API to the core.Embedder
// interface backing similarity retrieval.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"twinkit/core"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds the configuration for the OpenAI embedding service
type Config struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	MaxRetries int    `json:"max_retries"`
}

// OpenAIEmbedder implements core.Embedder using OpenAI
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// NewOpenAIEmbedder creates a new embedder with the provided config.
func NewOpenAIEmbedder(config Config, logger *core.Logger) (*OpenAIEmbedder, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}
	if config.Dimensions == 0 {
		config.Dimensions = 1536
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(map[string]interface{}{"component": "openai_embedding"}),
	}, nil
}

// Dimensions returns the vector size this embedder produces.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Encode embeds all texts in one batched request, preserving input order.
func (e *OpenAIEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Dimensions pins the vector width the API returns, keeping every
	// result at the size Dimensions() advertises.
	req := openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.config.Model),
		Dimensions: e.config.Dimensions,
	}

	var lastErr error
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * 500 * time.Millisecond
			e.logger.Infof("retrying embedding request (attempt %d/%d) in %v after error: %v",
				attempt+1, e.config.MaxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(resp.Data), len(texts))
		}

		vectors := make([][]float32, len(texts))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(vectors) {
				return nil, fmt.Errorf("embedding index %d out of range", item.Index)
			}
			vectors[item.Index] = item.Embedding
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", e.config.MaxRetries, lastErr)
}
