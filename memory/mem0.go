package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"twinkit/core"

	"github.com/bytedance/sonic"
)

// Mem0Config holds credentials for the hosted Mem0 memory service.
type Mem0Config struct {
	APIKey  string        `json:"api_key"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// Mem0Backend mirrors agent memories to Mem0 and serves remote similarity
// search. All failures are reported to the caller; the Store treats them as
// best-effort and falls back to local retrieval.
type Mem0Backend struct {
	config Mem0Config
	client *http.Client
	logger *core.Logger
}

// NewMem0Backend creates a backend with the provided config.
func NewMem0Backend(config Mem0Config, logger *core.Logger) *Mem0Backend {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.mem0.ai/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Mem0Backend{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With(map[string]interface{}{"component": "mem0"}),
	}
}

type mem0Record struct {
	Agent     string  `json:"agent"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
	IsSummary bool    `json:"is_summary"`
}

type mem0SearchRequest struct {
	Agent string `json:"agent"`
	Query string `json:"query"`
	K     int    `json:"k"`
}

type mem0SearchResponse struct {
	Results []string `json:"results"`
}

type mem0ListResponse struct {
	Memories []mem0Record `json:"memories"`
}

// Add mirrors one record.
func (b *Mem0Backend) Add(ctx context.Context, agent string, rec *Record) error {
	payload := mem0Record{
		Agent:     agent,
		Text:      rec.Text,
		Timestamp: rec.Timestamp,
		IsSummary: rec.IsSummary,
	}
	return b.post(ctx, "/memory", payload, nil)
}

// GetAll fetches every stored record for the agent.
func (b *Mem0Backend) GetAll(ctx context.Context, agent string) ([]*Record, error) {
	var resp mem0ListResponse
	if err := b.post(ctx, "/memory/list", map[string]string{"agent": agent}, &resp); err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(resp.Memories))
	for _, m := range resp.Memories {
		records = append(records, &Record{
			Text:      m.Text,
			Timestamp: m.Timestamp,
			IsSummary: m.IsSummary,
		})
	}
	return records, nil
}

// Search returns up to k memory texts ranked by the remote service.
func (b *Mem0Backend) Search(ctx context.Context, agent, query string, k int) ([]string, error) {
	var resp mem0SearchResponse
	err := b.post(ctx, "/search", mem0SearchRequest{Agent: agent, Query: query, K: k}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (b *Mem0Backend) post(ctx context.Context, path string, payload interface{}, result interface{}) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mem0: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mem0: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("mem0: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mem0: unexpected status %d from %s", resp.StatusCode, path)
	}
	if result == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mem0: read response: %w", err)
	}
	if err := sonic.Unmarshal(data, result); err != nil {
		return fmt.Errorf("mem0: decode response: %w", err)
	}
	return nil
}
