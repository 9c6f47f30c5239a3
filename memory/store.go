package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"twinkit/core"
)

const summaryPrefix = "(summary) "

// Config bounds the store's compaction and sync policy.
type Config struct {
	MaxRaw    int // Ceiling on raw (non-summary) records before rollup.
	Chunk     int // Number of oldest raw records condensed per rollup.
	SyncEvery int // Persist after this many adds.
}

// DefaultConfig returns the store policy used by production agents.
func DefaultConfig() Config {
	return Config{
		MaxRaw:    200,
		Chunk:     50,
		SyncEvery: 5,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxRaw <= 0 {
		c.MaxRaw = d.MaxRaw
	}
	if c.Chunk <= 0 {
		c.Chunk = d.Chunk
	}
	if c.SyncEvery <= 0 {
		c.SyncEvery = d.SyncEvery
	}
}

// Store is one agent's ordered memory ledger: raw conversation turns and the
// summary records that replace compacted blocks of them. All mutating and
// reading operations are serialized by an internal lock, so concurrent turns
// for the same agent cannot corrupt the counter or rollup state.
type Store struct {
	agent  string
	cfg    Config
	index  *EmbeddingIndex
	chat   core.ChatClient
	disk   Persister
	remote RemoteBackend
	graph  *Graph
	logger *core.Logger

	mu       sync.Mutex
	records  []*Record
	unsynced int
}

// NewStore builds a store for one agent. chat is used only for rollup
// summarization; disk and remote may be nil (no persistence / pure local
// mode respectively).
func NewStore(agent string, cfg Config, index *EmbeddingIndex, chat core.ChatClient, disk Persister, remote RemoteBackend, logger *core.Logger) *Store {
	cfg.applyDefaults()
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Store{
		agent:  agent,
		cfg:    cfg,
		index:  index,
		chat:   chat,
		disk:   disk,
		remote: remote,
		graph:  NewGraph(),
		logger: logger.With(map[string]interface{}{"agent": agent}),
	}
}

// Load replaces the in-memory ledger with the persisted one and rebuilds the
// relation graph from it. No-op when no persister is configured.
func (s *Store) Load(ctx context.Context) error {
	if s.disk == nil {
		return nil
	}
	records, err := s.disk.Load(s.agent)
	if err != nil {
		return fmt.Errorf("store: load %q: %w", s.agent, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.rebuildGraphLocked()
	s.unsynced = 0
	return nil
}

// AddMemory embeds and appends a raw record, updates the graph, schedules a
// sync every SyncEvery adds, and compacts when the raw ceiling is exceeded.
func (s *Store) AddMemory(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(ctx, text, false)
	s.maybeSyncLocked()
	s.rollupLocked(ctx)
	return nil
}

// appendLocked creates the record, best-effort embeds it, wires it into the
// graph, and mirrors it to the remote backend when one is configured.
func (s *Store) appendLocked(ctx context.Context, text string, isSummary bool) {
	rec := NewRecord(text, isSummary)
	if s.index != nil {
		vec, err := s.index.Encode(ctx, text)
		if err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("embedding failed, record stored without vector")
		} else {
			rec.Embedding = vec
		}
	}
	s.records = append(s.records, rec)
	s.graph.Update(text)
	s.unsynced++

	if s.remote != nil {
		if err := s.remote.Add(ctx, s.agent, rec); err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("remote memory add failed")
		}
	}
}

func (s *Store) maybeSyncLocked() {
	if s.unsynced >= s.cfg.SyncEvery {
		s.syncLocked()
	}
}

// rollupLocked compacts in two phases: summarize the oldest Chunk raw
// records, remove exactly those, then insert one summary record directly —
// never re-entering AddMemory. The loop re-checks the condition; summary
// records are exempt from the raw count, so it always terminates.
func (s *Store) rollupLocked(ctx context.Context) {
	for {
		var rawIdx []int
		for i, r := range s.records {
			if !r.IsSummary {
				rawIdx = append(rawIdx, i)
			}
		}
		if len(rawIdx) <= s.cfg.MaxRaw {
			return
		}

		oldest := rawIdx
		if len(oldest) > s.cfg.Chunk {
			oldest = oldest[:s.cfg.Chunk]
		}
		texts := make([]string, len(oldest))
		for i, idx := range oldest {
			texts[i] = s.records[idx].Text
		}

		summary, err := s.summarizeBlock(ctx, strings.Join(texts, "\n"))
		if err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("rollup summarization failed, keeping raw records")
			return
		}

		drop := make(map[int]struct{}, len(oldest))
		for _, idx := range oldest {
			drop[idx] = struct{}{}
		}
		kept := s.records[:0]
		for i, r := range s.records {
			if _, gone := drop[i]; !gone {
				kept = append(kept, r)
			}
		}
		s.records = kept

		s.appendLocked(ctx, summaryPrefix+summary, true)
		s.rebuildGraphLocked()
		s.maybeSyncLocked()
	}
}

func (s *Store) rebuildGraphLocked() {
	texts := make([]string, len(s.records))
	for i, r := range s.records {
		texts[i] = r.Text
	}
	s.graph.Rebuild(texts)
}

// summarizeBlock condenses a newline-joined block of memories into a few
// sentences via the language-model backend.
func (s *Store) summarizeBlock(ctx context.Context, block string) (string, error) {
	if s.chat == nil {
		return "", fmt.Errorf("store: no chat backend configured for summarization")
	}
	prompt := fmt.Sprintf(
		"You are helping %s condense memories.\nRewrite the following block into 3-4 concise sentences:\n\n%s\n\nSummary:",
		s.agent, block,
	)
	return s.chat.Chat(ctx, core.SystemMessage(prompt), core.ChatOptions{Temperature: 0.2})
}

// SummarizeRecent condenses the most recent window records on demand.
func (s *Store) SummarizeRecent(ctx context.Context, window int) (string, error) {
	s.mu.Lock()
	if len(s.records) == 0 {
		s.mu.Unlock()
		return "No memories yet.", nil
	}
	if window <= 0 {
		window = 20
	}
	start := len(s.records) - window
	if start < 0 {
		start = 0
	}
	texts := make([]string, 0, window)
	for _, r := range s.records[start:] {
		texts = append(texts, r.Text)
	}
	s.mu.Unlock()
	return s.summarizeBlock(ctx, strings.Join(texts, "\n"))
}

// Retrieve returns up to topK memory texts ranked by cosine similarity to
// the query. Remote results, when available, are merged ahead of local ones
// with exact-text deduplication. The local ranking uses a stable sort, so
// equal scores preserve insertion order and repeated calls are deterministic.
func (s *Store) Retrieve(ctx context.Context, query string, topK int) []string {
	if topK <= 0 {
		topK = 5
	}

	var remoteResults []string
	if s.remote != nil {
		res, err := s.remote.Search(ctx, s.agent, query, topK)
		if err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("remote memory search failed, using local memories")
		} else {
			remoteResults = res
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var localResults []string
	if len(s.records) > 0 {
		if s.index != nil {
			if err := s.index.EnsureEmbeddings(ctx, s.records); err != nil {
				s.logger.With(map[string]interface{}{"error": err}).Warn("embedding backfill failed, similarity degraded")
			}
		}
		var queryVec []float32
		if s.index != nil {
			vec, err := s.index.Encode(ctx, query)
			if err != nil {
				s.logger.With(map[string]interface{}{"error": err}).Warn("query embedding failed, similarity degraded")
			} else {
				queryVec = vec
			}
		}

		order := make([]int, len(s.records))
		scores := make([]float64, len(s.records))
		for i, r := range s.records {
			order[i] = i
			scores[i] = CosineSimilarity(queryVec, r.Embedding)
		}
		sort.SliceStable(order, func(a, b int) bool {
			return scores[order[a]] > scores[order[b]]
		})
		for i := 0; i < len(order) && i < topK; i++ {
			localResults = append(localResults, s.records[order[i]].Text)
		}
	}

	merged := make([]string, 0, topK)
	seen := make(map[string]struct{})
	for _, txt := range append(remoteResults, localResults...) {
		if _, dup := seen[txt]; dup {
			continue
		}
		seen[txt] = struct{}{}
		merged = append(merged, txt)
		if len(merged) >= topK {
			break
		}
	}
	return merged
}

// GraphContext returns graph nodes related to the query tokens within depth
// hops.
func (s *Store) GraphContext(query string, depth int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Neighbors(query, depth)
}

// Sync flushes the full ledger to the persister and resets the unsynced
// counter. Safe to call redundantly.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLocked()
}

func (s *Store) syncLocked() error {
	if s.disk != nil {
		if err := s.disk.Save(s.agent, s.records); err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Error("memory sync failed")
			return err
		}
	}
	s.unsynced = 0
	return nil
}

// Trim keeps only the most recent limit records and syncs. No-op when the
// ledger is already within limit.
func (s *Store) Trim(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || len(s.records) <= limit {
		return
	}
	s.records = append([]*Record(nil), s.records[len(s.records)-limit:]...)
	s.rebuildGraphLocked()
	s.syncLocked()
}

// Records returns a snapshot copy of the ledger.
func (s *Store) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, len(s.records))
	for i, r := range s.records {
		cp := *r
		out[i] = &cp
	}
	return out
}

// Counts returns the number of raw and summary records.
func (s *Store) Counts() (raw, summaries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.IsSummary {
			summaries++
		} else {
			raw++
		}
	}
	return raw, summaries
}

// Agent returns the owning agent's name.
func (s *Store) Agent() string {
	return s.agent
}
