package memory

import (
	"context"
	"strings"
	"sync"
)

// RemoteBackend is the narrow contract for an external memory service. The
// store works correctly with this collaborator entirely absent (pure local
// mode); every method is best-effort from the store's point of view.
type RemoteBackend interface {
	Add(ctx context.Context, agent string, rec *Record) error
	GetAll(ctx context.Context, agent string) ([]*Record, error)
	Search(ctx context.Context, agent string, query string, k int) ([]string, error)
}

// LocalBackend is the in-process fallback used when no remote service is
// configured but callers still want the RemoteBackend surface. Search is a
// case-insensitive substring match in insertion order.
type LocalBackend struct {
	mu    sync.Mutex
	store map[string][]*Record
}

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{store: make(map[string][]*Record)}
}

func (b *LocalBackend) Add(_ context.Context, agent string, rec *Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToLower(agent)
	cp := *rec
	b.store[key] = append(b.store[key], &cp)
	return nil
}

func (b *LocalBackend) GetAll(_ context.Context, agent string) ([]*Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	recs := b.store[strings.ToLower(agent)]
	out := make([]*Record, len(recs))
	for i, r := range recs {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (b *LocalBackend) Search(_ context.Context, agent string, query string, k int) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	needle := strings.ToLower(query)
	var results []string
	for _, rec := range b.store[strings.ToLower(agent)] {
		if strings.Contains(strings.ToLower(rec.Text), needle) {
			results = append(results, rec.Text)
			if len(results) >= k {
				break
			}
		}
	}
	return results, nil
}
