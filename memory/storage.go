package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

// Persister abstracts where an agent's full memory list is flushed to.
type Persister interface {
	Save(agent string, records []*Record) error
	Load(agent string) ([]*Record, error)
}

// FileStore persists one JSON file per agent: <dir>/<name>_memories.json
// holding the full record array.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (fs *FileStore) path(agent string) string {
	return filepath.Join(fs.dir, strings.ToLower(agent)+"_memories.json")
}

func (fs *FileStore) Save(agent string, records []*Record) error {
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return fmt.Errorf("storage: create dir %q: %w", fs.dir, err)
	}
	if records == nil {
		records = []*Record{}
	}
	data, err := sonic.Marshal(records)
	if err != nil {
		return fmt.Errorf("storage: marshal memories for %q: %w", agent, err)
	}
	if err := os.WriteFile(fs.path(agent), data, 0o644); err != nil {
		return fmt.Errorf("storage: write %q: %w", fs.path(agent), err)
	}
	return nil
}

// Load returns the persisted records for agent, or an empty list when no
// file exists yet.
func (fs *FileStore) Load(agent string) ([]*Record, error) {
	data, err := os.ReadFile(fs.path(agent))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %q: %w", fs.path(agent), err)
	}
	var records []*Record
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("storage: parse %q: %w", fs.path(agent), err)
	}
	return records, nil
}
