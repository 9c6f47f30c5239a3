package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	records := []*Record{
		{Text: "hello world", Timestamp: 1712345678.25, Embedding: []float32{0.5, -0.25, 1}, IsSummary: false},
		{Text: "(summary) older things", Timestamp: 1712345680.5, IsSummary: true},
	}
	require.NoError(t, fs.Save("Dummy", records))

	loaded, err := fs.Load("Dummy")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "hello world", loaded[0].Text)
	assert.Equal(t, 1712345678.25, loaded[0].Timestamp)
	assert.Equal(t, []float32{0.5, -0.25, 1}, loaded[0].Embedding)
	assert.False(t, loaded[0].IsSummary)
	assert.True(t, loaded[1].IsSummary)
}

func TestFileStoreLowercasesAgentName(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	require.NoError(t, fs.Save("Mateo", []*Record{{Text: "x"}}))

	_, err := os.Stat(filepath.Join(dir, "mateo_memories.json"))
	assert.NoError(t, err)
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	loaded, err := fs.Load("nobody")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStoreSaveNilRecords(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	require.NoError(t, fs.Save("dummy", nil))

	loaded, err := fs.Load("dummy")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStoreLoadRebuildsGraph(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	require.NoError(t, fs.Save("dummy", []*Record{
		{Text: "Alice -> Bob"},
		{Text: "bob is kind"},
	}))

	s := NewStore("dummy", Config{}, nil, nil, fs, nil, nil)
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, []string{"bob"}, s.GraphContext("alice", 1))
	assert.Equal(t, []string{"kind"}, s.GraphContext("bob", 1))
}
