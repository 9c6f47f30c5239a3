package memory

import "time"

// Record is one unit of agent memory: either a raw conversation-derived fact
// or a summary condensing a block of older raw records. Append-only and
// immutable once created, except for embedding backfill.
type Record struct {
	Text      string    `json:"text"`
	Timestamp float64   `json:"timestamp"` // Unix seconds.
	Embedding []float32 `json:"embedding"`
	IsSummary bool      `json:"is_summary"`
}

// NewRecord creates a record stamped with the current time.
func NewRecord(text string, isSummary bool) *Record {
	return &Record{
		Text:      text,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		IsSummary: isSummary,
	}
}
