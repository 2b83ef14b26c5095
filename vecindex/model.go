package vecindex

import (
	"time"

	"github.com/viant/metavec/vector"
)

// RowRef records which catalog entry a row id denoted when the index was built.
type RowRef struct {
	RowID     int64  `json:"row_id" yaml:"row_id"`
	EntryID   int64  `json:"entry_id" yaml:"entry_id"`
	TableName string `json:"table_name" yaml:"table_name"`
}

// State describes the last successful rebuild.
type State struct {
	Generation    string    `json:"generation" yaml:"generation"`
	SyncedAt      time.Time `json:"synced_at" yaml:"synced_at"`
	Entries       int       `json:"entries" yaml:"entries"`
	LastChangeSeq int64     `json:"last_change_seq" yaml:"last_change_seq"`
	Dimension     int       `json:"dimension" yaml:"dimension"`
}

// Snapshot is a complete index content written atomically by Replace.
type Snapshot struct {
	Records []vector.Record
	Refs    []RowRef
	State   State
}

// Hit is a nearest-neighbour result with the row reference read from the same
// index generation. Ref is nil when the row has no mapping.
type Hit struct {
	vector.Neighbor
	Ref *RowRef
}
