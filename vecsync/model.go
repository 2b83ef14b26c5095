package vecsync

import (
	"fmt"
	"time"

	"github.com/viant/metavec/vecindex"
)

// KeyMode selects how index row ids are derived from catalog entries.
type KeyMode string

const (
	// KeyPosition uses the 1-based position of the entry in the sync snapshot.
	KeyPosition KeyMode = "position"
	// KeyID uses the catalog entry id.
	KeyID KeyMode = "id"
)

// EmbedMode selects what text is sent to the embedding service.
type EmbedMode string

const (
	// EmbedPerEntry embeds every entry separately in one batched call.
	EmbedPerEntry EmbedMode = "per_entry"
	// EmbedWholeCatalog embeds the JSON of the whole catalog in one input and pairs the
	// returned embeddings with entries by position.
	EmbedWholeCatalog EmbedMode = "whole_catalog"
)

// Options controls a sync Engine.
type Options struct {
	KeyMode   KeyMode
	EmbedMode EmbedMode
	// TwoStep clears the index and then inserts the new records instead of swapping
	// the content in one transaction.
	TwoStep bool
}

func (o *Options) init() error {
	switch o.KeyMode {
	case "":
		o.KeyMode = KeyPosition
	case KeyPosition, KeyID:
	default:
		return fmt.Errorf("unsupported sync key mode: %q", o.KeyMode)
	}
	switch o.EmbedMode {
	case "":
		o.EmbedMode = EmbedPerEntry
	case EmbedPerEntry, EmbedWholeCatalog:
	default:
		return fmt.Errorf("unsupported sync embed mode: %q", o.EmbedMode)
	}
	return nil
}

// Result summarizes a successful sync.
type Result struct {
	Generation string        `json:"generation" yaml:"generation"`
	Entries    int           `json:"entries" yaml:"entries"`
	Records    int           `json:"records" yaml:"records"`
	SyncedAt   time.Time     `json:"synced_at" yaml:"synced_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Status reports the index state relative to the catalog.
type Status struct {
	Synced         bool            `json:"synced" yaml:"synced"`
	State          *vecindex.State `json:"state,omitempty" yaml:"state,omitempty"`
	Records        int             `json:"records" yaml:"records"`
	PendingChanges int64           `json:"pending_changes" yaml:"pending_changes"`
	LastChangeSeq  int64           `json:"last_change_seq" yaml:"last_change_seq"`
}
