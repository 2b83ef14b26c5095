package vecindex

import (
	"context"
	"database/sql"
)

const (
	// DefaultVectorTable holds the embeddings.
	DefaultVectorTable = "vector_metadata"
	// DefaultRowMapTable maps row ids to catalog entries.
	DefaultRowMapTable = "vector_rowmap"
	// DefaultStateTable holds the single sync state row.
	DefaultStateTable = "vector_sync_state"
)

type tables struct {
	vectors string
	rowmap  string
	state   string
}

func (t tables) ddl() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + t.vectors + ` (
    row_id    INTEGER PRIMARY KEY,
    embedding BLOB NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS ` + t.rowmap + ` (
    row_id     INTEGER PRIMARY KEY,
    entry_id   INTEGER NOT NULL,
    table_name TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS ` + t.state + ` (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    generation      TEXT NOT NULL,
    synced_at       INTEGER NOT NULL,
    entries         INTEGER NOT NULL,
    last_change_seq INTEGER NOT NULL,
    dimension       INTEGER NOT NULL
);`,
	}
}

func (t tables) ensure(ctx context.Context, db *sql.DB) error {
	for _, stmt := range t.ddl() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return ErrIndex.MsgErr("failed to create vector index schema", err)
		}
	}
	return nil
}
