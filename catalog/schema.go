package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	// DefaultTable is the catalog table name.
	DefaultTable = "metadatas"

	// DefaultChangeLogTable receives one row per catalog mutation.
	DefaultChangeLogTable = "metadatas_change_log"
)

// TableDDL returns the catalog table DDL.
func TableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    table_name  VARCHAR(100) NOT NULL,
    description TEXT NOT NULL,
    metadata    TEXT NOT NULL
);`
}

// ChangeLogDDL returns the DDL for the change-log table populated by triggers.
func ChangeLogDDL(logTable string) string {
	return `CREATE TABLE IF NOT EXISTS ` + logTable + ` (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    op         TEXT NOT NULL,
    entry_id   INTEGER NOT NULL,
    table_name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

// ChangeLogTriggers returns the trigger DDL statements that capture inserts,
// updates and deletes against the catalog table into the change log.
func ChangeLogTriggers(table, logTable string) []string {
	trigger := func(suffix, event, op, alias string) string {
		return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_%[2]s AFTER %[3]s ON %[1]s
BEGIN
    INSERT INTO %[4]s(op, entry_id, table_name) VALUES ('%[5]s', %[6]s.id, %[6]s.table_name);
END;`, table, suffix, event, logTable, op, alias)
	}
	return []string{
		trigger("ai", "INSERT", "insert", "NEW"),
		trigger("au", "UPDATE", "update", "NEW"),
		trigger("ad", "DELETE", "delete", "OLD"),
	}
}

// EnsureSchema creates the catalog table, its change log and triggers.
func EnsureSchema(ctx context.Context, db *sql.DB, table, logTable string) error {
	stmts := append([]string{TableDDL(table), ChangeLogDDL(logTable)}, ChangeLogTriggers(table, logTable)...)
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return ErrCatalog.MsgErr("failed to create catalog schema", err)
		}
	}
	return nil
}
