package engine

import (
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./metavec.db"; the connection runs in WAL
// mode with a busy timeout and immediate write transactions. For in-memory databases, pass
// ":memory:"; the pool is then limited to one connection so every statement sees the same
// database.
func Open(dsn string) (*sql.DB, error) {
	if err := RegisterVectorFunctions(); err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverName, buildDSN(dsn))
	if err != nil {
		return nil, errors.Wrapf(err, "opening sqlite database %q", dsn)
	}
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(time.Hour)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "pinging sqlite database %q", dsn)
	}
	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == "" || dsn == MemoryDSN || strings.Contains(dsn, "mode=memory")
}

func buildDSN(dsn string) string {
	if isMemory(dsn) {
		if dsn == "" {
			return MemoryDSN
		}
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + dsn + "?" + q.Encode()
}
