// Package catalog stores table metadata entries (table name, description and column
// schema) in SQLite. The catalog is the source of truth that the vector index is
// derived from; every mutation is also recorded in a change log by triggers so the
// sync engine can report how far the index lags behind.
package catalog
