// Package vecindex is the durable vector index derived from the metadata catalog.
//
// Embeddings are stored as little-endian float32 BLOBs in a SQLite table keyed by row id.
// Each sync also writes a row map (row id -> catalog entry id and table name) and a
// single-row sync state, in the same transaction as the vectors, so a retrieval can
// tell whether a row id still denotes the entry it was built from.
//
// Queries run against an in-memory index (brute force or VP-tree) that is loaded lazily
// from the durable tables and cached until the next mutation, or directly in SQLite via
// the vec_l2 function for the sql backend.
package vecindex
