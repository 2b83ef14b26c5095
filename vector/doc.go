// Package vector defines the fixed-dimension embedding model shared by the index, sync and
// resolver packages. It includes:
//   - Record (row id + embedding) and Neighbor (row id + distance)
//   - the 1024-dimension invariant and DimensionMismatch errors
//   - Embedding encoding (little-endian float32 BLOB) and distance functions
package vector
