// Package index defines a minimal abstraction for exact vector indexes that are
// built from embeddings and queried for nearest neighbours. Implementations
// include a brute-force scan and a vantage-point tree.
package index
