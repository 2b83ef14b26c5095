// Package bruteforce provides a vector index that answers kNN queries by
// scanning all vectors and ordering them by L2 distance.
package bruteforce
