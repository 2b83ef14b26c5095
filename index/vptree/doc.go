// Package vptree implements an exact L2 kNN index using a vantage-point tree to
// prune the search with the triangle inequality.
package vptree
