// Package vecsync rebuilds the vector index from the metadata catalog.
//
// A sync reads a consistent catalog snapshot together with the change-log high-water
// mark, embeds the snapshot, and swaps the index content in one transaction. When the
// embedding service fails the previous index is left untouched. Status compares the
// recorded high-water mark with the change log to report pending catalog changes.
package vecsync
