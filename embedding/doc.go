// Package embedding converts text into fixed-dimension float vectors using an external
// embedding service. Every provider failure, timeout or empty result is reported as
// ErrUnavailable so callers can short-circuit without inspecting transport details.
package embedding
