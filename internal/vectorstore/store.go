// Package vectorstore defines the persistence contract the pipelines
// depend on. Implementations own indexing and similarity search.
package vectorstore

import "context"

// Record is the persisted unit: one embedded chunk with its citation
// metadata. IDs are deterministic per (filename, chunk index), and an
// upsert with an existing ID replaces the stored record.
type Record struct {
	ID        string
	Embedding []float32
	Text      string
	Source    string
	ChunkID   int
}

// Result is one retrieved record, most similar first.
type Result struct {
	Text       string
	Source     string
	ChunkID    int
	Similarity float32
}

// Store persists records and answers nearest-neighbor queries. All methods
// must be safe for concurrent use.
type Store interface {
	// Upsert registers records, replacing any with matching IDs.
	Upsert(ctx context.Context, records []Record) error
	// Query returns up to k records ranked most similar first.
	Query(ctx context.Context, embedding []float32, k int) ([]Result, error)
	// Count reports the total number of stored records.
	Count(ctx context.Context) (int, error)
	// Reset removes every record and reinitializes an empty store under
	// the same logical name.
	Reset(ctx context.Context) error
}
