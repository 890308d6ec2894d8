// Package chromemdb implements the vector store contract on top of the
// embedded chromem-go database.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"docsearch/internal/vectorstore"
)

const compress = false

// Store wraps a chromem-go collection. The collection handle is swapped on
// Reset, so it is guarded by a mutex rather than read directly.
type Store struct {
	db   *chromem.DB
	name string

	mu         sync.RWMutex
	collection *chromem.Collection
}

// New opens (or creates) a persistent database under path and binds the
// named collection.
func New(path, collection string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("opening vector database: %w", err)
	}
	return newStore(db, collection)
}

// NewInMemory builds a non-persistent store, used by tests and dry runs.
func NewInMemory(collection string) (*Store, error) {
	return newStore(chromem.NewDB(), collection)
}

func newStore(db *chromem.DB, name string) (*Store, error) {
	c, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", name, err)
	}
	return &Store{db: db, name: name, collection: c}, nil
}

func (s *Store) current() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// Upsert adds the records to the collection. chromem-go keys documents by
// ID, so records with existing IDs replace the stored ones.
func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Text,
			Embedding: r.Embedding,
			Metadata: map[string]string{
				"source":   r.Source,
				"chunk_id": strconv.Itoa(r.ChunkID),
			},
		}
	}
	if err := s.current().AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Query returns up to k records ranked by descending cosine similarity.
// chromem-go rejects nResults above the collection size, so k is clamped.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Result, error) {
	col := s.current()
	if n := col.Count(); n == 0 {
		return nil, nil
	} else if k > n {
		k = n
	}

	found, err := col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying by similarity: %w", err)
	}

	results := make([]vectorstore.Result, len(found))
	for i, r := range found {
		chunkID, _ := strconv.Atoi(r.Metadata["chunk_id"])
		results[i] = vectorstore.Result{
			Text:       r.Content,
			Source:     r.Metadata["source"],
			ChunkID:    chunkID,
			Similarity: r.Similarity,
		}
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.current().Count(), nil
}

// Reset drops the collection and recreates it empty under the same name.
// A query racing a reset sees either the old or the new collection.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("dropping collection %q: %w", s.name, err)
	}
	c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("recreating collection %q: %w", s.name, err)
	}
	s.collection = c
	return nil
}

var _ vectorstore.Store = (*Store)(nil)
