// Package pgstore implements the vector store contract on Postgres with
// the pgvector extension.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docsearch/internal/vectorstore"
)

type record struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID        string          `bun:"id,pk"`
	Text      string          `bun:"text,notnull"`
	Source    string          `bun:"source,notnull"`
	ChunkID   int             `bun:"chunk_id,notnull"`
	Embedding pgvector.Vector `bun:"embedding,notnull"`
	Distance  float64         `bun:"distance,scanonly"`
}

// tableDDL builds the documents table for the given embedding dimension.
// The dimension is part of the column type, so it is interpolated into the
// DDL rather than carried by the model tags.
func tableDDL(dim int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
	id text PRIMARY KEY,
	text text NOT NULL,
	source text NOT NULL,
	chunk_id integer NOT NULL,
	embedding vector(%d) NOT NULL
)`, dim)
}

// Store keeps records in a single documents table and ranks matches by
// cosine distance.
type Store struct {
	db  *bun.DB
	dim int
}

// New connects to Postgres and makes sure the documents table exists. dim
// must match the embedding model's output dimension; inserts of vectors of
// any other length fail.
func New(ctx context.Context, dsn string, dim int, debug bool) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	s := &Store{db: db, dim: dim}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enabling pgvector: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, tableDDL(s.dim)); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]record, len(records))
	for i, r := range records {
		rows[i] = record{
			ID:        r.ID,
			Text:      r.Text,
			Source:    r.Source,
			ChunkID:   r.ChunkID,
			Embedding: pgvector.NewVector(r.Embedding),
		}
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("text = EXCLUDED.text").
		Set("source = EXCLUDED.source").
		Set("chunk_id = EXCLUDED.chunk_id").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Result, error) {
	vec := pgvector.NewVector(embedding)
	var rows []record
	err := s.db.NewSelect().
		Model(&rows).
		Column("text", "source", "chunk_id").
		ColumnExpr("embedding <=> ? AS distance", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	results := make([]vectorstore.Result, len(rows))
	for i, r := range rows {
		results[i] = vectorstore.Result{
			Text:       r.Text,
			Source:     r.Source,
			ChunkID:    r.ChunkID,
			Similarity: 1 - float32(r.Distance),
		}
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().Model((*record)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// Reset drops and recreates the documents table.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.NewDropTable().Model((*record)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("dropping documents table: %w", err)
	}
	return s.init(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ vectorstore.Store = (*Store)(nil)
