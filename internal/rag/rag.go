// Package rag composes extraction, chunking, embedding, storage, retrieval
// and generation into the ingestion and query pipelines.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"docsearch/internal/chunker"
	"docsearch/internal/embedding"
	"docsearch/internal/extractor"
	"docsearch/internal/generation"
	"docsearch/internal/models"
	"docsearch/internal/vectorstore"
)

const defaultNResults = 3

// Service holds the process-wide collaborators, constructed once at startup
// and shared by all requests.
type Service struct {
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	store     vectorstore.Store
	generator generation.Generator // nil means local fallback answers only
}

func NewService(ch *chunker.Chunker, embedder embedding.Embedder, store vectorstore.Store, generator generation.Generator) *Service {
	return &Service{chunker: ch, embedder: embedder, store: store, generator: generator}
}

// Ingest registers one document: extract, chunk, embed, upsert. It returns
// the number of chunks added. A document whose text yields no chunks adds
// nothing and is not an error. A failure mid-upsert can leave a subset of
// chunks stored; nothing is rolled back.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (int, error) {
	format, err := extractor.FormatFromFilename(filename)
	if err != nil {
		return 0, err
	}
	text, err := extractor.Extract(data, format)
	if err != nil {
		return 0, err
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		log.Info().Str("filename", filename).Msg("Document produced no chunks")
		return 0, nil
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return 0, &EmbeddingError{Err: err}
	}
	if len(vectors) != len(chunks) {
		return 0, &EmbeddingError{Err: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))}
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectorstore.Record{
			ID:        fmt.Sprintf("%s_chunk_%d", filename, i),
			Embedding: vectors[i],
			Text:      chunk,
			Source:    filename,
			ChunkID:   i,
		}
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return 0, &StoreError{Op: "upsert", Err: err}
	}

	log.Info().Str("filename", filename).Int("chunks", len(chunks)).Msg("Document ingested")
	return len(chunks), nil
}

// Answer retrieves the nResults most similar chunks and generates an answer
// conditioned on them. An empty retrieval is answered with a fixed message,
// not an error. A failing remote generator degrades to a deterministic
// answer built from the retrieved context.
func (s *Service) Answer(ctx context.Context, question string, nResults int) (*models.QueryResponse, error) {
	if nResults <= 0 {
		nResults = defaultNResults
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	results, err := s.store.Query(ctx, queryEmbedding, nResults)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	if len(results) == 0 {
		return &models.QueryResponse{
			Answer:  models.NoResultsAnswer,
			Sources: []models.Source{},
		}, nil
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	docContext := strings.Join(texts, "\n\n")

	var answer string
	switch {
	case s.generator == nil:
		answer = generation.LocalAnswer(docContext)
	default:
		prompt := fmt.Sprintf(models.AnswerPromptTemplate, docContext, question)
		answer, err = s.generator.Generate(ctx, prompt)
		if err != nil {
			log.Warn().Err(err).Msg("Generation failed, answering from retrieved context")
			answer = generation.DegradedAnswer(docContext)
		}
	}

	sources := make([]models.Source, len(results))
	for i, r := range results {
		sources[i] = models.Source{
			Source:  r.Source,
			ChunkID: r.ChunkID,
			Text:    models.Excerpt(r.Text, models.SourceTextLimit),
		}
	}
	return &models.QueryResponse{Answer: answer, Sources: sources}, nil
}

// Stats reports the stored record count, degrading to zero if the store
// cannot be read.
func (s *Service) Stats(ctx context.Context) int {
	count, err := s.store.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Stats read failed, reporting zero")
		return 0
	}
	return count
}

// Clear drops every stored record and reinitializes the store.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return &StoreError{Op: "reset", Err: err}
	}
	log.Info().Msg("Vector store cleared")
	return nil
}
