package rag

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/chunker"
	"docsearch/internal/extractor"
	"docsearch/internal/models"
	"docsearch/internal/vectorstore"
	"docsearch/internal/vectorstore/chromemdb"
)

// hashEmbedder is a deterministic bag-of-words embedder: identical texts
// embed to identical unit vectors, so exact-text queries rank their own
// chunk first.
type hashEmbedder struct{}

const hashDim = 32

func (hashEmbedder) embed(text string) []float32 {
	vec := make([]float32, hashDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%hashDim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}

func (e hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

type errEmbedder struct{}

func (errEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (errEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

// shortEmbedder returns fewer vectors than inputs.
type shortEmbedder struct{ hashEmbedder }

func (e shortEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.hashEmbedder.EmbedDocuments(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[:len(out)-1], nil
}

type failStore struct{}

func (failStore) Upsert(context.Context, []vectorstore.Record) error {
	return errors.New("store unavailable")
}

func (failStore) Query(context.Context, []float32, int) ([]vectorstore.Result, error) {
	return nil, errors.New("store unavailable")
}

func (failStore) Count(context.Context) (int, error) {
	return 0, errors.New("store unavailable")
}

func (failStore) Reset(context.Context) error {
	return errors.New("store unavailable")
}

type fakeGenerator struct {
	answer     string
	err        error
	lastPrompt string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func words(n, from int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", from+i)
	}
	return strings.Join(parts, " ")
}

func newTestService(t *testing.T, size, overlap int, gen *fakeGenerator) (*Service, vectorstore.Store) {
	t.Helper()
	ch, err := chunker.New(size, overlap)
	require.NoError(t, err)
	store, err := chromemdb.NewInMemory("documents")
	require.NoError(t, err)
	if gen == nil {
		return NewService(ch, hashEmbedder{}, store, nil), store
	}
	return NewService(ch, hashEmbedder{}, store, gen), store
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("Adds one record per chunk", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		added, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)
		assert.Equal(t, 4, added)
		assert.Equal(t, 4, svc.Stats(ctx))
	})

	t.Run("Empty document adds nothing", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		added, err := svc.Ingest(ctx, "empty.txt", []byte(""))
		require.NoError(t, err)
		assert.Zero(t, added)
		assert.Zero(t, svc.Stats(ctx))
	})

	t.Run("Whitespace-only document adds nothing", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		added, err := svc.Ingest(ctx, "blank.txt", []byte("  \n\t  "))
		require.NoError(t, err)
		assert.Zero(t, added)
	})

	t.Run("Unsupported extension leaves the store untouched", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		_, err := svc.Ingest(ctx, "data.csv", []byte("a,b,c"))
		var unsupported *extractor.UnsupportedFormatError
		require.ErrorAs(t, err, &unsupported)
		assert.Zero(t, svc.Stats(ctx))
	})

	t.Run("Embedding failure is typed and terminal", func(t *testing.T) {
		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		store, err := chromemdb.NewInMemory("documents")
		require.NoError(t, err)
		svc := NewService(ch, errEmbedder{}, store, nil)

		_, err = svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		var embErr *EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Zero(t, svc.Stats(ctx))
	})

	t.Run("Vector count mismatch is an embedding failure", func(t *testing.T) {
		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		store, err := chromemdb.NewInMemory("documents")
		require.NoError(t, err)
		svc := NewService(ch, shortEmbedder{}, store, nil)

		_, err = svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		var embErr *EmbeddingError
		require.ErrorAs(t, err, &embErr)
	})

	t.Run("Store failure is typed", func(t *testing.T) {
		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		svc := NewService(ch, hashEmbedder{}, failStore{}, nil)

		_, err = svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
	})

	t.Run("Re-upload of the same filename overwrites by id", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		added, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)
		again, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)
		assert.Equal(t, added, again)
		assert.Equal(t, added, svc.Stats(ctx), "count must not grow on re-upload")
	})
}

func TestAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty store answers with the fixed message", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		resp, err := svc.Answer(ctx, "anything at all?", 3)
		require.NoError(t, err)
		assert.Equal(t, models.NoResultsAnswer, resp.Answer)
		assert.Empty(t, resp.Sources)
	})

	t.Run("Exact chunk text retrieves its own chunk first", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		_, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)

		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		chunks := ch.Chunk(words(24, 0))
		require.Greater(t, len(chunks), 2)

		resp, err := svc.Answer(ctx, chunks[2], 3)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Sources)
		assert.Equal(t, "doc.txt", resp.Sources[0].Source)
		assert.Equal(t, 2, resp.Sources[0].ChunkID)
	})

	t.Run("Without a generator the local fallback answers", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		_, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)

		resp, err := svc.Answer(ctx, "word0 word1", 2)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(resp.Answer, models.LocalAnswerPrefix))
		assert.True(t, strings.HasSuffix(resp.Answer, "..."))
	})

	t.Run("Generator answer is returned verbatim", func(t *testing.T) {
		gen := &fakeGenerator{answer: "a canned answer"}
		svc, _ := newTestService(t, 10, 3, gen)
		_, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)

		resp, err := svc.Answer(ctx, "word0 word1", 2)
		require.NoError(t, err)
		assert.Equal(t, "a canned answer", resp.Answer)
		assert.Contains(t, gen.lastPrompt, "word0 word1", "prompt embeds the question")
		assert.Contains(t, gen.lastPrompt, "Context:", "prompt embeds the context block")
	})

	t.Run("Failing generator degrades to the context answer", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("quota exceeded")}
		svc, _ := newTestService(t, 10, 3, gen)
		_, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)

		resp, err := svc.Answer(ctx, "word0 word1", 2)
		require.NoError(t, err, "generation failure must not surface")
		assert.True(t, strings.HasPrefix(resp.Answer, models.DegradedAnswerPrefix))
		assert.Contains(t, resp.Answer, "word", "answer carries retrieved context")
	})

	t.Run("Long chunk text is truncated in sources", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		long := strings.Repeat("z", 300)
		_, err := svc.Ingest(ctx, "long.txt", []byte(long))
		require.NoError(t, err)

		resp, err := svc.Answer(ctx, long, 1)
		require.NoError(t, err)
		require.Len(t, resp.Sources, 1)
		assert.Equal(t, strings.Repeat("z", 200)+"...", resp.Sources[0].Text)
	})

	t.Run("Short chunk text is returned unmodified", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		_, err := svc.Ingest(ctx, "short.txt", []byte("a tiny document"))
		require.NoError(t, err)

		resp, err := svc.Answer(ctx, "a tiny document", 1)
		require.NoError(t, err)
		require.Len(t, resp.Sources, 1)
		assert.Equal(t, "a tiny document", resp.Sources[0].Text)
	})

	t.Run("Non-positive n_results falls back to the default", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		_, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)

		resp, err := svc.Answer(ctx, "word0", 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(resp.Sources), 3)
		assert.NotEmpty(t, resp.Sources)
	})

	t.Run("Embedding failure is typed", func(t *testing.T) {
		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		store, err := chromemdb.NewInMemory("documents")
		require.NoError(t, err)
		svc := NewService(ch, errEmbedder{}, store, nil)

		_, err = svc.Answer(ctx, "question", 3)
		var embErr *EmbeddingError
		require.ErrorAs(t, err, &embErr)
	})

	t.Run("Store failure is typed", func(t *testing.T) {
		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		svc := NewService(ch, hashEmbedder{}, failStore{}, nil)

		_, err = svc.Answer(ctx, "question", 3)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
	})
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, chunker.DefaultChunkSize, chunker.DefaultOverlap, nil)

	text := words(1200, 0)
	added, err := svc.Ingest(ctx, "big.txt", []byte(text))
	require.NoError(t, err)
	require.Equal(t, 3, added, "1200 words at 500/50 must produce 3 chunks")

	// Chunk 2 spans words 900..1199; querying with its exact text must
	// surface it among the returned sources.
	all := strings.Fields(text)
	question := strings.Join(all[900:], " ")
	resp, err := svc.Answer(ctx, question, 3)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Sources)

	found := false
	for _, s := range resp.Sources {
		if s.Source == "big.txt" && s.ChunkID == 2 {
			found = true
		}
	}
	assert.True(t, found, "chunk 2 must appear in the sources")
}

func TestStats(t *testing.T) {
	ctx := context.Background()

	t.Run("Reports the stored count", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		_, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)
		assert.Equal(t, 4, svc.Stats(ctx))
	})

	t.Run("Degrades to zero on store failure", func(t *testing.T) {
		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		svc := NewService(ch, hashEmbedder{}, failStore{}, nil)
		assert.Zero(t, svc.Stats(ctx))
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()

	t.Run("Clear empties the store and is idempotent", func(t *testing.T) {
		svc, _ := newTestService(t, 10, 3, nil)
		_, err := svc.Ingest(ctx, "doc.txt", []byte(words(24, 0)))
		require.NoError(t, err)

		require.NoError(t, svc.Clear(ctx))
		assert.Zero(t, svc.Stats(ctx))

		require.NoError(t, svc.Clear(ctx))
		assert.Zero(t, svc.Stats(ctx))
	})

	t.Run("Store failure is typed", func(t *testing.T) {
		ch, err := chunker.New(10, 3)
		require.NoError(t, err)
		svc := NewService(ch, hashEmbedder{}, failStore{}, nil)

		err = svc.Clear(ctx)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
	})
}
