package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/kb-ask/internal/core/knowledge"
)

const testDimension = 3

// setupStore は pgvector 入りの PostgreSQL コンテナを起動して Store を返す
// Docker が利用できない環境ではテストをスキップする
func setupStore(t *testing.T) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("short モードのためスキップ")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Docker に接続できないためスキップ: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Docker に接続できないためスキップ: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=kb_ask_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})
	_ = resource.Expire(300)

	var pgPool *pgxpool.Pool
	err = pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		connString := fmt.Sprintf(
			"host=localhost port=%s user=test password=test dbname=kb_ask_test sslmode=disable",
			resource.GetPort("5432/tcp"),
		)
		p, err := pgxpool.New(ctx, connString)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pgPool = p
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(pgPool.Close)

	store := NewStore(pgPool)
	require.NoError(t, store.EnsureSchema(context.Background(), testDimension))
	return store
}

func newChunk(documentID string, index, total int, content string, embedding []float32) *knowledge.Chunk {
	return &knowledge.Chunk{
		ID:          uuid.New(),
		DocumentID:  documentID,
		ChunkIndex:  index,
		Content:     content,
		Embedding:   embedding,
		Title:       "title",
		Category:    "category",
		TotalChunks: total,
		CreatedAt:   time.Now(),
	}
}

func TestStore_往復(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	chunks := []*knowledge.Chunk{
		newChunk("doc-1", 0, 2, "first chunk.", []float32{1, 0, 0}),
		newChunk("doc-1", 1, 2, "second chunk.", []float32{0, 1, 0}),
		newChunk("doc-2", 0, 1, "other doc.", []float32{0, 0, 1}),
	}
	require.NoError(t, store.InsertMany(ctx, chunks))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	found, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, found, 3)

	// document_id, chunk_index 順
	assert.Equal(t, "doc-1", found[0].DocumentID)
	assert.Equal(t, 0, found[0].ChunkIndex)
	assert.Equal(t, "first chunk.", found[0].Content)
	assert.Equal(t, []float32{1, 0, 0}, found[0].Embedding)
	assert.Equal(t, "title", found[0].Title)
	assert.Equal(t, "category", found[0].Category)
	assert.Equal(t, 2, found[0].TotalChunks)

	info, err := store.FindDocument(ctx, "doc-1")
	require.NoError(t, err)
	docInfo, ok := info.Get()
	require.True(t, ok)
	assert.Equal(t, "doc-1", docInfo.DocumentID)
	assert.Equal(t, 2, docInfo.ChunkCount)

	missing, err := store.FindDocument(ctx, "no-such-doc")
	require.NoError(t, err)
	assert.True(t, missing.IsAbsent())
}

func TestStore_ReplaceDocument(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	original := []*knowledge.Chunk{
		newChunk("doc-r", 0, 2, "old first.", []float32{1, 0, 0}),
		newChunk("doc-r", 1, 2, "old second.", []float32{0, 1, 0}),
	}
	require.NoError(t, store.InsertMany(ctx, original))

	replacement := []*knowledge.Chunk{
		newChunk("doc-r", 0, 1, "new only.", []float32{0, 0, 1}),
	}
	replaced, err := store.ReplaceDocument(ctx, "doc-r", replacement)
	require.NoError(t, err)
	assert.Equal(t, int64(2), replaced)

	found, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "new only.", found[0].Content)
}

func TestStore_並行置き換えで重複しない(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	const workers = 8
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			chunks := []*knowledge.Chunk{
				newChunk("doc-race", 0, 2, fmt.Sprintf("worker %d first.", n), []float32{1, 0, 0}),
				newChunk("doc-race", 1, 2, fmt.Sprintf("worker %d second.", n), []float32{0, 1, 0}),
			}
			_, err := store.ReplaceDocument(ctx, "doc-race", chunks)
			errCh <- err
		}(i)
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errCh)
	}

	// どのワーカーが勝っても、残るのは必ず1世代ぶんの2チャンク
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStore_クリアと削除(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertMany(ctx, []*knowledge.Chunk{
		newChunk("doc-a", 0, 1, "a.", []float32{1, 0, 0}),
		newChunk("doc-b", 0, 1, "b.", []float32{0, 1, 0}),
	}))

	deleted, err := store.DeleteByDocumentID(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = store.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
