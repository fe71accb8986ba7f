package query

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/kb-ask/internal/core/answer"
	"github.com/jinford/kb-ask/internal/core/knowledge"
)

// stubStore は knowledge.Store のテスト用スタブ
type stubStore struct {
	chunks     []*knowledge.Chunk
	findAllErr error
	count      int64
	countErr   error
	deleted    int64
	deleteErr  error
	pingErr    error
}

func (s *stubStore) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	return 0, nil
}

func (s *stubStore) InsertMany(ctx context.Context, chunks []*knowledge.Chunk) error {
	return nil
}

func (s *stubStore) ReplaceDocument(ctx context.Context, documentID string, chunks []*knowledge.Chunk) (int64, error) {
	return 0, nil
}

func (s *stubStore) FindAll(ctx context.Context) ([]*knowledge.Chunk, error) {
	if s.findAllErr != nil {
		return nil, s.findAllErr
	}
	return s.chunks, nil
}

func (s *stubStore) FindDocument(ctx context.Context, documentID string) (mo.Option[knowledge.DocumentInfo], error) {
	return mo.None[knowledge.DocumentInfo](), nil
}

func (s *stubStore) Count(ctx context.Context) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.count, nil
}

func (s *stubStore) DeleteAll(ctx context.Context) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return s.deleted, nil
}

func (s *stubStore) Ping(ctx context.Context) error {
	return s.pingErr
}

// stubEmbedder は Embedder のテスト用スタブ
type stubEmbedder struct {
	vector []float32
	err    error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func TestAsk_空の質問はバリデーションエラー(t *testing.T) {
	t.Parallel()

	svc := NewService(&stubStore{}, &stubEmbedder{})

	result, err := svc.Ask(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, knowledge.IsValidation(err))
}

func TestAsk_空のコーパスは固定回答(t *testing.T) {
	t.Parallel()

	svc := NewService(&stubStore{}, &stubEmbedder{vector: []float32{1, 0}})

	result, err := svc.Ask(context.Background(), "What is the sky?")
	require.NoError(t, err)

	assert.Equal(t, answer.AnswerEmptyCorpus, result.Answer)
	assert.Equal(t, 0, result.Confidence)
	assert.True(t, result.Best.IsAbsent())
}

func TestAsk_完全一致は原文が返る(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		chunks: []*knowledge.Chunk{
			{DocumentID: "facts", ChunkIndex: 0, Content: "The sky is blue.", Embedding: []float32{1, 0}},
			{DocumentID: "facts", ChunkIndex: 1, Content: "Grass is green.", Embedding: []float32{0, 1}},
		},
	}
	svc := NewService(store, &stubEmbedder{vector: []float32{1, 0}})

	result, err := svc.Ask(context.Background(), "What color is the sky?")
	require.NoError(t, err)

	assert.Equal(t, "The sky is blue.", result.Answer)
	assert.Equal(t, 100, result.Confidence)

	best, ok := result.Best.Get()
	require.True(t, ok)
	assert.Equal(t, "facts", best.Chunk.DocumentID)
	assert.Equal(t, 0, best.Chunk.ChunkIndex)
	assert.InDelta(t, 1.0, best.Score, 1e-6)
}

func TestAsk_Embedder障害はアップストリームエラー(t *testing.T) {
	t.Parallel()

	svc := NewService(&stubStore{}, &stubEmbedder{err: errors.New("quota exceeded")})

	_, err := svc.Ask(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, knowledge.IsUpstream(err))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestAsk_ストア障害はアップストリームエラー(t *testing.T) {
	t.Parallel()

	store := &stubStore{findAllErr: errors.New("connection refused")}
	svc := NewService(store, &stubEmbedder{vector: []float32{1, 0}})

	_, err := svc.Ask(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, knowledge.IsUpstream(err))
}

func TestStats(t *testing.T) {
	t.Parallel()

	svc := NewService(&stubStore{count: 42}, &stubEmbedder{})

	count, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestClear(t *testing.T) {
	t.Parallel()

	svc := NewService(&stubStore{deleted: 7}, &stubEmbedder{})

	deleted, err := svc.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
}

func TestCheckHealth(t *testing.T) {
	t.Parallel()

	t.Run("正常", func(t *testing.T) {
		t.Parallel()

		svc := NewService(&stubStore{count: 3}, &stubEmbedder{})

		health, err := svc.CheckHealth(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), health.ChunkCount)
	})

	t.Run("ストレージ到達不能", func(t *testing.T) {
		t.Parallel()

		svc := NewService(&stubStore{pingErr: errors.New("timeout")}, &stubEmbedder{})

		_, err := svc.CheckHealth(context.Background())
		require.Error(t, err)
		assert.True(t, knowledge.IsUpstream(err))
	})
}
