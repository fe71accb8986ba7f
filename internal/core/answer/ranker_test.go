package answer

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/kb-ask/internal/core/knowledge"
)

func chunkWithEmbedding(content string, embedding []float32) *knowledge.Chunk {
	return &knowledge.Chunk{
		DocumentID:  "doc",
		Content:     content,
		Embedding:   embedding,
		TotalChunks: 1,
	}
}

// unitVector はクエリベクトル {1, 0} とのコサイン類似度が
// おおよそ score になる単位ベクトルを返す
func unitVector(score float64) []float32 {
	y := math.Sqrt(1 - score*score)
	return []float32{float32(score), float32(y)}
}

var query = []float32{1, 0}

func TestRank_EmptyCorpus(t *testing.T) {
	result := Rank(query, nil)

	assert.Equal(t, AnswerEmptyCorpus, result.Answer)
	assert.Equal(t, 0, result.Confidence)
	assert.True(t, result.Best.IsAbsent())
	assert.Empty(t, result.Top)
}

// TestDecide_TierBoundaries はしきい値ちょうどのスコアが
// 下位ティアに落ちることを確認する
func TestDecide_TierBoundaries(t *testing.T) {
	const content = "The sky is blue."
	chunk := chunkWithEmbedding(content, nil)

	tests := []struct {
		name           string
		score          float64
		wantAnswer     string
		wantHedged     bool
		wantConfidence int
	}{
		{
			name:           "0.70ちょうどは中ティアに落ちる",
			score:          0.70,
			wantHedged:     true,
			wantConfidence: 70,
		},
		{
			name:           "0.70をわずかに超えると高ティアになる",
			score:          0.7000001,
			wantAnswer:     content,
			wantConfidence: 70,
		},
		{
			name:           "0.60ちょうどは低ティアに落ちる",
			score:          0.60,
			wantAnswer:     AnswerNoMatch,
			wantConfidence: 0,
		},
		{
			name:           "0.60をわずかに超えると中ティアになる",
			score:          0.6000001,
			wantHedged:     true,
			wantConfidence: 60,
		},
		{
			name:           "確信度はスコアの四捨五入になる",
			score:          0.856,
			wantAnswer:     content,
			wantConfidence: 86,
		},
		{
			name:           "負のスコアでも確信度は0に留まる",
			score:          -0.5,
			wantAnswer:     AnswerNoMatch,
			wantConfidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, conf := decide(ScoredChunk{Chunk: chunk, Score: tt.score})

			assert.Equal(t, tt.wantConfidence, conf)
			if tt.wantHedged {
				assert.True(t, strings.HasSuffix(answer, content))
				assert.NotEqual(t, content, answer, "ヘッジ前置きが付くこと")
			} else {
				assert.Equal(t, tt.wantAnswer, answer)
			}
		})
	}
}

func TestRank_PicksBestAndKeepsTopThree(t *testing.T) {
	corpus := []*knowledge.Chunk{
		chunkWithEmbedding("low", unitVector(0.2)),
		chunkWithEmbedding("best", unitVector(0.95)),
		chunkWithEmbedding("mid", unitVector(0.5)),
		chunkWithEmbedding("second", unitVector(0.8)),
	}

	result := Rank(query, corpus)

	assert.Equal(t, "best", result.Answer)
	require.True(t, result.Best.IsPresent())
	assert.Equal(t, "best", result.Best.MustGet().Chunk.Content)
	require.Len(t, result.Top, 3)
	assert.Equal(t, "best", result.Top[0].Chunk.Content)
	assert.Equal(t, "second", result.Top[1].Chunk.Content)
	assert.Equal(t, "mid", result.Top[2].Chunk.Content)
}

func TestRank_MalformedEmbeddingsScoreZero(t *testing.T) {
	corpus := []*knowledge.Chunk{
		chunkWithEmbedding("nil embedding", nil),
		chunkWithEmbedding("wrong dimension", []float32{1, 2, 3}),
		chunkWithEmbedding("valid", unitVector(0.9)),
	}

	result := Rank(query, corpus)

	assert.Equal(t, "valid", result.Answer)
	assert.Equal(t, 90, result.Confidence)
}

func TestRank_TiesKeepCorpusOrder(t *testing.T) {
	// 同点の場合は元のスキャン順が保たれる（安定ソート）
	v := unitVector(0.9)
	corpus := []*knowledge.Chunk{
		chunkWithEmbedding("first", v),
		chunkWithEmbedding("second", v),
		chunkWithEmbedding("third", v),
	}

	result := Rank(query, corpus)

	require.Len(t, result.Top, 3)
	assert.Equal(t, "first", result.Top[0].Chunk.Content)
	assert.Equal(t, "second", result.Top[1].Chunk.Content)
	assert.Equal(t, "third", result.Top[2].Chunk.Content)
	assert.Equal(t, "first", result.Answer)
}

func TestRank_IdenticalVectorGivesFullConfidence(t *testing.T) {
	embedding := []float32{0.1, 0.2, 0.3, 0.4}
	corpus := []*knowledge.Chunk{chunkWithEmbedding("The sky is blue.", embedding)}

	result := Rank(embedding, corpus)

	assert.Equal(t, "The sky is blue.", result.Answer)
	assert.Equal(t, 100, result.Confidence)
}
