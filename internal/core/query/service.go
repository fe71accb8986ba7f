// Package query は質問応答のオーケストレーション
// （質問のEmbedding → 全件スキャン → ランキング）を提供する
package query

import (
	"context"
	"log/slog"

	"github.com/samber/mo"

	"github.com/jinford/kb-ask/internal/core/answer"
	"github.com/jinford/kb-ask/internal/core/knowledge"
)

// Embedder はテキストのEmbedding生成インターフェース
// テスト時のモック用に消費者側で定義
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Answer     string
	Confidence int // 0–100
	// Best は最上位マッチ（コーパスが空の場合は absent）
	Best mo.Option[answer.ScoredChunk]
}

// Health はヘルスチェックの結果を表す
type Health struct {
	ChunkCount int64
}

// Service は質問応答・統計・クリアのユースケースを提供する
type Service struct {
	store    knowledge.Store
	embedder Embedder
	logger   *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しいクエリサービスを作成する
func NewService(store knowledge.Store, embedder Embedder, opts ...ServiceOption) *Service {
	svc := &Service{
		store:    store,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Ask は質問に最も関連するチャンクを選択して回答を返す
// Embedding プロバイダやストアの障害はエラーとして呼び出し元に伝播する
func (s *Service) Ask(ctx context.Context, question string) (*AskResult, error) {
	if question == "" {
		return nil, knowledge.Validationf("question is required")
	}

	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, knowledge.Upstreamf("failed to embed question: %w", err)
	}

	corpus, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, knowledge.Upstreamf("failed to scan store: %w", err)
	}

	result := answer.Rank(queryVector, corpus)

	for i, match := range result.Top {
		s.logger.Debug("上位マッチ",
			"rank", i+1,
			"documentID", match.Chunk.DocumentID,
			"chunkIndex", match.Chunk.ChunkIndex,
			"score", match.Score,
		)
	}
	s.logger.Info("質問に回答しました",
		"corpusSize", len(corpus),
		"confidence", result.Confidence,
	)

	return &AskResult{
		Answer:     result.Answer,
		Confidence: result.Confidence,
		Best:       result.Best,
	}, nil
}

// Stats は保存されているチャンクの総数を返す
func (s *Service) Stats(ctx context.Context) (int64, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, knowledge.Upstreamf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Clear は全チャンクを削除し、削除件数を返す
func (s *Service) Clear(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, knowledge.Upstreamf("failed to clear store: %w", err)
	}

	s.logger.Info("ナレッジベースをクリアしました", "deleted", deleted)
	return deleted, nil
}

// CheckHealth はストレージの到達性と現在のチャンク数を報告する
func (s *Service) CheckHealth(ctx context.Context) (*Health, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, knowledge.Upstreamf("storage unreachable: %w", err)
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, knowledge.Upstreamf("failed to count chunks: %w", err)
	}

	return &Health{ChunkCount: count}, nil
}
