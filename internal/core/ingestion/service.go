// Package ingestion はドキュメント1件の取り込み
// （チャンク分割 → Embedding 生成 → ストア置き換え）をオーケストレーションする
package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/kb-ask/internal/core/chunker"
	"github.com/jinford/kb-ask/internal/core/knowledge"
)

// Embedder はテキストのバッチEmbedding生成インターフェース
// テスト時のモック用に消費者側で定義
type Embedder interface {
	// BatchEmbed は入力と同じ順序で、1テキストにつき1ベクトルを返す
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// MaxBatchSize は1回の呼び出しで受け付ける最大テキスト数を返す
	MaxBatchSize() int
}

// TokenCounter はテキストのトークン数をカウントするインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

// IngestParams は取り込みパラメータを表す
type IngestParams struct {
	DocumentID string
	Text       string
	Title      string
	Category   string
}

// IngestResult は取り込み結果を表す
type IngestResult struct {
	DocumentID     string
	ChunkCount     int
	ReplacedChunks int64 // 置き換え前に存在していたチャンク数
	TotalTokens    int
}

// Service は取り込みのユースケースを提供する
type Service struct {
	store          knowledge.Store
	embedder       Embedder
	tokenCounter   TokenCounter
	chunkMaxLength int
	logger         *slog.Logger
}

type serviceOptions struct {
	tokenCounter   TokenCounter
	chunkMaxLength int
	logger         *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithChunkMaxLength はチャンクの最大長を上書きする
func WithChunkMaxLength(maxLength int) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkMaxLength = maxLength
	}
}

// WithTokenCounter はトークンカウンタを設定する
// 未設定の場合、チャンクの TokenCount は 0 のまま保存される
func WithTokenCounter(counter TokenCounter) ServiceOption {
	return func(o *serviceOptions) {
		o.tokenCounter = counter
	}
}

// NewService は新しい取り込みサービスを作成する
func NewService(store knowledge.Store, embedder Embedder, opts ...ServiceOption) *Service {
	options := serviceOptions{
		chunkMaxLength: chunker.DefaultMaxLength,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.chunkMaxLength <= 0 {
		options.chunkMaxLength = chunker.DefaultMaxLength
	}

	return &Service{
		store:          store,
		embedder:       embedder,
		tokenCounter:   options.tokenCounter,
		chunkMaxLength: options.chunkMaxLength,
		logger:         options.logger,
	}
}

// Ingest はドキュメントを取り込み、既存の同一 DocumentID のチャンク集合を
// 新しい集合で置き換える（部分更新はしない）
func (s *Service) Ingest(ctx context.Context, params IngestParams) (*IngestResult, error) {
	if params.DocumentID == "" {
		return nil, knowledge.Validationf("documentID is required")
	}
	if params.Text == "" {
		return nil, knowledge.Validationf("text is required")
	}

	texts := chunker.Split(params.Text, s.chunkMaxLength)
	if len(texts) == 0 {
		return nil, knowledge.Validationf("no valid content in document %q", params.DocumentID)
	}

	embeddings, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, knowledge.Upstreamf("failed to embed chunks for document %q: %w", params.DocumentID, err)
	}
	if len(embeddings) != len(texts) {
		return nil, knowledge.Upstreamf("embedding provider returned %d vectors for %d chunks", len(embeddings), len(texts))
	}

	now := time.Now()
	totalTokens := 0
	chunks := make([]*knowledge.Chunk, len(texts))
	for i, text := range texts {
		tokenCount := 0
		if s.tokenCounter != nil {
			tokenCount = s.tokenCounter.CountTokens(text)
		}
		totalTokens += tokenCount

		chunks[i] = &knowledge.Chunk{
			ID:          uuid.New(),
			DocumentID:  params.DocumentID,
			ChunkIndex:  i,
			Content:     text,
			Embedding:   embeddings[i],
			Title:       params.Title,
			Category:    params.Category,
			TotalChunks: len(texts),
			TokenCount:  tokenCount,
			CreatedAt:   now,
		}
	}

	existing, err := s.store.FindDocument(ctx, params.DocumentID)
	if err != nil {
		return nil, knowledge.Upstreamf("failed to look up document %q: %w", params.DocumentID, err)
	}
	if info, ok := existing.Get(); ok {
		s.logger.Info("既存ドキュメントを置き換え",
			"documentID", params.DocumentID,
			"previousChunks", info.ChunkCount,
		)
	}

	replaced, err := s.store.ReplaceDocument(ctx, params.DocumentID, chunks)
	if err != nil {
		return nil, knowledge.Upstreamf("failed to replace document %q: %w", params.DocumentID, err)
	}

	s.logger.Info("ドキュメントを取り込みました",
		"documentID", params.DocumentID,
		"chunks", len(chunks),
		"replacedChunks", replaced,
		"totalTokens", totalTokens,
	)

	return &IngestResult{
		DocumentID:     params.DocumentID,
		ChunkCount:     len(chunks),
		ReplacedChunks: replaced,
		TotalTokens:    totalTokens,
	}, nil
}

// embedAll は全チャンクのEmbeddingを生成する
// チャンク数がプロバイダの最大バッチサイズ以下であれば1回のバッチ呼び出しになる
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := s.embedder.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, vectors...)
	}

	return embeddings, nil
}
