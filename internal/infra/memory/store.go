// Package memory はプロセス内のみで完結する knowledge.Store の実装を提供する
// テストや、永続化を必要としないワンショットのCLI実行で使用する
package memory

import (
	"context"
	"sync"

	"github.com/samber/mo"

	"github.com/jinford/kb-ask/internal/core/knowledge"
)

// Store はミューテックスで保護されたインメモリのチャンク集合
type Store struct {
	mu     sync.RWMutex
	chunks []*knowledge.Chunk
}

// NewStore は空の Store を作成する
func NewStore() *Store {
	return &Store{}
}

// DeleteByDocumentID は指定ドキュメントの全チャンクを削除し、削除件数を返す
func (s *Store) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(documentID), nil
}

// InsertMany はチャンクをまとめて追加する
func (s *Store) InsertMany(ctx context.Context, chunks []*knowledge.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, chunks...)
	return nil
}

// ReplaceDocument は同一 DocumentID の既存チャンク集合を新しい集合で
// 原子的に置き換え、置き換え前の件数を返す
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, chunks []*knowledge.Chunk) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := s.deleteLocked(documentID)
	s.chunks = append(s.chunks, chunks...)
	return replaced, nil
}

// FindAll は全チャンクを挿入順で返す
func (s *Store) FindAll(ctx context.Context) ([]*knowledge.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*knowledge.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

// FindDocument は指定ドキュメントの概要を返す
// 存在しない場合は None を返す
func (s *Store) FindDocument(ctx context.Context, documentID string) (mo.Option[knowledge.DocumentInfo], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info knowledge.DocumentInfo
	for _, chunk := range s.chunks {
		if chunk.DocumentID != documentID {
			continue
		}
		info.DocumentID = documentID
		info.ChunkCount++
		if chunk.Title != "" {
			info.Title = chunk.Title
		}
		if chunk.CreatedAt.After(info.UpdatedAt) {
			info.UpdatedAt = chunk.CreatedAt
		}
	}
	if info.ChunkCount == 0 {
		return mo.None[knowledge.DocumentInfo](), nil
	}
	return mo.Some(info), nil
}

// Count は保存されているチャンクの総数を返す
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.chunks)), nil
}

// DeleteAll は全チャンクを削除し、削除件数を返す
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := int64(len(s.chunks))
	s.chunks = nil
	return deleted, nil
}

// Ping は常に成功する
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) deleteLocked(documentID string) int64 {
	var deleted int64
	kept := s.chunks[:0]
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			deleted++
			continue
		}
		kept = append(kept, chunk)
	}
	s.chunks = kept
	return deleted
}

// インターフェース実装の確認
var _ knowledge.Store = (*Store)(nil)
