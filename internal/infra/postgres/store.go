package postgres

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/kb-ask/internal/core/knowledge"
)

// Store は PostgreSQL + pgvector によるチャンク永続化を提供する
type Store struct {
	pool *pgxpool.Pool
}

// NewStore は新しい Store を作成する
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema は vector 拡張とチャンクテーブルを作成する
// dimension は embedding カラムの次元数を指定する
func (s *Store) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			title TEXT,
			category TEXT,
			total_chunks INT NOT NULL,
			token_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (document_id, chunk_index)
		)`, dimension)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	if _, err := s.pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks (document_id)"); err != nil {
		return fmt.Errorf("failed to create document_id index: %w", err)
	}

	return nil
}

// DeleteByDocumentID は指定ドキュメントの全チャンクを削除し、削除件数を返す
func (s *Store) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunks WHERE document_id = $1", documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for document %q: %w", documentID, err)
	}
	return tag.RowsAffected(), nil
}

// InsertMany はチャンクをまとめて挿入する
func (s *Store) InsertMany(ctx context.Context, chunks []*knowledge.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return insertMany(ctx, s.pool, chunks)
}

// ReplaceDocument は同一 DocumentID の既存チャンク集合を新しい集合で
// 原子的に置き換え、置き換え前の件数を返す
//
// トランザクションスコープのアドバイザリロックで DocumentID ごとに
// 直列化するため、同一ドキュメントへの並行取り込みでも削除と挿入が
// 交錯しない。ロックはコミット/ロールバック時に自動解放される。
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, chunks []*knowledge.Chunk) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", documentLockID(documentID)); err != nil {
		return 0, fmt.Errorf("failed to acquire advisory lock for document %q: %w", documentID, err)
	}

	tag, err := tx.Exec(ctx, "DELETE FROM chunks WHERE document_id = $1", documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for document %q: %w", documentID, err)
	}
	replaced := tag.RowsAffected()

	if err := insertMany(ctx, tx, chunks); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return replaced, nil
}

// FindAll は全チャンクを document_id, chunk_index 順で返す
func (s *Store) FindAll(ctx context.Context) ([]*knowledge.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, content, embedding,
		       title, category, total_chunks, token_count, created_at
		FROM chunks
		ORDER BY document_id, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*knowledge.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return chunks, nil
}

// FindDocument は指定ドキュメントの概要を返す
// 存在しない場合は None を返す
func (s *Store) FindDocument(ctx context.Context, documentID string) (mo.Option[knowledge.DocumentInfo], error) {
	row := s.pool.QueryRow(ctx, `
		SELECT document_id, COUNT(*), MAX(COALESCE(title, '')), MAX(created_at)
		FROM chunks
		WHERE document_id = $1
		GROUP BY document_id`, documentID)

	var info knowledge.DocumentInfo
	var chunkCount int64
	var updatedAt pgtype.Timestamptz
	err := row.Scan(&info.DocumentID, &chunkCount, &info.Title, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return mo.None[knowledge.DocumentInfo](), nil
	}
	if err != nil {
		return mo.None[knowledge.DocumentInfo](), fmt.Errorf("failed to find document %q: %w", documentID, err)
	}

	info.ChunkCount = int(chunkCount)
	info.UpdatedAt = updatedAt.Time
	return mo.Some(info), nil
}

// Count は保存されているチャンクの総数を返す
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// DeleteAll は全チャンクを削除し、削除件数を返す
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunks")
	if err != nil {
		return 0, fmt.Errorf("failed to delete all chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping はデータベースへの疎通を確認する
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// querier は pgxpool.Pool と pgx.Tx に共通の実行インターフェース
type querier interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func insertMany(ctx context.Context, q querier, chunks []*knowledge.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(`
			INSERT INTO chunks (
				id, document_id, chunk_index, content, embedding,
				title, category, total_chunks, token_count, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			UUIDToPgtype(chunk.ID),
			chunk.DocumentID,
			chunk.ChunkIndex,
			chunk.Content,
			pgvector.NewVector(chunk.Embedding),
			StringToNullableText(chunk.Title),
			StringToNullableText(chunk.Category),
			chunk.TotalChunks,
			chunk.TokenCount,
			TimeToPgtype(chunk.CreatedAt),
		)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return nil
}

func scanChunk(rows pgx.Rows) (*knowledge.Chunk, error) {
	var (
		chunk     knowledge.Chunk
		id        pgtype.UUID
		embedding pgvector.Vector
		title     pgtype.Text
		category  pgtype.Text
		createdAt pgtype.Timestamptz
	)
	if err := rows.Scan(
		&id,
		&chunk.DocumentID,
		&chunk.ChunkIndex,
		&chunk.Content,
		&embedding,
		&title,
		&category,
		&chunk.TotalChunks,
		&chunk.TokenCount,
		&createdAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}

	chunk.ID = PgtypeToUUID(id)
	chunk.Embedding = embedding.Slice()
	chunk.Title = PgtextToString(title)
	chunk.Category = PgtextToString(category)
	chunk.CreatedAt = createdAt.Time
	return &chunk, nil
}

// documentLockID は DocumentID からアドバイザリロックIDを生成する
// ハッシュの最初の8バイトをint64として使用
func documentLockID(documentID string) int64 {
	hash := sha256.Sum256([]byte(documentID))

	var id int64
	for i := range 8 {
		id = (id << 8) | int64(hash[i])
	}

	return id
}

// インターフェース実装の確認
var _ knowledge.Store = (*Store)(nil)
