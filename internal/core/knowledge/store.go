package knowledge

import (
	"context"

	"github.com/samber/mo"
)

// Store はチャンクの永続化レイヤーのインターフェース
// 呼び出し単位の成功/失敗以外のトランザクション保証は仮定しない
// （ReplaceDocument のみ、同一 DocumentID に対する置き換えの原子性を提供する）
type Store interface {
	// DeleteByDocumentID は指定ドキュメントの全チャンクを削除し、削除件数を返す
	DeleteByDocumentID(ctx context.Context, documentID string) (int64, error)

	// InsertMany はチャンクを一括挿入する
	InsertMany(ctx context.Context, chunks []*Chunk) error

	// ReplaceDocument は指定ドキュメントのチャンク集合を原子的に置き換える
	// 同一 DocumentID に対する並行呼び出しは直列化される
	// 戻り値は置き換え前に存在していたチャンク数
	ReplaceDocument(ctx context.Context, documentID string, chunks []*Chunk) (int64, error)

	// FindAll は保存されている全チャンクを返す（クエリ時の全件スキャン用）
	FindAll(ctx context.Context) ([]*Chunk, error)

	// FindDocument はドキュメント単位の集計情報を返す
	FindDocument(ctx context.Context, documentID string) (mo.Option[DocumentInfo], error)

	// Count は保存されているチャンクの総数を返す
	Count(ctx context.Context) (int64, error)

	// DeleteAll は全チャンクを削除し、削除件数を返す
	DeleteAll(ctx context.Context) (int64, error)

	// Ping はストレージへの到達性を確認する（ヘルスチェック用）
	Ping(ctx context.Context) error
}
