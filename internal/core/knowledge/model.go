package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// Chunk はナレッジベースに保存されるドキュメント断片を表す
// 同一 DocumentID の ChunkIndex は [0, TotalChunks) の連続した範囲をとり、
// TotalChunks はドキュメント内のすべてのチャンクで同一になる
type Chunk struct {
	ID          uuid.UUID
	DocumentID  string
	ChunkIndex  int
	Content     string
	Embedding   []float32
	Title       string
	Category    string
	TotalChunks int
	TokenCount  int
	CreatedAt   time.Time
}

// DocumentInfo はドキュメント単位の集計情報を表す
type DocumentInfo struct {
	DocumentID string
	ChunkCount int
	Title      string
	UpdatedAt  time.Time
}
