package httpapi

// IngestRequest は POST /api/documents のリクエストボディ
type IngestRequest struct {
	DocumentID string `json:"documentId"`
	Text       string `json:"text"`
	Title      string `json:"title,omitempty"`
	Category   string `json:"category,omitempty"`
}

// IngestResponse は POST /api/documents のレスポンスボディ
type IngestResponse struct {
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
}

// QueryRequest は POST /api/query のリクエストボディ
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse は POST /api/query のレスポンスボディ
// MatchedDocumentID と MatchedScore は最上位マッチがある場合のみ設定される
type QueryResponse struct {
	Answer            string   `json:"answer"`
	Confidence        int      `json:"confidence"`
	MatchedDocumentID string   `json:"matchedDocumentId,omitempty"`
	MatchedScore      *float64 `json:"matchedScore,omitempty"`
}

// StatsResponse は GET /api/stats のレスポンスボディ
type StatsResponse struct {
	ChunkCount int64 `json:"chunkCount"`
}

// ClearResponse は DELETE /api/documents のレスポンスボディ
type ClearResponse struct {
	Deleted int64 `json:"deleted"`
}

// HealthResponse は GET /health のレスポンスボディ
type HealthResponse struct {
	Status     string `json:"status"`
	ChunkCount int64  `json:"chunkCount,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ErrorResponse はエラーレスポンスの共通形式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail はエラーの詳細
type ErrorDetail struct {
	Message string `json:"message"`
}
