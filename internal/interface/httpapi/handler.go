// Package httpapi はナレッジベースのHTTPサービスを提供する
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jinford/kb-ask/internal/core/ingestion"
	"github.com/jinford/kb-ask/internal/core/knowledge"
	"github.com/jinford/kb-ask/internal/core/query"
)

// Handler はHTTPエンドポイントを提供する
type Handler struct {
	ingestSvc *ingestion.Service
	querySvc  *query.Service
	logger    *slog.Logger
}

// NewHandler は新しい Handler を作成する
func NewHandler(ingestSvc *ingestion.Service, querySvc *query.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ingestSvc: ingestSvc,
		querySvc:  querySvc,
		logger:    logger,
	}
}

// Routes はエンドポイントを登録した ServeMux を返す
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents", h.handleIngest)
	mux.HandleFunc("DELETE /api/documents", h.handleClear)
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

// handleIngest は POST /api/documents を処理する
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.ingestSvc.Ingest(r.Context(), ingestion.IngestParams{
		DocumentID: req.DocumentID,
		Text:       req.Text,
		Title:      req.Title,
		Category:   req.Category,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		DocumentID: result.DocumentID,
		ChunkCount: result.ChunkCount,
	})
}

// handleQuery は POST /api/query を処理する
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.querySvc.Ask(r.Context(), req.Question)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := QueryResponse{
		Answer:     result.Answer,
		Confidence: result.Confidence,
	}
	if best, ok := result.Best.Get(); ok {
		resp.MatchedDocumentID = best.Chunk.DocumentID
		score := best.Score
		resp.MatchedScore = &score
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStats は GET /api/stats を処理する
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.querySvc.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{ChunkCount: count})
}

// handleClear は DELETE /api/documents を処理する
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.querySvc.Clear(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ClearResponse{Deleted: deleted})
}

// handleHealth は GET /health を処理する
// ストレージに到達できない場合は 503 を返す
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.querySvc.CheckHealth(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Error:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		ChunkCount: health.ChunkCount,
	})
}

// writeServiceError はエラー種別をHTTPステータスに対応付ける
// バリデーション → 400 / 依存先障害 → 502 / それ以外 → 500
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case knowledge.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case knowledge.IsUpstream(err):
		h.logger.Error("依存先エラー", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("内部エラー", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Message: msg},
	})
}
