package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/history"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// HistoryServiceInterface はヒストリーハンドラーが必要とするサービスインターフェース。
type HistoryServiceInterface interface {
	// Create は新しいヒストリーエントリーを作成する。
	Create(ctx context.Context, ownerID, text string, name *string, isReady *bool) (*model.HistoryEntry, error)
	// Update は所有者が一致するエントリーを部分更新する。
	Update(ctx context.Context, ownerID string, id int64, in history.UpdateInput) error
	// ListMine は呼び出し元が所有する全エントリーを返す。
	ListMine(ctx context.Context, ownerID string) ([]*model.HistoryEntry, error)
	// ListPage は全体のエントリーをページングして返す。
	ListPage(ctx context.Context, sort string, limit, offset int) ([]*model.HistoryEntry, error)
	// CountReady は公開済みエントリーの総数を返す。
	CountReady(ctx context.Context) (int, error)
}

// HistoryHandler はヒストリー管理のHTTPハンドラー。
type HistoryHandler struct {
	service HistoryServiceInterface
}

// NewHistoryHandler はHistoryHandlerを生成する。
func NewHistoryHandler(service HistoryServiceInterface) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// createHistoryRequest はヒストリー作成リクエストのボディ。
type createHistoryRequest struct {
	Text    string  `json:"text"`
	Name    *string `json:"name"`
	IsReady *bool   `json:"isReady"`
}

// updateHistoryRequest はヒストリー部分更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateHistoryRequest struct {
	Text    *string `json:"text"`
	Name    *string `json:"name"`
	IsReady *bool   `json:"isReady"`
}

// historyEntryResponse はヒストリーエントリーのAPIレスポンス。
type historyEntryResponse struct {
	ID            int64  `json:"id"`
	OwnerID       string `json:"ownerId"`
	Date          string `json:"date"`
	DateTimestamp int64  `json:"dateTimestamp"`
	Name          string `json:"name"`
	Text          string `json:"text"`
	IsReady       bool   `json:"isReady"`
}

// countResponse は件数のAPIレスポンス。
type countResponse struct {
	Count int `json:"count"`
}

// Create はヒストリーエントリーの作成を処理する。
// POST /api/histories
func (h *HistoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	entry, err := h.service.Create(r.Context(), account.ID, req.Text, req.Name, req.IsReady)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toHistoryEntryResponse(entry))
}

// Update はヒストリーエントリーの部分更新を処理する。
// PATCH /api/histories/:id
func (h *HistoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("id must be an integer"))
		return
	}

	var req updateHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	in := history.UpdateInput{
		Text:    req.Text,
		Name:    req.Name,
		IsReady: req.IsReady,
	}

	if err := h.service.Update(r.Context(), account.ID, id, in); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMine は呼び出し元が所有するエントリー一覧を返す。
// GET /api/histories
func (h *HistoryHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	entries, err := h.service.ListMine(r.Context(), account.ID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryEntryResponses(entries))
}

// ListPage は全体のエントリーをページングして返す。
// GET /api/histories/page?sort=&limit=&offset=
// sortの省略は"id"、limitの省略は10として扱う。
func (h *HistoryHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sort := q.Get("sort")
	if sort == "" {
		sort = "id"
	}

	limit, err := queryInt(q.Get("limit"), 10)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("limit must be an integer"))
		return
	}

	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("offset must be an integer"))
		return
	}

	entries, err := h.service.ListPage(r.Context(), sort, limit, offset)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryEntryResponses(entries))
}

// CountReady は公開済みエントリーの総数を返す。
// GET /api/histories/ready-count
func (h *HistoryHandler) CountReady(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountReady(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// --- ヘルパー関数 ---

// toHistoryEntryResponse はmodel.HistoryEntryからAPIレスポンスに変換する。
func toHistoryEntryResponse(entry *model.HistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:            entry.ID,
		OwnerID:       entry.OwnerID,
		Date:          entry.Date,
		DateTimestamp: entry.DateTimestamp,
		Name:          entry.Name,
		Text:          entry.Text,
		IsReady:       entry.IsReady,
	}
}

// toHistoryEntryResponses はエントリーのスライスをAPIレスポンスに変換する。
// 空でもnullではなく[]として返す。
func toHistoryEntryResponses(entries []*model.HistoryEntry) []historyEntryResponse {
	resp := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, toHistoryEntryResponse(entry))
	}
	return resp
}

// queryInt はクエリパラメータを整数として解釈する。空文字はデフォルト値を返す。
func queryInt(v string, defaultVal int) (int, error) {
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}
