package handler

import (
	"context"
	"net/http"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/migration"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// MigrationServiceInterface は移行ハンドラーが必要とするサービスインターフェース。
type MigrationServiceInterface interface {
	// Locate はemailに一致する旧アカウントを検索する。見つからない場合はnilを返す。
	Locate(ctx context.Context, email string) (*model.LegacyAccount, error)
	// Migrate は旧アカウントの全レコードの所有権を新アカウントへ移す。
	Migrate(ctx context.Context, legacyID, newAccountID string) (*migration.Result, error)
	// Preview は移行対象の旧アカウントとレコードを変更なしで返す。
	Preview(ctx context.Context, email string) (*model.LegacyAccount, *migration.Result, error)
}

// MigrationHandler は旧アカウント移行のHTTPハンドラー。
type MigrationHandler struct {
	service MigrationServiceInterface
}

// NewMigrationHandler はMigrationHandlerを生成する。
func NewMigrationHandler(service MigrationServiceInterface) *MigrationHandler {
	return &MigrationHandler{service: service}
}

// migratedRecordsResponse は移行されたレコードのスナップショット。
type migratedRecordsResponse struct {
	Profile         []profileResponse       `json:"profile"`
	QuestionEntries []questionEntryResponse `json:"questionEntries"`
	HistoryEntries  []historyEntryResponse  `json:"historyEntries"`
}

// migrationSyncResponse は移行実行のAPIレスポンス。
type migrationSyncResponse struct {
	NewAccountID string                  `json:"newAccountId"`
	LegacyID     string                  `json:"legacyId"`
	Migrated     migratedRecordsResponse `json:"migrated"`
}

// migrationPreviewResponse は移行プレビューのAPIレスポンス。
type migrationPreviewResponse struct {
	LegacyID string                  `json:"legacyId"`
	Records  migratedRecordsResponse `json:"records"`
}

// Sync は呼び出し元のemailに紐付く旧アカウントの所有権移行を実行する。
// POST /api/migration/sync
func (h *MigrationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	legacy, err := h.service.Locate(r.Context(), account.Email)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	if legacy == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("legacy account"))
		return
	}

	result, err := h.service.Migrate(r.Context(), legacy.LocalID, account.ID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, migrationSyncResponse{
		NewAccountID: account.ID,
		LegacyID:     legacy.LocalID,
		Migrated:     toMigratedRecordsResponse(result),
	})
}

// Preview は移行対象のレコードを変更なしで返す。
// GET /api/migration/preview
func (h *MigrationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	legacy, records, err := h.service.Preview(r.Context(), account.Email)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	if legacy == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("legacy account"))
		return
	}

	writeJSON(w, http.StatusOK, migrationPreviewResponse{
		LegacyID: legacy.LocalID,
		Records:  toMigratedRecordsResponse(records),
	})
}

// toMigratedRecordsResponse は移行結果からAPIレスポンスに変換する。
// 各スライスは空でもnullではなく[]として返す。
func toMigratedRecordsResponse(result *migration.Result) migratedRecordsResponse {
	resp := migratedRecordsResponse{
		Profile:         make([]profileResponse, 0, len(result.Profiles)),
		QuestionEntries: make([]questionEntryResponse, 0, len(result.QuestionEntries)),
		HistoryEntries:  make([]historyEntryResponse, 0, len(result.HistoryEntries)),
	}
	for _, p := range result.Profiles {
		resp.Profile = append(resp.Profile, toProfileResponse(p))
	}
	for _, q := range result.QuestionEntries {
		resp.QuestionEntries = append(resp.QuestionEntries, toQuestionEntryResponse(q))
	}
	for _, e := range result.HistoryEntries {
		resp.HistoryEntries = append(resp.HistoryEntries, toHistoryEntryResponse(e))
	}
	return resp
}
