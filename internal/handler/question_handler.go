package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// QuestionServiceInterface はQ&Aハンドラーが必要とするサービスインターフェース。
type QuestionServiceInterface interface {
	// Submit は新しいQ&Aフィードバックを登録する。
	Submit(ctx context.Context, ownerID, email, questionText string, name *string, mailSent *bool) (*model.QuestionEntry, error)
}

// QuestionHandler はQ&Aフィードバックのハンドラー。
type QuestionHandler struct {
	service QuestionServiceInterface
}

// NewQuestionHandler はQuestionHandlerを生成する。
func NewQuestionHandler(service QuestionServiceInterface) *QuestionHandler {
	return &QuestionHandler{service: service}
}

// submitQuestionRequest はQ&A登録リクエストのボディ。
type submitQuestionRequest struct {
	Question string  `json:"question"`
	Name     *string `json:"name"`
	MailSent *bool   `json:"mailSent"`
}

// questionEntryResponse はQ&AフィードバックのAPIレスポンス。
type questionEntryResponse struct {
	ID         int64  `json:"id"`
	OwnerID    string `json:"ownerId"`
	Date       string `json:"date"`
	Question   string `json:"question"`
	IsAnswered bool   `json:"isAnswered"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	MailSent   *bool  `json:"mailSent"`
}

// Submit はQ&Aフィードバックの登録を処理する。
// POST /api/questions
func (h *QuestionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req submitQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	entry, err := h.service.Submit(r.Context(), account.ID, account.Email, req.Question, req.Name, req.MailSent)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toQuestionEntryResponse(entry))
}

// toQuestionEntryResponse はmodel.QuestionEntryからAPIレスポンスに変換する。
func toQuestionEntryResponse(entry *model.QuestionEntry) questionEntryResponse {
	return questionEntryResponse{
		ID:         entry.ID,
		OwnerID:    entry.OwnerID,
		Date:       entry.Date,
		Question:   entry.Question,
		IsAnswered: entry.IsAnswered,
		Name:       entry.Name,
		Email:      entry.Email,
		MailSent:   entry.MailSent,
	}
}
