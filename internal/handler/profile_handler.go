package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// Init はアカウントのプロフィールを初期化する。アカウントにつき1回のみ。
	Init(ctx context.Context, ownerID string, in profile.InitInput) (*model.Profile, error)
	// Load は呼び出し元のプロフィールを取得する。
	Load(ctx context.Context, ownerID string) (*model.Profile, error)
	// UpdateNiko はニコチン摂取量の設定を更新する。
	UpdateNiko(ctx context.Context, ownerID string, niko float64) error
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// initProfileRequest はプロフィール初期化リクエストのボディ。
// 必須フィールドはポインタとして受け取り、省略とゼロ値を区別する。
type initProfileRequest struct {
	SelectedDateYear   *int     `json:"selectedDateYear"`
	SelectedDateMonth  *int     `json:"selectedDateMonth"`
	SelectedDateDay    *int     `json:"selectedDateDay"`
	SelectedTimeHour   *int     `json:"selectedTimeHour"`
	SelectedTimeMinute *int     `json:"selectedTimeMinute"`
	StartDateYear      *int     `json:"startDateYear"`
	StartDateMonth     *int     `json:"startDateMonth"`
	StartDateDay       *int     `json:"startDateDay"`
	Money              *float64 `json:"money"`
	Smol               *int     `json:"smol"`
	Cigarette          *int     `json:"cigarette"`
	Niko               *float64 `json:"niko"`
	Age                *int     `json:"age"`

	Name     *string `json:"name"`
	Currency *string `json:"currency"`
	IsPro    *bool   `json:"isPro"`
}

// updateNikoRequest はニコチン摂取量更新リクエストのボディ。
type updateNikoRequest struct {
	Niko *float64 `json:"niko"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	OwnerID            string  `json:"ownerId"`
	SelectedDateYear   int     `json:"selectedDateYear"`
	SelectedDateMonth  int     `json:"selectedDateMonth"`
	SelectedDateDay    int     `json:"selectedDateDay"`
	SelectedTimeHour   int     `json:"selectedTimeHour"`
	SelectedTimeMinute int     `json:"selectedTimeMinute"`
	StartDateYear      int     `json:"startDateYear"`
	StartDateMonth     int     `json:"startDateMonth"`
	StartDateDay       int     `json:"startDateDay"`
	Money              float64 `json:"money"`
	Smol               int     `json:"smol"`
	Cigarette          int     `json:"cigarette"`
	Niko               float64 `json:"niko"`
	Age                int     `json:"age"`
	Name               *string `json:"name"`
	Currency           *string `json:"currency"`
	IsPro              *bool   `json:"isPro"`
}

// Init はプロフィールの初期化を処理する。
// POST /api/profile/init
func (h *ProfileHandler) Init(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req initProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	in, err := req.toInitInput()
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError(err.Error()))
		return
	}

	created, err := h.service.Init(r.Context(), account.ID, in)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProfileResponse(created))
}

// Load はプロフィールの取得を処理する。
// GET /api/profile
func (h *ProfileHandler) Load(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	p, err := h.service.Load(r.Context(), account.ID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// UpdateNiko はニコチン摂取量設定の更新を処理する。
// PATCH /api/profile/niko
func (h *ProfileHandler) UpdateNiko(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateNikoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	if req.Niko == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("niko is required"))
		return
	}

	if err := h.service.UpdateNiko(r.Context(), account.ID, *req.Niko); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toInitInput はリクエストの必須フィールドを検証しInitInputへ変換する。
// 省略された必須フィールドがあればエラーを返す。
func (req *initProfileRequest) toInitInput() (profile.InitInput, error) {
	required := []struct {
		name    string
		present bool
	}{
		{"selectedDateYear", req.SelectedDateYear != nil},
		{"selectedDateMonth", req.SelectedDateMonth != nil},
		{"selectedDateDay", req.SelectedDateDay != nil},
		{"selectedTimeHour", req.SelectedTimeHour != nil},
		{"selectedTimeMinute", req.SelectedTimeMinute != nil},
		{"startDateYear", req.StartDateYear != nil},
		{"startDateMonth", req.StartDateMonth != nil},
		{"startDateDay", req.StartDateDay != nil},
		{"money", req.Money != nil},
		{"smol", req.Smol != nil},
		{"cigarette", req.Cigarette != nil},
		{"niko", req.Niko != nil},
		{"age", req.Age != nil},
	}
	for _, field := range required {
		if !field.present {
			return profile.InitInput{}, fmt.Errorf("%s is required", field.name)
		}
	}

	return profile.InitInput{
		SelectedDateYear:   *req.SelectedDateYear,
		SelectedDateMonth:  *req.SelectedDateMonth,
		SelectedDateDay:    *req.SelectedDateDay,
		SelectedTimeHour:   *req.SelectedTimeHour,
		SelectedTimeMinute: *req.SelectedTimeMinute,
		StartDateYear:      *req.StartDateYear,
		StartDateMonth:     *req.StartDateMonth,
		StartDateDay:       *req.StartDateDay,
		Money:              *req.Money,
		Smol:               *req.Smol,
		Cigarette:          *req.Cigarette,
		Niko:               *req.Niko,
		Age:                *req.Age,
		Name:               req.Name,
		Currency:           req.Currency,
		IsPro:              req.IsPro,
	}, nil
}

// toProfileResponse はmodel.ProfileからAPIレスポンスに変換する。
func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		OwnerID:            p.OwnerID,
		SelectedDateYear:   p.SelectedDateYear,
		SelectedDateMonth:  p.SelectedDateMonth,
		SelectedDateDay:    p.SelectedDateDay,
		SelectedTimeHour:   p.SelectedTimeHour,
		SelectedTimeMinute: p.SelectedTimeMinute,
		StartDateYear:      p.StartDateYear,
		StartDateMonth:     p.StartDateMonth,
		StartDateDay:       p.StartDateDay,
		Money:              p.Money,
		Smol:               p.Smol,
		Cigarette:          p.Cigarette,
		Niko:               p.Niko,
		Age:                p.Age,
		Name:               p.Name,
		Currency:           p.Currency,
		IsPro:              p.IsPro,
	}
}
