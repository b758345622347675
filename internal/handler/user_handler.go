package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/recipebook/internal/account"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
)

// AccountServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Create は一般ユーザーを登録する。
	Create(ctx context.Context, in account.CreateInput) (*model.User, error)
	// Get は指定IDのユーザーを取得する。
	Get(ctx context.Context, userID string) (*model.User, error)
	// UpdateProfile は表示名とパスワードを部分更新する。
	UpdateProfile(ctx context.Context, userID string, in account.UpdateInput) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service AccountServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service AccountServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// nilのフィールドは変更しない。
type updateProfileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// Register はユーザー登録を処理する。
// POST /api/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	user, err := h.service.Create(r.Context(), account.CreateInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Me は認証済みユーザーのプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateMe は認証済みユーザーのプロフィールを部分更新する。
// PATCH /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, account.UpdateInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
