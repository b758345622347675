package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Issue は認証情報を検証し、新しいトークンを発行する。
	Issue(ctx context.Context, email, password string) (*model.Token, error)
	// Revoke は指定トークンを失効させる。
	Revoke(ctx context.Context, tokenID string) error
}

// AuthHandler はトークン認証のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:   service,
		collector: collector,
	}
}

// issueTokenRequest はトークン発行リクエストのボディ。
type issueTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IssueToken は認証情報を検証してトークンを発行する。
// POST /api/tokens
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	token, err := h.service.Issue(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.collector != nil {
			h.collector.RecordAuthFailure()
		}
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordTokenIssued()
	}

	writeJSON(w, http.StatusCreated, tokenResponse{
		Token:     token.ID,
		ExpiresAt: token.ExpiresAt,
	})
}

// RevokeToken はリクエストに使われたトークンを失効させる。
// DELETE /api/tokens
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	tokenID := middleware.TokenFromRequest(r)
	if tokenID == "" {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Revoke(r.Context(), tokenID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
