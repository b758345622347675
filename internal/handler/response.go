// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/recipe"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeUnauthorized は401レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
}

// writeInvalidBody はリクエストボディ解析失敗の400レスポンスを書き込む。
func writeInvalidBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIErrorはコードに応じたステータスで返し、それ以外は500として扱う。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeEmailTaken, model.ErrCodePhoneTaken,
		model.ErrCodeInvalidImage, model.ErrCodeInvalidLink:
		return http.StatusBadRequest
	case model.ErrCodeAuthFailed, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeRecipeNotFound, model.ErrCodeTagNotFound,
		model.ErrCodeIngredientNotFound, model.ErrCodeUserNotFound,
		model.ErrCodeImageNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュは決して含めない。
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		PhoneNumber: user.PhoneNumber,
	}
}

// tokenResponse はトークン発行のAPIレスポンス。
type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// itemResponse はタグ・材料のAPIレスポンス。
type itemResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toItemResponses(items []*model.OwnedItem) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse{ID: item.ID, Name: item.Name})
	}
	return out
}

// recipeResponse はレシピのAPIレスポンス。
// 価格は小数点以下2桁の文字列として表現し、浮動小数点の誤差を持ち込まない。
type recipeResponse struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	TimeInMinutes int            `json:"time_in_minutes"`
	Price         string         `json:"price"`
	Link          string         `json:"link"`
	HasImage      bool           `json:"has_image"`
	Tags          []itemResponse `json:"tags"`
	Ingredients   []itemResponse `json:"ingredients"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toRecipeResponse(d *recipe.Detail) recipeResponse {
	return recipeResponse{
		ID:            d.Recipe.ID,
		Title:         d.Recipe.Title,
		Description:   d.Recipe.Description,
		TimeInMinutes: d.Recipe.TimeInMinutes,
		Price:         d.Recipe.Price.StringFixed(2),
		Link:          d.Recipe.Link,
		HasImage:      d.Recipe.ImagePath != "",
		Tags:          toItemResponses(d.Tags),
		Ingredients:   toItemResponses(d.Ingredients),
		CreatedAt:     d.Recipe.CreatedAt,
		UpdatedAt:     d.Recipe.UpdatedAt,
	}
}

func toRecipeResponses(details []*recipe.Detail) []recipeResponse {
	out := make([]recipeResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toRecipeResponse(d))
	}
	return out
}
