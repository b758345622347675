package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/recipe"
)

// RecipeServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
type RecipeServiceInterface interface {
	Create(ctx context.Context, userID string, in recipe.CreateInput) (*recipe.Detail, error)
	Get(ctx context.Context, userID, id string) (*recipe.Detail, error)
	List(ctx context.Context, userID string, filter model.RecipeFilter) ([]*recipe.Detail, error)
	Update(ctx context.Context, userID, id string, in recipe.UpdateInput) (*recipe.Detail, error)
	Delete(ctx context.Context, userID, id string) error
	AttachImage(ctx context.Context, userID, recipeID, filename string, data io.Reader) (*recipe.Detail, error)
	AttachImageFromURL(ctx context.Context, userID, recipeID, rawURL string) (*recipe.Detail, error)
	OpenImage(ctx context.Context, userID, recipeID string) (io.ReadCloser, string, error)
}

// RecipeHandlerConfig はレシピハンドラーの設定。
type RecipeHandlerConfig struct {
	// MaxImageSize はアップロードを受け付ける画像の最大バイト数。
	MaxImageSize int64
}

// RecipeHandler はレシピ管理のHTTPハンドラー。
type RecipeHandler struct {
	service   RecipeServiceInterface
	collector metrics.MetricsCollector
	config    RecipeHandlerConfig
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface, collector metrics.MetricsCollector, config RecipeHandlerConfig) *RecipeHandler {
	return &RecipeHandler{
		service:   service,
		collector: collector,
		config:    config,
	}
}

// recipeCreateRequest はレシピ作成リクエストのボディ。
// 価格は "12.50" のような文字列またはJSON数値を受け付ける。
type recipeCreateRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TimeInMinutes int             `json:"time_in_minutes"`
	Price         decimal.Decimal `json:"price"`
	Link          string          `json:"link"`
	Tags          []string        `json:"tags"`
	Ingredients   []string        `json:"ingredients"`
}

// recipeUpdateRequest はレシピ更新リクエストのボディ。nilのフィールドは変更しない。
// Tags・Ingredientsが非nilの場合は関連付け全体を置き換える。
type recipeUpdateRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	TimeInMinutes *int             `json:"time_in_minutes"`
	Price         *decimal.Decimal `json:"price"`
	Link          *string          `json:"link"`
	Tags          *[]string        `json:"tags"`
	Ingredients   *[]string        `json:"ingredients"`
}

// attachImageURLRequest はURL指定での画像取り込みリクエストのボディ。
type attachImageURLRequest struct {
	URL string `json:"url"`
}

// splitIDs はカンマ区切りのクエリパラメータをIDのリストに分解する。
func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// List はレシピ一覧を返す。
// GET /api/recipes?tags=id1,id2&ingredients=id3
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	filter := model.RecipeFilter{
		TagIDs:        splitIDs(r.URL.Query().Get("tags")),
		IngredientIDs: splitIDs(r.URL.Query().Get("ingredients")),
	}

	details, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponses(details))
}

// Create はレシピ作成を処理する。
// POST /api/recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req recipeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	detail, err := h.service.Create(r.Context(), userID, recipe.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		TimeInMinutes:   req.TimeInMinutes,
		Price:           req.Price,
		Link:            req.Link,
		TagNames:        req.Tags,
		IngredientNames: req.Ingredients,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordRecipeCreated()
	}

	writeJSON(w, http.StatusCreated, toRecipeResponse(detail))
}

// Get はレシピ詳細を返す。
// GET /api/recipes/{id}
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID := chi.URLParam(r, "id")

	detail, err := h.service.Get(r.Context(), userID, recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(detail))
}

// Update はレシピの部分更新を処理する。
// PATCH /api/recipes/{id}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID := chi.URLParam(r, "id")

	var req recipeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	detail, err := h.service.Update(r.Context(), userID, recipeID, recipe.UpdateInput{
		Title:           req.Title,
		Description:     req.Description,
		TimeInMinutes:   req.TimeInMinutes,
		Price:           req.Price,
		Link:            req.Link,
		TagNames:        req.Tags,
		IngredientNames: req.Ingredients,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(detail))
}

// Delete はレシピ削除を処理する。
// DELETE /api/recipes/{id}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, recipeID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AttachImage はレシピへの画像添付を処理する。
// PUT /api/recipes/{id}/image
//
// multipart/form-dataの場合はフォームフィールド "image" のファイルを保存する。
// application/jsonの場合は {"url": "..."} で指定された外部URLから取得する。
func (h *RecipeHandler) AttachImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID := chi.URLParam(r, "id")

	contentType := r.Header.Get("Content-Type")

	var detail *recipe.Detail
	var imageSize int64

	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxImageSize)
		if err := r.ParseMultipartForm(h.config.MaxImageSize); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidImageError("画像サイズが上限を超えているか、フォームが不正です"))
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidImageError("imageフィールドがありません"))
			return
		}
		defer file.Close()

		imageSize = header.Size
		detail, err = h.service.AttachImage(r.Context(), userID, recipeID, header.Filename, file)
		if err != nil {
			handleServiceError(w, err)
			return
		}

	case strings.HasPrefix(contentType, "application/json"):
		var req attachImageURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalidBody(w)
			return
		}
		if req.URL == "" {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLinkError("URLが空です"))
			return
		}

		detail, err = h.service.AttachImageFromURL(r.Context(), userID, recipeID, req.URL)
		if err != nil {
			handleServiceError(w, err)
			return
		}

	default:
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidImageError("multipart/form-dataまたはapplication/jsonでリクエストしてください"))
		return
	}

	if h.collector != nil {
		h.collector.RecordImageStored(imageSize)
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(detail))
}

// GetImage はレシピに添付された画像を返す。
// GET /api/recipes/{id}/image
func (h *RecipeHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID := chi.URLParam(r, "id")

	body, contentType, err := h.service.OpenImage(r.Context(), userID, recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
