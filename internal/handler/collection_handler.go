package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
)

// CollectionServiceInterface はタグ・材料ハンドラーが必要とするサービスインターフェース。
type CollectionServiceInterface interface {
	Kind() model.ItemKind
	List(ctx context.Context, userID string, assignedOnly bool) ([]*model.OwnedItem, error)
	GetOrCreate(ctx context.Context, userID, name string) (*model.OwnedItem, error)
	Update(ctx context.Context, userID, id, name string) (*model.OwnedItem, error)
	Delete(ctx context.Context, userID, id string) error
}

// CollectionHandler はタグまたは材料コレクションのHTTPハンドラー。
// タグ用と材料用に1つずつインスタンス化され、同一の実装を共有する。
type CollectionHandler struct {
	service CollectionServiceInterface
}

// NewCollectionHandler はCollectionHandlerを生成する。
func NewCollectionHandler(service CollectionServiceInterface) *CollectionHandler {
	return &CollectionHandler{
		service: service,
	}
}

// collectionItemRequest はタグ・材料の作成・更新リクエストのボディ。
type collectionItemRequest struct {
	Name string `json:"name"`
}

// List はコレクション一覧を返す。
// GET /api/tags?assigned_only=1 または GET /api/ingredients?assigned_only=1
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	assignedOnly := r.URL.Query().Get("assigned_only") == "1"

	items, err := h.service.List(r.Context(), userID, assignedOnly)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponses(items))
}

// Create は名前指定でのget-or-createを処理する。
// 既存の名前を指定した場合は既存レコードが200で返り、新規作成時は201になる。
// POST /api/tags または POST /api/ingredients
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req collectionItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	item, err := h.service.GetOrCreate(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, itemResponse{ID: item.ID, Name: item.Name})
}

// Update は名前の更新を処理する。
// PATCH /api/tags/{id} または PATCH /api/ingredients/{id}
func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	itemID := chi.URLParam(r, "id")

	var req collectionItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	item, err := h.service.Update(r.Context(), userID, itemID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{ID: item.ID, Name: item.Name})
}

// Delete はコレクションレコードの削除を処理する。
// DELETE /api/tags/{id} または DELETE /api/ingredients/{id}
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	itemID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, itemID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
