package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/recipe"
)

type mockRecipeService struct {
	createFn             func(ctx context.Context, userID string, in recipe.CreateInput) (*recipe.Detail, error)
	getFn                func(ctx context.Context, userID, id string) (*recipe.Detail, error)
	listFn               func(ctx context.Context, userID string, filter model.RecipeFilter) ([]*recipe.Detail, error)
	updateFn             func(ctx context.Context, userID, id string, in recipe.UpdateInput) (*recipe.Detail, error)
	deleteFn             func(ctx context.Context, userID, id string) error
	attachImageFn        func(ctx context.Context, userID, recipeID, filename string, data io.Reader) (*recipe.Detail, error)
	attachImageFromURLFn func(ctx context.Context, userID, recipeID, rawURL string) (*recipe.Detail, error)
	openImageFn          func(ctx context.Context, userID, recipeID string) (io.ReadCloser, string, error)
}

func (m *mockRecipeService) Create(ctx context.Context, userID string, in recipe.CreateInput) (*recipe.Detail, error) {
	return m.createFn(ctx, userID, in)
}
func (m *mockRecipeService) Get(ctx context.Context, userID, id string) (*recipe.Detail, error) {
	return m.getFn(ctx, userID, id)
}
func (m *mockRecipeService) List(ctx context.Context, userID string, filter model.RecipeFilter) ([]*recipe.Detail, error) {
	return m.listFn(ctx, userID, filter)
}
func (m *mockRecipeService) Update(ctx context.Context, userID, id string, in recipe.UpdateInput) (*recipe.Detail, error) {
	return m.updateFn(ctx, userID, id, in)
}
func (m *mockRecipeService) Delete(ctx context.Context, userID, id string) error {
	return m.deleteFn(ctx, userID, id)
}
func (m *mockRecipeService) AttachImage(ctx context.Context, userID, recipeID, filename string, data io.Reader) (*recipe.Detail, error) {
	return m.attachImageFn(ctx, userID, recipeID, filename, data)
}
func (m *mockRecipeService) AttachImageFromURL(ctx context.Context, userID, recipeID, rawURL string) (*recipe.Detail, error) {
	return m.attachImageFromURLFn(ctx, userID, recipeID, rawURL)
}
func (m *mockRecipeService) OpenImage(ctx context.Context, userID, recipeID string) (io.ReadCloser, string, error) {
	return m.openImageFn(ctx, userID, recipeID)
}

func sampleDetail(id string) *recipe.Detail {
	return &recipe.Detail{
		Recipe: &model.Recipe{
			ID:    id,
			Title: "肉じゃが",
			Price: decimal.RequireFromString("12.50"),
		},
	}
}

// newRecipeRouter はURLパラメータ解決のためchiルーターに載せたハンドラーを返す。
func newRecipeRouter(h *RecipeHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/recipes", h.List)
	r.Post("/api/recipes", h.Create)
	r.Get("/api/recipes/{id}", h.Get)
	r.Put("/api/recipes/{id}", h.Update)
	r.Patch("/api/recipes/{id}", h.Update)
	r.Delete("/api/recipes/{id}", h.Delete)
	r.Post("/api/recipes/{id}/image", h.AttachImage)
	r.Get("/api/recipes/{id}/image", h.GetImage)
	return r
}

func newTestRecipeHandler(service *mockRecipeService) http.Handler {
	return newRecipeRouter(NewRecipeHandler(service, nil, RecipeHandlerConfig{MaxImageSize: 1024 * 1024}))
}

func TestRecipeHandler_List_ParsesFilterQuery(t *testing.T) {
	var gotFilter model.RecipeFilter
	service := &mockRecipeService{
		listFn: func(ctx context.Context, userID string, filter model.RecipeFilter) ([]*recipe.Detail, error) {
			gotFilter = filter
			return []*recipe.Detail{sampleDetail("recipe-1")}, nil
		},
	}
	router := newTestRecipeHandler(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/recipes?tags=t1,t2&ingredients=i1", nil), "user-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(gotFilter.TagIDs) != 2 || gotFilter.TagIDs[0] != "t1" || gotFilter.TagIDs[1] != "t2" {
		t.Errorf("TagIDs = %v, want [t1 t2]", gotFilter.TagIDs)
	}
	if len(gotFilter.IngredientIDs) != 1 || gotFilter.IngredientIDs[0] != "i1" {
		t.Errorf("IngredientIDs = %v, want [i1]", gotFilter.IngredientIDs)
	}
}

func TestRecipeHandler_Create_Success(t *testing.T) {
	var gotInput recipe.CreateInput
	service := &mockRecipeService{
		createFn: func(ctx context.Context, userID string, in recipe.CreateInput) (*recipe.Detail, error) {
			gotInput = in
			return sampleDetail("recipe-1"), nil
		},
	}
	router := newTestRecipeHandler(service)

	body := `{"title":"肉じゃが","description":"定番","time_in_minutes":30,"price":"12.50","tags":["和食"],"ingredients":["じゃがいも"]}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader(body)), "user-1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if !gotInput.Price.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("price = %s, want 12.50", gotInput.Price)
	}
	if len(gotInput.TagNames) != 1 || gotInput.TagNames[0] != "和食" {
		t.Errorf("tag names = %v, want [和食]", gotInput.TagNames)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["price"] != "12.50" {
		t.Errorf("response price = %v, want \"12.50\"", resp["price"])
	}
}

func TestRecipeHandler_Create_NumericPriceAccepted(t *testing.T) {
	var gotInput recipe.CreateInput
	service := &mockRecipeService{
		createFn: func(ctx context.Context, userID string, in recipe.CreateInput) (*recipe.Detail, error) {
			gotInput = in
			return sampleDetail("recipe-1"), nil
		},
	}
	router := newTestRecipeHandler(service)

	// 価格はJSON数値でも受け付ける
	body := `{"title":"カレー","price":8.75}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if !gotInput.Price.Equal(decimal.RequireFromString("8.75")) {
		t.Errorf("price = %s, want 8.75", gotInput.Price)
	}
}

func TestRecipeHandler_Get_NotFound_Returns404(t *testing.T) {
	service := &mockRecipeService{
		getFn: func(ctx context.Context, userID, id string) (*recipe.Detail, error) {
			return nil, model.NewRecipeNotFoundError(id)
		},
	}
	router := newTestRecipeHandler(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/recipes/missing", nil), "user-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRecipeHandler_Update_EmptyTagListReachesService(t *testing.T) {
	var gotInput recipe.UpdateInput
	service := &mockRecipeService{
		updateFn: func(ctx context.Context, userID, id string, in recipe.UpdateInput) (*recipe.Detail, error) {
			gotInput = in
			return sampleDetail(id), nil
		},
	}
	router := newTestRecipeHandler(service)

	// tags: [] は「全関連付けの解除」として区別される
	body := `{"tags":[]}`
	req := withUserID(httptest.NewRequest(http.MethodPatch, "/api/recipes/recipe-1", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotInput.TagNames == nil {
		t.Fatal("TagNames should be non-nil for an explicit empty list")
	}
	if len(*gotInput.TagNames) != 0 {
		t.Errorf("TagNames = %v, want empty", *gotInput.TagNames)
	}
	// 指定のないフィールドはnilのまま
	if gotInput.Title != nil || gotInput.IngredientNames != nil {
		t.Error("unspecified fields should remain nil")
	}
}

func TestRecipeHandler_Delete_Returns204(t *testing.T) {
	var deletedID string
	service := &mockRecipeService{
		deleteFn: func(ctx context.Context, userID, id string) error {
			deletedID = id
			return nil
		},
	}
	router := newTestRecipeHandler(service)

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/recipes/recipe-1", nil), "user-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if deletedID != "recipe-1" {
		t.Errorf("deleted ID = %q, want %q", deletedID, "recipe-1")
	}
}

func TestRecipeHandler_AttachImage_Multipart(t *testing.T) {
	var gotFilename string
	service := &mockRecipeService{
		attachImageFn: func(ctx context.Context, userID, recipeID, filename string, data io.Reader) (*recipe.Detail, error) {
			gotFilename = filename
			if _, err := io.ReadAll(data); err != nil {
				t.Errorf("failed to read uploaded data: %v", err)
			}
			return sampleDetail(recipeID), nil
		},
	}
	router := newTestRecipeHandler(service)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "dinner.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	fw.Write([]byte("jpg-bytes"))
	mw.Close()

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/recipes/recipe-1/image", &buf), "user-1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotFilename != "dinner.jpg" {
		t.Errorf("filename = %q, want %q", gotFilename, "dinner.jpg")
	}
}

func TestRecipeHandler_AttachImage_MissingFormField_Returns400(t *testing.T) {
	router := newTestRecipeHandler(&mockRecipeService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "value")
	mw.Close()

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/recipes/recipe-1/image", &buf), "user-1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRecipeHandler_AttachImage_FromURL(t *testing.T) {
	var gotURL string
	service := &mockRecipeService{
		attachImageFromURLFn: func(ctx context.Context, userID, recipeID, rawURL string) (*recipe.Detail, error) {
			gotURL = rawURL
			return sampleDetail(recipeID), nil
		},
	}
	router := newTestRecipeHandler(service)

	body := `{"url":"https://example.com/photo.jpg"}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/recipes/recipe-1/image", strings.NewReader(body)), "user-1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotURL != "https://example.com/photo.jpg" {
		t.Errorf("URL = %q, want %q", gotURL, "https://example.com/photo.jpg")
	}
}

func TestRecipeHandler_AttachImage_EmptyURL_Returns400(t *testing.T) {
	router := newTestRecipeHandler(&mockRecipeService{})

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/recipes/recipe-1/image", strings.NewReader(`{"url":""}`)), "user-1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRecipeHandler_AttachImage_UnsupportedContentType_Returns400(t *testing.T) {
	router := newTestRecipeHandler(&mockRecipeService{})

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/recipes/recipe-1/image", strings.NewReader("raw-bytes")), "user-1")
	req.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRecipeHandler_GetImage_StreamsWithHeaders(t *testing.T) {
	service := &mockRecipeService{
		openImageFn: func(ctx context.Context, userID, recipeID string) (io.ReadCloser, string, error) {
			return io.NopCloser(strings.NewReader("image-bytes")), "image/jpeg", nil
		},
	}
	router := newTestRecipeHandler(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/recipes/recipe-1/image", nil), "user-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want %q", ct, "image/jpeg")
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "private") {
		t.Errorf("Cache-Control = %q, want private", cc)
	}
	if rec.Body.String() != "image-bytes" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "image-bytes")
	}
}

func TestRecipeHandler_GetImage_NoImage_Returns404(t *testing.T) {
	service := &mockRecipeService{
		openImageFn: func(ctx context.Context, userID, recipeID string) (io.ReadCloser, string, error) {
			return nil, "", model.NewImageNotFoundError(recipeID)
		},
	}
	router := newTestRecipeHandler(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/recipes/recipe-1/image", nil), "user-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRecipeHandler_Unauthenticated_Returns401(t *testing.T) {
	router := newTestRecipeHandler(&mockRecipeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
