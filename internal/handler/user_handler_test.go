package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/recipebook/internal/account"
	"github.com/hitoshi/recipebook/internal/model"
)

type mockAccountService struct {
	createFn        func(ctx context.Context, in account.CreateInput) (*model.User, error)
	getFn           func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID string, in account.UpdateInput) (*model.User, error)
}

func (m *mockAccountService) Create(ctx context.Context, in account.CreateInput) (*model.User, error) {
	return m.createFn(ctx, in)
}
func (m *mockAccountService) Get(ctx context.Context, userID string) (*model.User, error) {
	return m.getFn(ctx, userID)
}
func (m *mockAccountService) UpdateProfile(ctx context.Context, userID string, in account.UpdateInput) (*model.User, error) {
	return m.updateProfileFn(ctx, userID, in)
}

func TestUserHandler_Register_Success(t *testing.T) {
	service := &mockAccountService{
		createFn: func(ctx context.Context, in account.CreateInput) (*model.User, error) {
			if in.Email != "taro@example.com" {
				t.Errorf("email = %q, want %q", in.Email, "taro@example.com")
			}
			return &model.User{
				ID: "user-1", Email: in.Email, Name: in.Name, PhoneNumber: in.PhoneNumber,
			}, nil
		},
	}
	h := NewUserHandler(service)

	body := `{"email":"taro@example.com","password":"password123","name":"太郎","phone_number":"090-1234-5678"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["id"] != "user-1" {
		t.Errorf("id = %v, want user-1", resp["id"])
	}
	// パスワード関連のフィールドがレスポンスに含まれないこと
	if _, ok := resp["password"]; ok {
		t.Error("response should not contain password")
	}
	if _, ok := resp["password_hash"]; ok {
		t.Error("response should not contain password_hash")
	}
}

func TestUserHandler_Register_InvalidBody_Returns400(t *testing.T) {
	h := NewUserHandler(&mockAccountService{})

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_Register_EmailTaken_Returns400(t *testing.T) {
	service := &mockAccountService{
		createFn: func(ctx context.Context, in account.CreateInput) (*model.User, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	h := NewUserHandler(service)

	body := `{"email":"taro@example.com","password":"password123","name":"太郎","phone_number":"090-1234-5678"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeEmailTaken {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeEmailTaken)
	}
}

func TestUserHandler_Me_Success(t *testing.T) {
	service := &mockAccountService{
		getFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{ID: userID, Email: "taro@example.com", Name: "太郎"}, nil
		},
	}
	h := NewUserHandler(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "user-1")
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["email"] != "taro@example.com" {
		t.Errorf("email = %v, want taro@example.com", resp["email"])
	}
}

func TestUserHandler_Me_NoUserID_Returns401(t *testing.T) {
	h := NewUserHandler(&mockAccountService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUserHandler_UpdateMe_PartialUpdate(t *testing.T) {
	var gotInput account.UpdateInput
	service := &mockAccountService{
		updateProfileFn: func(ctx context.Context, userID string, in account.UpdateInput) (*model.User, error) {
			gotInput = in
			return &model.User{ID: userID, Name: *in.Name}, nil
		},
	}
	h := NewUserHandler(service)

	req := withUserID(httptest.NewRequest(http.MethodPatch, "/api/users/me", strings.NewReader(`{"name":"次郎"}`)), "user-1")
	rec := httptest.NewRecorder()

	h.UpdateMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotInput.Name == nil || *gotInput.Name != "次郎" {
		t.Error("name should be passed to the service")
	}
	// 指定されていないパスワードはnilのまま
	if gotInput.Password != nil {
		t.Error("password should be nil when not specified")
	}
}
