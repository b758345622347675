// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/recipebook/internal/model"
)

// tokenScheme はAuthorizationヘッダーの認証スキーム。
const tokenScheme = "Token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenAuthenticator はトークン値からユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, tokenID string) (*model.User, error)
}

// extractToken はAuthorizationヘッダーからトークン値を取り出す。
// 形式は "Token <value>"。スキーム名は大文字小文字を区別しない。
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], tokenScheme) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// NewTokenAuthMiddleware はAuthorizationヘッダーのトークンを検証し、
// 認証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// トークン欠落、無効、期限切れのいずれも401 Unauthorizedを返す。
func NewTokenAuthMiddleware(authenticator TokenAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenID := extractToken(r)
			if tokenID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user, err := authenticator.Authenticate(r.Context(), tokenID)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				slog.Error("failed to authenticate token",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// トークン認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// TokenFromRequest はAuthorizationヘッダーからトークン値を取り出す。
// トークン失効ハンドラーが自身のトークンを特定するために使用する。
func TokenFromRequest(r *http.Request) string {
	return extractToken(r)
}
