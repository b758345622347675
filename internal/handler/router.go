package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/middleware"
)

// Pinger はヘルスチェックでのデータベース死活確認に必要なインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.TokenAuthenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer

	// サービス
	AccountService    AccountServiceInterface
	AuthService       AuthServiceInterface
	RecipeService     RecipeServiceInterface
	TagService        CollectionServiceInterface
	IngredientService CollectionServiceInterface

	// ヘルスチェック
	DB Pinger

	// 画像アップロード上限（バイト）
	MaxImageSize int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → TokenAuth → RateLimit(General)
//
// ユーザー登録（POST /api/users）とトークン発行（POST /api/tokens）、
// /health、/metricsは認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	}

	userHandler := NewUserHandler(deps.AccountService)
	authHandler := NewAuthHandler(deps.AuthService, deps.Collector)
	recipeHandler := NewRecipeHandler(deps.RecipeService, deps.Collector, RecipeHandlerConfig{
		MaxImageSize: deps.MaxImageSize,
	})
	tagHandler := NewCollectionHandler(deps.TagService)
	ingredientHandler := NewCollectionHandler(deps.IngredientService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.DB))

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// ユーザー登録とトークン発行は未認証クライアントの入口
	r.Post("/api/users", userHandler.Register)
	r.Post("/api/tokens", authHandler.IssueToken)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: TokenAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenAuthMiddleware(deps.Authenticator))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// トークン失効
		r.Delete("/api/tokens", authHandler.RevokeToken)

		// プロフィール管理
		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Patch("/", userHandler.UpdateMe)
		})

		// レシピ管理
		r.Route("/api/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.List)
			r.Post("/", recipeHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", recipeHandler.Get)
				r.Put("/", recipeHandler.Update)
				r.Patch("/", recipeHandler.Update)
				r.Delete("/", recipeHandler.Delete)

				// 画像添付には専用のレート制限を追加
				if deps.RateLimiter != nil {
					r.With(deps.RateLimiter.ImageUploadMiddleware()).Post("/image", recipeHandler.AttachImage)
				} else {
					r.Post("/image", recipeHandler.AttachImage)
				}
				r.Get("/image", recipeHandler.GetImage)
			})
		})

		// タグ管理
		r.Route("/api/tags", func(r chi.Router) {
			r.Get("/", tagHandler.List)
			r.Post("/", tagHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", tagHandler.Update)
				r.Delete("/", tagHandler.Delete)
			})
		})

		// 材料管理
		r.Route("/api/ingredients", func(r chi.Router) {
			r.Get("/", ingredientHandler.List)
			r.Post("/", ingredientHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", ingredientHandler.Update)
				r.Delete("/", ingredientHandler.Delete)
			})
		})
	})

	return r
}

// newHealthHandler はデータベース接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
