// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/recipebook/internal/account"
	"github.com/hitoshi/recipebook/internal/auth"
	"github.com/hitoshi/recipebook/internal/collection"
	"github.com/hitoshi/recipebook/internal/config"
	"github.com/hitoshi/recipebook/internal/database"
	"github.com/hitoshi/recipebook/internal/handler"
	"github.com/hitoshi/recipebook/internal/logger"
	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/recipe"
	"github.com/hitoshi/recipebook/internal/repository"
	"github.com/hitoshi/recipebook/internal/security"
	"github.com/hitoshi/recipebook/internal/storage"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandWaitDB:
		return runWaitDB(cfg)
	case CommandCreateAdmin:
		return runCreateAdmin(cfg)
	default:
		return runServe(cfg)
	}
}

// newImageStore は設定に応じた画像ストレージバックエンドを生成する。
func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.ImageStore {
	case config.ImageStoreS3:
		return storage.NewS3ImageStore(ctx, storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return storage.NewFSImageStore(cfg.ImageDir)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	recipeRepo := repository.NewPostgresRecipeRepo(db)
	tagRepo := repository.NewPostgresTagRepo(db)
	ingredientRepo := repository.NewPostgresIngredientRepo(db)

	// 3. セキュリティサービスの初期化
	linkGuard := security.NewLinkGuard()
	sanitizer := security.NewDescriptionSanitizer()

	// 4. 画像ストレージの初期化
	imageStore, err := newImageStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}
	slog.Info("image store initialized",
		slog.String("backend", string(cfg.ImageStore)),
	)

	// 5. ドメインサービスの初期化
	accountService := account.NewService(userRepo, account.ServiceConfig{
		BcryptCost:        cfg.BcryptCost,
		MinPasswordLength: cfg.MinPasswordLength,
	})
	authService := auth.NewService(accountService, tokenRepo, userRepo, auth.ServiceConfig{
		TokenTTL: cfg.TokenTTL,
	})
	recipeService := recipe.NewService(
		recipeRepo, tagRepo, ingredientRepo,
		sanitizer, linkGuard, imageStore,
		recipe.ServiceConfig{MaxImageSize: cfg.MaxImageSize},
	)
	tagService := collection.NewService(tagRepo)
	ingredientService := collection.NewService(ingredientRepo)

	// 6. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitImageUpload),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		Collector: collector,
		Gatherer:  registry,

		AccountService:    accountService,
		AuthService:       authService,
		RecipeService:     recipeService,
		TagService:        tagService,
		IngredientService: ingredientService,

		DB:           db,
		MaxImageSize: cfg.MaxImageSize,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runWaitDB はデータベースが接続を受け付けるまで待機する。
// コンテナ起動時にマイグレーションやサーバー起動に先立って実行する。
func runWaitDB(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return database.WaitForReady(context.Background(), db)
}

// runCreateAdmin は管理者ユーザーを作成する。
// 認証情報はADMIN_EMAIL、ADMIN_PASSWORD、ADMIN_NAME、ADMIN_PHONE環境変数で指定する。
func runCreateAdmin(cfg *config.Config) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	userRepo := repository.NewPostgresUserRepo(db)
	accountService := account.NewService(userRepo, account.ServiceConfig{
		BcryptCost:        cfg.BcryptCost,
		MinPasswordLength: cfg.MinPasswordLength,
	})

	user, err := accountService.CreatePrivileged(context.Background(), account.CreateInput{
		Email:       email,
		Password:    password,
		Name:        os.Getenv("ADMIN_NAME"),
		PhoneNumber: os.Getenv("ADMIN_PHONE"),
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("admin user created",
		slog.String("user_id", user.ID),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
