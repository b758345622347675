package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ImageStoreKind は画像ストレージバックエンドの種類を表す。
type ImageStoreKind string

const (
	// ImageStoreFS はローカルファイルシステムに画像を保存する。
	ImageStoreFS ImageStoreKind = "fs"
	// ImageStoreS3 はS3互換オブジェクトストレージ（MinIO等）に画像を保存する。
	ImageStoreS3 ImageStoreKind = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	TokenTTL          time.Duration
	BcryptCost        int
	MinPasswordLength int

	// Rate Limit（req/min/user）
	RateLimitGeneral     int
	RateLimitImageUpload int

	// Image Storage
	ImageStore   ImageStoreKind
	ImageDir     string
	MaxImageSize int64

	// S3（ImageStore = "s3" の場合のみ必須）
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 12)
	cfg.MinPasswordLength = getEnvInt("MIN_PASSWORD_LENGTH", 8)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitImageUpload = getEnvInt("RATE_LIMIT_IMAGE_UPLOAD", 10)
	cfg.ImageStore = ImageStoreKind(getEnvString("IMAGE_STORE", string(ImageStoreFS)))
	cfg.ImageDir = getEnvString("IMAGE_DIR", "/var/lib/recipebook/images")
	cfg.MaxImageSize = getEnvInt64("MAX_IMAGE_SIZE", 5242880)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	switch cfg.ImageStore {
	case ImageStoreFS:
		// ImageDirはデフォルトあり
	case ImageStoreS3:
		// S3バックエンドは接続情報がすべて必須
		cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
		cfg.S3Region = getEnvString("S3_REGION", "us-east-1")
		cfg.S3Bucket = os.Getenv("S3_BUCKET")
		cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
		cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")

		var s3missing []string
		if cfg.S3Bucket == "" {
			s3missing = append(s3missing, "S3_BUCKET")
		}
		if cfg.S3AccessKey == "" {
			s3missing = append(s3missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			s3missing = append(s3missing, "S3_SECRET_KEY")
		}
		if len(s3missing) > 0 {
			return nil, fmt.Errorf("IMAGE_STORE=s3 requires environment variables: %v", s3missing)
		}
	default:
		return nil, fmt.Errorf("unknown IMAGE_STORE value: %q (expected fs or s3)", cfg.ImageStore)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
