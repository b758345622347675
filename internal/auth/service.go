// Package auth はAPIトークンの発行・失効・検証を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// tokenBytes はトークン値の乱数長（hex化で64文字になる）。
const tokenBytes = 32

// CredentialVerifier はメールアドレスとパスワードの検証インターフェース。
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*model.User, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	TokenTTL time.Duration
}

// Service はトークン認証のサービス層。
// トークンは不透明なランダム値で、値そのものがデータベースの主キーになる。
type Service struct {
	verifier  CredentialVerifier
	tokenRepo repository.TokenRepository
	userRepo  repository.UserRepository
	config    ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	verifier CredentialVerifier,
	tokenRepo repository.TokenRepository,
	userRepo repository.UserRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		verifier:  verifier,
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		config:    config,
	}
}

// newTokenID は暗号論的乱数からトークン値を生成する。
func newTokenID() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issue は認証情報を検証し、新しいトークンを発行する。
// 検証失敗時は発行せず認証失敗エラーを返す。
// 既存トークンは失効しない（複数クライアントの同時利用を許容する）。
func (s *Service) Issue(ctx context.Context, email, password string) (*model.Token, error) {
	user, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	id, err := newTokenID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	token := &model.Token{
		ID:        id,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.TokenTTL),
		CreatedAt: now,
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	slog.Info("token issued",
		slog.String("user_id", user.ID),
	)

	return token, nil
}

// Revoke は指定トークンを失効させる。
// 既に存在しないトークンの失効も成功として扱う（冪等）。
func (s *Service) Revoke(ctx context.Context, tokenID string) error {
	if err := s.tokenRepo.DeleteByID(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeAll は指定ユーザーの全トークンを失効させる。
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	if err := s.tokenRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// Authenticate はトークン値を検証し、対応するユーザーを返す。
// 不正・期限切れトークン、無効化済みユーザーのいずれも未認証エラーを返す。
func (s *Service) Authenticate(ctx context.Context, tokenID string) (*model.User, error) {
	if tokenID == "" {
		return nil, model.NewUnauthorizedError()
	}

	token, err := s.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	if token == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find token user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}
