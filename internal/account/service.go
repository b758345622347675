// Package account はユーザーアカウント管理のドメインロジックを提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// ServiceConfig はアカウントサービスの設定。
type ServiceConfig struct {
	BcryptCost        int
	MinPasswordLength int
}

// Service はアカウント管理のサービス層。
// 登録、認証情報検証、プロフィール更新のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	config   ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, config ServiceConfig) *Service {
	return &Service{
		userRepo: userRepo,
		config:   config,
	}
}

// CreateInput はユーザー登録の入力。
type CreateInput struct {
	Email       string
	Password    string
	Name        string
	PhoneNumber string
}

// UpdateInput はプロフィール更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Name     *string
	Password *string
}

// NormalizeEmail はメールアドレスを正規化する。
// ドメイン部のみ小文字化し、ローカル部は保持する（RFC 5321ではローカル部は
// 大文字小文字を区別しうるため）。
func NormalizeEmail(email string) string {
	trimmed := strings.TrimSpace(email)
	at := strings.LastIndex(trimmed, "@")
	if at < 0 {
		return trimmed
	}
	return trimmed[:at+1] + strings.ToLower(trimmed[at+1:])
}

// validateCreate は登録入力を検証する。
func (s *Service) validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return model.NewValidationError("email", "メールアドレスは必須です")
	}
	if !strings.Contains(in.Email, "@") {
		return model.NewValidationError("email", "メールアドレスの形式が不正です")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return model.NewValidationError("phone_number", "電話番号は必須です")
	}
	if len(in.Password) < s.config.MinPasswordLength {
		return model.NewValidationError("password",
			fmt.Sprintf("パスワードは%d文字以上である必要があります", s.config.MinPasswordLength))
	}
	return nil
}

// create はユーザーレコードを組み立てて保存する共通処理。
func (s *Service) create(ctx context.Context, in CreateInput, staff, superuser bool) (*model.User, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(in.Email),
		Name:         in.Name,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      staff,
		IsSuperuser:  superuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewEmailTakenError()
		}
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, model.NewPhoneTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.Bool("superuser", superuser),
	)

	return user, nil
}

// Create は一般ユーザーを登録する。
// メールアドレスはドメイン部を小文字化して保存する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	return s.create(ctx, in, false, false)
}

// CreatePrivileged は管理者ユーザーを登録する。
// is_staffとis_superuserの両方が有効化される。運用ツールからのみ呼ばれる。
func (s *Service) CreatePrivileged(ctx context.Context, in CreateInput) (*model.User, error) {
	return s.create(ctx, in, true, true)
}

// VerifyCredentials はメールアドレスとパスワードを検証し、一致するユーザーを返す。
// ユーザー不在、無効化済み、パスワード不一致のいずれも同一の認証失敗エラーを返し、
// アカウントの存在を推測できないようにする。
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || !user.IsActive {
		// 実在しないユーザーでもbcrypt比較と同等の時間を消費させる
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$12$000000000000000000000u1111111111111111111111111111111"), []byte(password))
		return nil, model.NewAuthFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewAuthFailedError()
	}

	return user, nil
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は表示名とパスワードを部分更新する。
// メールアドレスと電話番号は登録後に変更できない。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*model.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		if len(*in.Password) < s.config.MinPasswordLength {
			return nil, model.NewValidationError("password",
				fmt.Sprintf("パスワードは%d文字以上である必要があります", s.config.MinPasswordLength))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.config.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
