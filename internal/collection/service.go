// Package collection はタグ・材料コレクションのドメインロジックを提供する。
//
// タグと材料は形が同一のため、Serviceは種類ごとに1回ずつインスタンス化して使う。
// エラーメッセージと未検出エラーだけが種類によって変わる。
package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// maxNameLength はタグ・材料名の最大長。
const maxNameLength = 255

// Service はタグまたは材料コレクションのサービス層。
type Service struct {
	repo repository.CollectionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.CollectionRepository) *Service {
	return &Service{repo: repo}
}

// Kind はこのサービスが扱うコレクションの種類を返す。
func (s *Service) Kind() model.ItemKind {
	return s.repo.Kind()
}

// notFoundError は種類に応じた未検出エラーを返す。
func (s *Service) notFoundError(id string) *model.APIError {
	if s.repo.Kind() == model.KindIngredient {
		return model.NewIngredientNotFoundError(id)
	}
	return model.NewTagNotFoundError(id)
}

// validateName はタグ・材料名を検証し、前後の空白を除いた名前を返す。
func (s *Service) validateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", model.NewValidationError("name", "名前は必須です")
	}
	if len(trimmed) > maxNameLength {
		return "", model.NewValidationError("name", "名前が長すぎます")
	}
	return trimmed, nil
}

// List は所有者のコレクション一覧をname降順で返す。
// assignedOnlyがtrueの場合はレシピに関連付けられたものだけを返す。
func (s *Service) List(ctx context.Context, userID string, assignedOnly bool) ([]*model.OwnedItem, error) {
	items, err := s.repo.ListByOwner(ctx, userID, assignedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", s.repo.Kind(), err)
	}
	return items, nil
}

// GetOrCreate は(owner, name)に一致する既存レコードを返し、なければ作成する。
// 既存レコードが返る場合も成功として扱う（冪等）。
func (s *Service) GetOrCreate(ctx context.Context, userID, name string) (*model.OwnedItem, error) {
	trimmed, err := s.validateName(name)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetOrCreate(ctx, userID, trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create %s: %w", s.repo.Kind(), err)
	}
	return item, nil
}

// Update は所有者スコープで名前を更新する。
// 対象が存在しない場合も他ユーザー所有の場合も未検出エラーを返す。
func (s *Service) Update(ctx context.Context, userID, id, name string) (*model.OwnedItem, error) {
	trimmed, err := s.validateName(name)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.UpdateName(ctx, userID, id, trimmed)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, model.NewValidationError("name", "同じ名前が既に存在します")
		}
		return nil, fmt.Errorf("failed to update %s: %w", s.repo.Kind(), err)
	}
	if item == nil {
		return nil, s.notFoundError(id)
	}
	return item, nil
}

// Delete は所有者スコープでレコードを削除する。
// 関連付けられたレシピからは外れるが、レシピ本体には影響しない。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.repo.Kind(), err)
	}
	if !deleted {
		return s.notFoundError(id)
	}
	return nil
}
