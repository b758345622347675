// Package recipe はレシピ管理のドメインロジックを提供する。
package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
	"github.com/hitoshi/recipebook/internal/security"
	"github.com/hitoshi/recipebook/internal/storage"
)

// maxTitleLength はレシピタイトルの最大長。
const maxTitleLength = 255

// imageFetchTimeout はURL指定での画像取得タイムアウト。
const imageFetchTimeout = 10 * time.Second

// ServiceConfig はレシピサービスの設定。
type ServiceConfig struct {
	// MaxImageSize は受け入れる画像の最大バイト数。
	MaxImageSize int64
}

// Service はレシピ管理のサービス層。
// レシピ本体とタグ・材料の関連付け、画像の添付を扱う。
type Service struct {
	recipeRepo     repository.RecipeRepository
	tagRepo        repository.CollectionRepository
	ingredientRepo repository.CollectionRepository
	sanitizer      security.DescriptionSanitizerService
	linkGuard      security.LinkGuardService
	imageStore     storage.ImageStore
	config         ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	recipeRepo repository.RecipeRepository,
	tagRepo repository.CollectionRepository,
	ingredientRepo repository.CollectionRepository,
	sanitizer security.DescriptionSanitizerService,
	linkGuard security.LinkGuardService,
	imageStore storage.ImageStore,
	config ServiceConfig,
) *Service {
	return &Service{
		recipeRepo:     recipeRepo,
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		sanitizer:      sanitizer,
		linkGuard:      linkGuard,
		imageStore:     imageStore,
		config:         config,
	}
}

// Detail はレシピ本体と関連付けられたタグ・材料をまとめた読み取りモデル。
type Detail struct {
	Recipe      *model.Recipe
	Tags        []*model.OwnedItem
	Ingredients []*model.OwnedItem
}

// CreateInput はレシピ作成の入力。
type CreateInput struct {
	Title           string
	Description     string
	TimeInMinutes   int
	Price           decimal.Decimal
	Link            string
	TagNames        []string
	IngredientNames []string
}

// UpdateInput はレシピ更新の入力。nilのフィールドは変更しない。
// TagNames・IngredientNamesは非nilの場合、空スライスを含めて関連付け全体を置き換える。
type UpdateInput struct {
	Title           *string
	Description     *string
	TimeInMinutes   *int
	Price           *decimal.Decimal
	Link            *string
	TagNames        *[]string
	IngredientNames *[]string
}

// validateScalars はレシピのスカラー属性を検証する。
func (s *Service) validateScalars(title string, timeInMinutes int, price decimal.Decimal, link string) error {
	if strings.TrimSpace(title) == "" {
		return model.NewValidationError("title", "タイトルは必須です")
	}
	if len(title) > maxTitleLength {
		return model.NewValidationError("title", "タイトルが長すぎます")
	}
	if timeInMinutes < 0 {
		return model.NewValidationError("time_in_minutes", "所要時間は0以上である必要があります")
	}
	if price.IsNegative() {
		return model.NewValidationError("price", "価格は0以上である必要があります")
	}
	if !price.Equal(price.Round(2)) {
		return model.NewValidationError("price", "価格の小数点以下は2桁までです")
	}
	if link != "" {
		if err := s.linkGuard.ValidateURL(link); err != nil {
			return model.NewInvalidLinkError(err.Error())
		}
	}
	return nil
}

// cleanNames はタグ・材料名のリストを検証し、前後の空白を除いて返す。
func cleanNames(field string, names []string) ([]string, error) {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, model.NewValidationError(field, "空の名前は指定できません")
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned, nil
}

// detail はレシピにタグ・材料を付けた読み取りモデルを組み立てる。
func (s *Service) detail(ctx context.Context, recipe *model.Recipe) (*Detail, error) {
	tags, err := s.tagRepo.ListByRecipe(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe tags: %w", err)
	}
	ingredients, err := s.ingredientRepo.ListByRecipe(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe ingredients: %w", err)
	}
	return &Detail{Recipe: recipe, Tags: tags, Ingredients: ingredients}, nil
}

// Create はレシピを作成する。
// タグ・材料は名前でget-or-create解決され、レシピ本体と同一トランザクションで
// 関連付けられる。説明文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Detail, error) {
	if err := s.validateScalars(in.Title, in.TimeInMinutes, in.Price, in.Link); err != nil {
		return nil, err
	}
	tagNames, err := cleanNames("tags", in.TagNames)
	if err != nil {
		return nil, err
	}
	ingredientNames, err := cleanNames("ingredients", in.IngredientNames)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipe := &model.Recipe{
		ID:            uuid.New().String(),
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Description:   s.sanitizer.Sanitize(in.Description),
		TimeInMinutes: in.TimeInMinutes,
		Price:         in.Price,
		Link:          in.Link,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.recipeRepo.CreateWithItems(ctx, recipe, tagNames, ingredientNames); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	slog.Info("recipe created",
		slog.String("recipe_id", recipe.ID),
		slog.String("user_id", userID),
	)

	return s.detail(ctx, recipe)
}

// Get は所有者スコープでレシピを取得する。
// 他ユーザー所有のレシピへのアクセスも存在しない場合と同一のエラーになる。
func (s *Service) Get(ctx context.Context, userID, id string) (*Detail, error) {
	recipe, err := s.recipeRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	if recipe == nil {
		return nil, model.NewRecipeNotFoundError(id)
	}
	return s.detail(ctx, recipe)
}

// List は所有者のレシピ一覧を新しい順で返す。
// フィルタのIDは事前にUUIDとして検証する。
func (s *Service) List(ctx context.Context, userID string, filter model.RecipeFilter) ([]*Detail, error) {
	for _, id := range filter.TagIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, model.NewValidationError("tags", "IDの形式が不正です")
		}
	}
	for _, id := range filter.IngredientIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, model.NewValidationError("ingredients", "IDの形式が不正です")
		}
	}

	recipes, err := s.recipeRepo.ListByOwner(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	details := make([]*Detail, 0, len(recipes))
	for _, recipe := range recipes {
		d, err := s.detail(ctx, recipe)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// Update はレシピを部分更新する。
// TagNames・IngredientNamesが非nilの場合は関連付け全体を置き換える。
// 空スライスの指定は全関連付けの解除を意味する。
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*Detail, error) {
	existing, err := s.recipeRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	if existing == nil {
		return nil, model.NewRecipeNotFoundError(id)
	}

	if in.Title != nil {
		existing.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		existing.Description = s.sanitizer.Sanitize(*in.Description)
	}
	if in.TimeInMinutes != nil {
		existing.TimeInMinutes = *in.TimeInMinutes
	}
	if in.Price != nil {
		existing.Price = *in.Price
	}
	if in.Link != nil {
		existing.Link = *in.Link
	}
	if err := s.validateScalars(existing.Title, existing.TimeInMinutes, existing.Price, existing.Link); err != nil {
		return nil, err
	}

	var tagNames, ingredientNames *[]string
	if in.TagNames != nil {
		cleaned, err := cleanNames("tags", *in.TagNames)
		if err != nil {
			return nil, err
		}
		tagNames = &cleaned
	}
	if in.IngredientNames != nil {
		cleaned, err := cleanNames("ingredients", *in.IngredientNames)
		if err != nil {
			return nil, err
		}
		ingredientNames = &cleaned
	}

	existing.UpdatedAt = time.Now().UTC()

	found, err := s.recipeRepo.Update(ctx, existing, tagNames, ingredientNames)
	if err != nil {
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}
	if !found {
		return nil, model.NewRecipeNotFoundError(id)
	}

	return s.detail(ctx, existing)
}

// Delete は所有者スコープでレシピを削除する。
// 関連付けはCASCADE削除されるが、タグ・材料本体は残る。
// 添付画像があればストレージからも削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	imagePath, found, err := s.recipeRepo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if !found {
		return model.NewRecipeNotFoundError(id)
	}

	if imagePath != "" {
		// レシピ本体の削除は完了しているため、画像削除の失敗は警告に留める
		if err := s.imageStore.Delete(ctx, imagePath); err != nil {
			slog.Warn("failed to delete recipe image",
				slog.String("recipe_id", id),
				slog.String("image_path", imagePath),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("recipe deleted",
		slog.String("recipe_id", id),
		slog.String("user_id", userID),
	)

	return nil
}
