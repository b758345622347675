package recipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/storage"
)

// contentTypeExtensions はContent-Typeから拡張子を決めるための対応表。
// URL指定での画像取り込みで、レスポンスの拡張子が信用できない場合に使用する。
var contentTypeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AttachImage はアップロードされた画像をレシピに添付する。
// filenameの拡張子で形式を判定し、既存画像があればストレージから削除する。
// 他ユーザー所有のレシピへの添付は未検出エラーになる。
func (s *Service) AttachImage(ctx context.Context, userID, recipeID, filename string, data io.Reader) (*Detail, error) {
	ext, err := storage.ValidateExtension(path.Ext(filename))
	if err != nil {
		return nil, model.NewInvalidImageError(err.Error())
	}

	return s.attach(ctx, userID, recipeID, ext, data)
}

// AttachImageFromURL は外部URLから画像を取得してレシピに添付する。
// 取得にはSSRF防止機能付きのHTTPクライアントを使用し、プライベートIPや
// メタデータIPへのアクセスをブロックする。
func (s *Service) AttachImageFromURL(ctx context.Context, userID, recipeID, rawURL string) (*Detail, error) {
	if err := s.linkGuard.ValidateURL(rawURL); err != nil {
		return nil, model.NewInvalidLinkError(err.Error())
	}

	client := s.linkGuard.NewSafeClient(imageFetchTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidLinkError(err.Error())
	}
	req.Header.Set("User-Agent", "Recipebook/1.0")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("image fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidLinkError("画像を取得できませんでした")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewInvalidLinkError(fmt.Sprintf("画像の取得に失敗しました (status %d)", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxImageSize+1))
	if err != nil {
		return nil, model.NewInvalidLinkError("画像の読み取りに失敗しました")
	}
	if int64(len(body)) > s.config.MaxImageSize {
		return nil, model.NewInvalidImageError("画像サイズが上限を超えています")
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, model.NewInvalidImageError("Content-Typeが不明です")
	}
	ext, ok := contentTypeExtensions[strings.ToLower(mediaType)]
	if !ok {
		return nil, model.NewInvalidImageError(fmt.Sprintf("未対応のContent-Typeです: %s", mediaType))
	}

	return s.attach(ctx, userID, recipeID, ext, bytes.NewReader(body))
}

// attach は画像を保存してレシピの画像参照を付け替える共通処理。
// レシピが見つからない場合は保存したオブジェクトを片付けてから未検出エラーを返す。
func (s *Service) attach(ctx context.Context, userID, recipeID, ext string, data io.Reader) (*Detail, error) {
	key, err := s.imageStore.Save(ctx, recipeID, ext, data)
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	previous, found, err := s.recipeRepo.UpdateImagePath(ctx, userID, recipeID, key)
	if err != nil {
		s.cleanupImage(ctx, key)
		return nil, fmt.Errorf("failed to update image path: %w", err)
	}
	if !found {
		s.cleanupImage(ctx, key)
		return nil, model.NewRecipeNotFoundError(recipeID)
	}

	if previous != "" && previous != key {
		s.cleanupImage(ctx, previous)
	}

	slog.Info("recipe image attached",
		slog.String("recipe_id", recipeID),
		slog.String("image_path", key),
	)

	return s.Get(ctx, userID, recipeID)
}

// cleanupImage は不要になった画像を削除する。失敗しても処理は継続する。
func (s *Service) cleanupImage(ctx context.Context, key string) {
	if err := s.imageStore.Delete(ctx, key); err != nil {
		slog.Warn("failed to cleanup image",
			slog.String("image_path", key),
			slog.String("error", err.Error()),
		)
	}
}

// OpenImage はレシピに添付された画像を読み出す。
// 戻り値のReadCloserは呼び出し側がCloseする。
func (s *Service) OpenImage(ctx context.Context, userID, recipeID string) (io.ReadCloser, string, error) {
	recipe, err := s.recipeRepo.FindByID(ctx, userID, recipeID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find recipe: %w", err)
	}
	if recipe == nil {
		return nil, "", model.NewRecipeNotFoundError(recipeID)
	}
	if recipe.ImagePath == "" {
		return nil, "", model.NewImageNotFoundError(recipeID)
	}

	body, contentType, err := s.imageStore.Open(ctx, recipe.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}

	return body, contentType, nil
}
