// Package storage はレシピ画像のバイナリ保存を提供する。
//
// 画像本体はデータベース外（ローカルFSまたはS3互換オブジェクトストレージ）に置き、
// データベースにはストレージキーのみを保持する。キーの形式は
// "recipes/<recipeID>/<uuid><ext>" で、どちらのバックエンドでも共通。
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions は受け入れる画像拡張子とMIMEタイプの対応。
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageStore は画像バイナリの保存・取得・削除のインターフェース。
type ImageStore interface {
	// Save は画像を保存し、ストレージキーを返す。
	// extは拡張子（".jpg"等）。許可外の拡張子はエラーを返す。
	Save(ctx context.Context, recipeID, ext string, data io.Reader) (key string, err error)

	// Open は指定キーの画像を読み出す。呼び出し側がCloseする。
	// 存在しない場合はエラーを返す。
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete は指定キーの画像を削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, key string) error
}

// NewImageKey はレシピIDと拡張子からストレージキーを生成する。
// ファイル名部分はUUIDで毎回ユニークになる。
func NewImageKey(recipeID, ext string) string {
	return path.Join("recipes", recipeID, uuid.New().String()+ext)
}

// ValidateExtension は拡張子が許可リストに含まれるかを検証し、
// 正規化した拡張子を返す。
func ValidateExtension(ext string) (string, error) {
	normalized := strings.ToLower(ext)
	if _, ok := allowedExtensions[normalized]; !ok {
		return "", fmt.Errorf("unsupported image extension: %s", ext)
	}
	return normalized, nil
}

// ContentTypeForKey はストレージキーの拡張子からMIMEタイプを返す。
// 不明な拡張子はapplication/octet-streamを返す。
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if mime, ok := allowedExtensions[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
