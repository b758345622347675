package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSImageStore はローカルファイルシステムに画像を保存するImageStore実装。
// 開発環境とシングルノード構成向けのデフォルトバックエンド。
type FSImageStore struct {
	baseDir string
}

// NewFSImageStore はFSImageStoreを生成する。baseDirが無ければ作成する。
func NewFSImageStore(baseDir string) (*FSImageStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &FSImageStore{baseDir: baseDir}, nil
}

// resolve はストレージキーをbaseDir配下の絶対パスに解決する。
// パストラバーサルでbaseDirの外に出るキーは拒否する。
func (s *FSImageStore) resolve(key string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(full, filepath.Clean(s.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid image key: %s", key)
	}
	return full, nil
}

// Save は画像をbaseDir配下に保存し、ストレージキーを返す。
func (s *FSImageStore) Save(ctx context.Context, recipeID, ext string, data io.Reader) (string, error) {
	key := NewImageKey(recipeID, ext)

	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image subdirectory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return key, nil
}

// Open は指定キーの画像ファイルを開く。
func (s *FSImageStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image file: %w", err)
	}

	return f, ContentTypeForKey(key), nil
}

// Delete は指定キーの画像ファイルを削除する。存在しない場合もエラーにしない。
func (s *FSImageStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ImageStore = (*FSImageStore)(nil)
