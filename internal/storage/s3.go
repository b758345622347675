package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3ImageStore はS3互換オブジェクトストレージに画像を保存するImageStore実装。
// MinIO等のセルフホスト環境ではエンドポイントを差し替えて使用する。
type S3ImageStore struct {
	client *s3.Client
	bucket string
}

// S3Options はS3ImageStoreの接続設定。
type S3Options struct {
	// Endpoint はS3互換エンドポイント。空の場合はAWS標準エンドポイントを使用する。
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewS3ImageStore はS3ImageStoreを生成する。
// 静的クレデンシャルで認証し、EndpointがあればBaseEndpointとして設定する。
func NewS3ImageStore(ctx context.Context, opts S3Options) (*S3ImageStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			// MinIOはパススタイルのバケットアドレッシングを要求する
			o.UsePathStyle = true
		}
	})

	return &S3ImageStore{client: client, bucket: opts.Bucket}, nil
}

// Save は画像をオブジェクトとしてアップロードし、ストレージキーを返す。
func (s *S3ImageStore) Save(ctx context.Context, recipeID, ext string, data io.Reader) (string, error) {
	key := NewImageKey(recipeID, ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(ContentTypeForKey(key)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put image object: %w", err)
	}

	return key, nil
}

// Open は指定キーのオブジェクトを読み出す。
func (s *S3ImageStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get image object: %w", err)
	}

	contentType := ContentTypeForKey(key)
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}

	return out.Body, contentType, nil
}

// Delete は指定キーのオブジェクトを削除する。存在しない場合もエラーにしない。
func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete image object: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ImageStore = (*S3ImageStore)(nil)
