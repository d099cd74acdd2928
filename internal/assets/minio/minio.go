// minio реализует assets.Uploader поверх MinIO/S3 (PutObject).
package minio

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/session-service/internal/assets"
	"github.com/pribylovaa/session-service/internal/config"
)

// Uploader — адаптер MinIO для изображений профиля.
type Uploader struct {
	client  *mclient.Client
	bucket  string
	baseURL string
	limits  assets.Limits
}

// New создаёт клиента MinIO. Схема endpoint определяет Secure.
// Бакет обязан существовать заранее.
func New(ctx context.Context, s3 config.S3Config, limits assets.Limits) (*Uploader, error) {
	const op = "assets.minio.New"

	endpoint := s3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(s3.RootUser, s3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, s3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, s3.Bucket)
	}

	baseURL := strings.TrimRight(s3.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, s3.Bucket)
	}

	return &Uploader{client: client, bucket: s3.Bucket, baseURL: baseURL, limits: limits}, nil
}

// Upload кладёт файл под ключом "<folder>/<uuid><ext>" и возвращает публичный URL.
func (u *Uploader) Upload(ctx context.Context, folder string, f *assets.File) (string, error) {
	const op = "assets.minio.Upload"

	if err := u.limits.Check(f); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := path.Join(folder, uuid.NewString()+assets.Ext(f.ContentType))

	_, err := u.client.PutObject(ctx, u.bucket, key, f.Body, f.Size, mclient.PutObjectOptions{
		ContentType: f.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, assets.ErrUpload, err)
	}

	return u.baseURL + "/" + key, nil
}

// Delete удаляет объект по публичному URL.
func (u *Uploader) Delete(ctx context.Context, rawURL string) error {
	const op = "assets.minio.Delete"

	key, ok := strings.CutPrefix(rawURL, u.baseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("%s: %w", op, assets.ErrForeignURL)
	}

	if err := u.client.RemoveObject(ctx, u.bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

var _ assets.Uploader = (*Uploader)(nil)
