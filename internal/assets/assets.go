// assets описывает границу загрузки изображений профиля (аватар, обложка)
// во внешнее хранилище. Реализации: minio (S3) и cloudinary.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

var (
	// ErrUpload — внешнее хранилище не приняло файл.
	ErrUpload = errors.New("asset upload failed")
	// ErrInvalidFile — файл пустой, слишком большой или недопустимого типа.
	ErrInvalidFile = errors.New("invalid file")
	// ErrForeignURL — URL не принадлежит этому хранилищу.
	ErrForeignURL = errors.New("url does not belong to the asset store")
)

// Папки хранения.
const (
	FolderAvatars = "avatars"
	FolderCovers  = "covers"
)

// File — загружаемый файл. Body читается ровно один раз.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader загружает файл в папку folder и возвращает публичный URL.
// Ошибки оборачивают ErrInvalidFile или ErrUpload.
// Delete удаляет ранее загруженный файл по URL, который вернул Upload.
type Uploader interface {
	Upload(ctx context.Context, folder string, f *File) (string, error)
	Delete(ctx context.Context, url string) error
}

// Limits — ограничения на загружаемые файлы.
type Limits struct {
	MaxSizeBytes        int64
	AllowedContentTypes []string
}

// Check проверяет файл по ограничениям.
func (l Limits) Check(f *File) error {
	if f == nil || f.Body == nil {
		return fmt.Errorf("%w: empty file", ErrInvalidFile)
	}

	if f.Size <= 0 || (l.MaxSizeBytes > 0 && f.Size > l.MaxSizeBytes) {
		return fmt.Errorf("%w: size %d out of range", ErrInvalidFile, f.Size)
	}

	ct := normalizeContentType(f.ContentType)
	if len(l.AllowedContentTypes) > 0 && !slices.Contains(l.AllowedContentTypes, ct) {
		return fmt.Errorf("%w: content type %q is not allowed", ErrInvalidFile, f.ContentType)
	}

	return nil
}

// Ext возвращает расширение файла по типу содержимого.
func Ext(contentType string) string {
	switch normalizeContentType(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

// normalizeContentType отбрасывает параметры ("image/png; charset=...") и регистр.
func normalizeContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
