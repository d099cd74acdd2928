// cloudinary реализует assets.Uploader поверх Cloudinary Upload API (cloudinary-go).
package cloudinary

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/assets"
)

const uploadTimeout = 20 * time.Second

// Uploader — клиент Cloudinary.
type Uploader struct {
	cld        *cld.Cloudinary
	rootFolder string
	limits     assets.Limits
}

// New разбирает URL вида cloudinary://<api_key>:<api_secret>@<cloud_name>.
// rootFolder — префикс папок внутри аккаунта.
func New(rawURL, rootFolder string, limits assets.Limits) (*Uploader, error) {
	const op = "assets.cloudinary.New"

	rawURL = strings.TrimSpace(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op, err)
	}

	if parsed.Scheme != "cloudinary" {
		return nil, fmt.Errorf("%s: invalid scheme %q", op, parsed.Scheme)
	}

	secret, _ := parsed.User.Password()
	if parsed.User.Username() == "" || secret == "" || parsed.Hostname() == "" {
		return nil, fmt.Errorf("%s: invalid credentials", op)
	}

	client, err := cld.NewFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Uploader{
		cld:        client,
		rootFolder: strings.Trim(rootFolder, "/"),
		limits:     limits,
	}, nil
}

// Upload загружает файл под случайным public_id в папку folder и возвращает secure_url.
func (c *Uploader) Upload(ctx context.Context, folder string, f *assets.File) (string, error) {
	const op = "assets.cloudinary.Upload"

	if err := c.limits.Check(f); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	res, err := c.cld.Upload.Upload(ctx, f.Body, uploader.UploadParams{
		Folder:   path.Join(c.rootFolder, folder),
		PublicID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, assets.ErrUpload, err)
	}

	if res == nil {
		return "", fmt.Errorf("%s: %w: empty response", op, assets.ErrUpload)
	}

	if res.Error.Message != "" {
		return "", fmt.Errorf("%s: %w: %s", op, assets.ErrUpload, res.Error.Message)
	}

	if res.SecureURL == "" {
		return "", fmt.Errorf("%s: %w: missing secure_url", op, assets.ErrUpload)
	}

	return res.SecureURL, nil
}

// Delete удаляет изображение по secure_url.
func (c *Uploader) Delete(ctx context.Context, rawURL string) error {
	const op = "assets.cloudinary.Delete"

	publicID, ok := publicIDFromURL(rawURL)
	if !ok {
		return fmt.Errorf("%s: %w", op, assets.ErrForeignURL)
	}

	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res != nil && res.Error.Message != "" {
		return fmt.Errorf("%s: %s", op, res.Error.Message)
	}

	return nil
}

// publicIDFromURL достаёт public_id из ссылки вида
// https://res.cloudinary.com/<cloud>/image/upload/v123/<folder>/<id>.<ext>.
func publicIDFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	_, rest, ok := strings.Cut(u.Path, "/upload/")
	if !ok {
		return "", false
	}

	if first, tail, found := strings.Cut(rest, "/"); found && isVersion(first) {
		rest = tail
	}

	rest = strings.TrimSuffix(rest, path.Ext(rest))
	if rest == "" {
		return "", false
	}

	return rest, true
}

func isVersion(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}

	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

var _ assets.Uploader = (*Uploader)(nil)
