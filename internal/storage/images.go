// Package storage keeps post images in the Firebase Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/google/uuid"
)

const (
	DefaultMaxUploadSizeMB = 10

	firebaseHost = "firebasestorage.googleapis.com"
	gcsHost      = "storage.googleapis.com"
)

var allowedImageMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Backend is the object API the image store writes through.
type Backend interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Remove(ctx context.Context, name string) error
}

// BucketBackend stores objects in a Cloud Storage bucket.
type BucketBackend struct {
	bucket *gcs.BucketHandle
}

func NewBucketBackend(bucket *gcs.BucketHandle) *BucketBackend {
	return &BucketBackend{bucket: bucket}
}

func (b *BucketBackend) Put(ctx context.Context, name, contentType string, data []byte) error {
	w := b.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", name, err)
	}
	return nil
}

func (b *BucketBackend) Remove(ctx context.Context, name string) error {
	return b.bucket.Object(name).Delete(ctx)
}

type UploadImageInput struct {
	UserID   string
	Filename string
	Content  []byte
}

// ImageStore uploads post images and removes them when posts are swept.
type ImageStore struct {
	backend            Backend
	bucket             string
	maxUploadSizeBytes int64
	now                func() time.Time
}

func NewImageStore(backend Backend, bucket string, maxUploadSizeMB int) *ImageStore {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	return &ImageStore{
		backend:            backend,
		bucket:             bucket,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
	}
}

// Upload stores the image under posts/{uid}/{unixMillis}_{filename} and
// returns its download URL.
func (s *ImageStore) Upload(ctx context.Context, in UploadImageInput) (string, error) {
	if in.UserID == "" {
		return "", models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return "", models.NewValidationError("Image is required")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	contentType := http.DetectContentType(in.Content)
	ext, ok := allowedImageMIME[contentType]
	if !ok {
		return "", models.NewValidationError("Invalid image type")
	}

	name := ObjectName(in.UserID, in.Filename, ext, s.now())
	if err := s.backend.Put(ctx, name, contentType, in.Content); err != nil {
		return "", err
	}
	return DownloadURL(s.bucket, name), nil
}

// Delete removes the object behind rawURL. URLs outside the bucket and
// objects that are already gone are not errors.
func (s *ImageStore) Delete(ctx context.Context, rawURL string) error {
	bucket, name, ok := ParseObjectURL(rawURL)
	if !ok || bucket != s.bucket {
		return nil
	}
	if err := s.backend.Remove(ctx, name); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete image %s: %w", name, err)
	}
	return nil
}

// ObjectName builds the object path of an uploaded post image.
func ObjectName(uid, filename, ext string, at time.Time) string {
	base := sanitizeFilename(path.Base(filename))
	if base == "" || base == "." || base == "_" {
		base = uuid.NewString() + ext
	}
	return fmt.Sprintf("posts/%s/%d_%s", uid, at.UnixMilli(), base)
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// DownloadURL is the Firebase Storage media URL of an object.
func DownloadURL(bucket, name string) string {
	escaped := strings.ReplaceAll(url.PathEscape(name), "/", "%2F")
	return fmt.Sprintf("https://%s/v0/b/%s/o/%s?alt=media", firebaseHost, bucket, escaped)
}

// ParseObjectURL extracts bucket and object name from a Firebase Storage
// download URL or a storage.googleapis.com URL.
func ParseObjectURL(rawURL string) (bucket, name string, ok bool) {
	if rawURL == "" {
		return "", "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}

	switch u.Host {
	case firebaseHost:
		rest, found := strings.CutPrefix(u.Path, "/v0/b/")
		if !found {
			return "", "", false
		}
		bucket, name, found = strings.Cut(rest, "/o/")
		if !found || bucket == "" || name == "" {
			return "", "", false
		}
		return bucket, name, true
	case gcsHost:
		var found bool
		bucket, name, found = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if !found || bucket == "" || name == "" {
			return "", "", false
		}
		return bucket, name, true
	}
	return "", "", false
}
