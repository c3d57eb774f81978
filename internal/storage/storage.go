// AngelaMos | 2026
// storage.go

package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/carterperez-dev/printshop/internal/config"
	"github.com/carterperez-dev/printshop/internal/core"
)

// Client writes blobs to an S3-compatible bucket. Each call is a single
// attempt; retries are left to the caller.
type Client struct {
	mc      *minio.Client
	bucket  string
	baseURL string
}

func New(cfg config.StorageConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		MaxRetries:   1,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Client{mc: mc, bucket: cfg.Bucket, baseURL: base}, nil
}

// Put uploads r under key and returns the object's public URL.
func (c *Client) Put(
	ctx context.Context,
	key string,
	r io.Reader,
	size int64,
	contentType string,
) (string, error) {
	ctx, span := core.StartSpan(ctx, "storage.put")
	defer span.End()

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return "", fmt.Errorf("put object %s: %w: %w", key, core.ErrUpstream, err)
	}

	return c.URL(key), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	ctx, span := core.StartSpan(ctx, "storage.delete")
	defer span.End()

	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("remove object %s: %w: %w", key, core.ErrUpstream, err)
	}
	return nil
}

func (c *Client) URL(key string) string {
	return c.baseURL + "/" + escapeKey(key)
}

// Ping checks that the bucket is reachable; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", c.bucket)
	}
	return nil
}

// PrintJobKey builds print-jobs/<owner>/<uuid><ext>. The original name only
// contributes its extension.
func PrintJobKey(ownerID, filename string) string {
	if ownerID == "" {
		ownerID = "anonymous"
	}
	ext := strings.ToLower(filepath.Ext(path.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, " /\\") {
		ext = ""
	}
	return "print-jobs/" + ownerID + "/" + uuid.New().String() + ext
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
