package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
)

// ObjectUploader is the part of helpers.GCSUploader the GCS driver needs.
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, r io.Reader) (string, error)
}

// GCS uploads avatars to a bucket under Prefix.
type GCS struct {
	Uploader ObjectUploader
	Bucket   string
	Prefix   string
}

func NewGCS(uploader ObjectUploader, bucket string) (*GCS, error) {
	if uploader == nil || bucket == "" {
		return nil, errors.New("gcs not configured")
	}
	return &GCS{Uploader: uploader, Bucket: bucket, Prefix: "avatars"}, nil
}

func (g *GCS) Put(ctx context.Context, localPath, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	objectPath := path.Join(g.Prefix, name)
	url, err := g.Uploader.Upload(ctx, g.Bucket, objectPath, contentType(name), f)
	if err != nil {
		return "", fmt.Errorf("gcs upload %s: %w", objectPath, err)
	}
	_ = os.Remove(localPath)
	return url, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
