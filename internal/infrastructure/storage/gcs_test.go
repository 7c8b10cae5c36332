package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/contacts-identity/pkg/helpers"
)

type fakeUploader struct {
	bucket, object, contentType, body string
	err                               error
}

func (f *fakeUploader) Upload(_ context.Context, bucket, objectPath, contentType string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	f.bucket, f.object, f.contentType, f.body = bucket, objectPath, contentType, string(b)
	return helpers.GCSPublicURL(bucket, objectPath), nil
}

func TestGCS_Put(t *testing.T) {
	src := filepath.Join(t.TempDir(), "u1_x.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o644))

	up := &fakeUploader{}
	g, err := NewGCS(up, "avatars-bucket")
	require.NoError(t, err)

	url, err := g.Put(context.Background(), src, "u1_x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/avatars-bucket/avatars/u1_x.png", url)
	assert.Equal(t, "avatars-bucket", up.bucket)
	assert.Equal(t, "avatars/u1_x.png", up.object)
	assert.Equal(t, "image/png", up.contentType)
	assert.Equal(t, "png", up.body)
	assert.NoFileExists(t, src)
}

func TestGCS_PutFailureKeepsLocalFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "u1_x.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o644))

	g, err := NewGCS(&fakeUploader{err: errors.New("forbidden")}, "b")
	require.NoError(t, err)

	_, err = g.Put(context.Background(), src, "u1_x.png")
	assert.Error(t, err)
	assert.FileExists(t, src)

	_, err = g.Put(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "missing.png")
	assert.Error(t, err)
}

func TestNewGCS_RequiresConfig(t *testing.T) {
	_, err := NewGCS(nil, "b")
	assert.Error(t, err)
	_, err = NewGCS(&fakeUploader{}, "")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", contentType("a.jpg"))
	assert.Equal(t, "application/octet-stream", contentType("a.unknownext"))
}
