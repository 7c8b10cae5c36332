package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutMovesFile(t *testing.T) {
	tmp := t.TempDir()
	public := filepath.Join(t.TempDir(), "avatars")
	l, err := NewLocal(public, "/avatars")
	require.NoError(t, err)

	src := filepath.Join(tmp, "u1_abc.png")
	require.NoError(t, os.WriteFile(src, []byte("img"), 0o644))

	url, err := l.Put(context.Background(), src, "u1_abc.png")
	require.NoError(t, err)
	assert.Equal(t, "/avatars/u1_abc.png", url)

	got, err := os.ReadFile(filepath.Join(public, "u1_abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(got))
	assert.NoFileExists(t, src)
}

func TestLocal_PutMissingSource(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/avatars")
	require.NoError(t, err)

	_, err = l.Put(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "missing.png")
	assert.Error(t, err)
}

func TestLocal_PutRejectsPathInName(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/avatars")
	require.NoError(t, err)

	_, err = l.Put(context.Background(), "whatever", "../escape.png")
	assert.Error(t, err)
}
