package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"syscall"
)

// Local keeps avatars in a directory served as static files.
type Local struct {
	Dir        string // durable directory, e.g. public/avatars
	PublicPath string // URL prefix the directory is served under, e.g. /avatars
}

func NewLocal(dir, publicPath string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &Local{Dir: dir, PublicPath: publicPath}, nil
}

// Put moves localPath into Dir as name. A rename across devices falls back to copy.
func (l *Local) Put(_ context.Context, localPath, name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid avatar name %q", name)
	}
	dst := filepath.Join(l.Dir, name)
	if err := os.Rename(localPath, dst); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return "", fmt.Errorf("move avatar: %w", err)
		}
		if err := copyFile(localPath, dst); err != nil {
			_ = os.Remove(dst)
			return "", fmt.Errorf("copy avatar: %w", err)
		}
		_ = os.Remove(localPath)
	}
	return path.Join(l.PublicPath, name), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
