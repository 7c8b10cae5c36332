package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/contacts-identity/internal/domain/entity"
	repo "github.com/oksasatya/contacts-identity/internal/domain/repository"
)

type AvatarService struct {
	Repo        repo.UserRepository
	Transformer ImageTransformer
	Storage     AvatarStorage
	Logger      *logrus.Logger
}

func NewAvatarService(repo repo.UserRepository, transformer ImageTransformer, storage AvatarStorage, logger *logrus.Logger) *AvatarService {
	return &AvatarService{Repo: repo, Transformer: transformer, Storage: storage, Logger: logger}
}

// AvatarName derives the stored file name from the user id and the intake file
// name, which is already unique per upload.
func AvatarName(userID, intakeName, ext string) string {
	base := strings.TrimSuffix(filepath.Base(intakeName), filepath.Ext(intakeName))
	return userID + "_" + base + ext
}

// UpdateAvatar turns the uploaded file at intakePath into the user's avatar.
// The file is moved into storage before the record changes, so the record never
// points at a file that did not land. Temporary files are always removed.
func (s *AvatarService) UpdateAvatar(ctx context.Context, u *entity.User, intakePath string) (string, error) {
	if intakePath == "" {
		return "", ErrInvalidInput
	}
	defer removeQuietly(intakePath)

	ext := s.Transformer.OutputExt(strings.ToLower(filepath.Ext(intakePath)))
	name := AvatarName(u.ID, intakePath, ext)
	outPath := filepath.Join(filepath.Dir(intakePath), name)
	defer removeQuietly(outPath)

	if err := s.transform(intakePath, outPath, ext); err != nil {
		stats.Add(statAvatarsFailed, 1)
		s.log().WithError(err).WithField("user_id", u.ID).Warn("avatar transform failed")
		return "", fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	url, err := s.Storage.Put(ctx, outPath, name)
	if err != nil {
		stats.Add(statAvatarsFailed, 1)
		s.log().WithError(err).WithField("user_id", u.ID).Error("avatar storage failed")
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := s.Repo.UpdateAvatar(ctx, u.ID, url); err != nil {
		// the stored file is left orphaned, nothing references it
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("update avatar url: %w", err)
	}
	stats.Add(statAvatarsUpdated, 1)
	s.log().WithFields(logrus.Fields{"user_id": u.ID, "avatar": url}).Info("avatar updated")
	return url, nil
}

func (s *AvatarService) transform(src, dst, ext string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := s.Transformer.Transform(in, out, ext); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (s *AvatarService) log() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).WithField("path", path).Warn("temp file not removed")
	}
}
