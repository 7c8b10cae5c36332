package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/contacts-identity/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository is the credential store. Every method is a single-record
// atomic write or read; there is no cross-record transaction.
type UserRepository interface {
	// Create assigns ID and timestamps. Returns ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByVerificationToken never matches an empty token.
	GetByVerificationToken(ctx context.Context, token string) (*entity.User, error)

	// UpdateToken stores the current session token; nil clears it.
	UpdateToken(ctx context.Context, id string, token *string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	SetVerificationToken(ctx context.Context, id, token string) error
	// MarkVerified sets verified and clears the verification token, but only
	// while token is still the one stored for id; otherwise ErrNotFound.
	MarkVerified(ctx context.Context, id, token string) error
}
