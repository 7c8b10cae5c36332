package application

import (
	"context"
	"io"
	"time"
)

// PasswordHasher is a one-way hash with comparison.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// TokenIssuer signs time-boxed credentials bound to a user id.
// Verify fails on bad signature or expiry.
type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
	Verify(token string) (userID string, err error)
}

// Notifier delivers one email.
type Notifier interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// ImageTransformer decodes src, resizes it to the avatar canvas and encodes it to dst.
type ImageTransformer interface {
	Transform(src io.Reader, dst io.Writer, ext string) error
	// OutputExt maps an upload extension to the one the transformer will encode to.
	OutputExt(ext string) string
}

// AvatarStorage moves a finished file from local disk into durable storage
// and returns the URL it is reachable at. On error nothing is published.
type AvatarStorage interface {
	Put(ctx context.Context, localPath, name string) (url string, err error)
}
