package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// Password holds a bcrypt hash, never the plaintext.
//
// Token is the single live session credential; nil means logged out.
// A new login overwrites it, which revokes whatever was there before.
type User struct {
	ID                string
	Email             string
	Password          string
	AvatarURL         string
	Subscription      string
	Token             *string
	VerificationToken string
	Verified          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasSession reports whether the user currently holds a live token.
func (u *User) HasSession() bool {
	return u.Token != nil && *u.Token != ""
}
