package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/contacts-identity/internal/domain/entity"
	repo "github.com/oksasatya/contacts-identity/internal/domain/repository"
	tpl "github.com/oksasatya/contacts-identity/pkg/mailer/templates"
)

// MaxPasswordBytes is the longest password bcrypt accepts, counted in bytes.
const MaxPasswordBytes = 72

// IdentityConfig is everything the identity service reads from configuration.
type IdentityConfig struct {
	AppName             string
	CompanyName         string
	SupportURL          string
	PublicBaseURL       string // verification links are built on top of it
	DefaultSubscription string
}

type IdentityService struct {
	Repo   repo.UserRepository
	Hasher PasswordHasher
	Tokens TokenIssuer
	Mail   Notifier
	Logger *logrus.Logger
	Cfg    IdentityConfig
}

func NewIdentityService(repo repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, mail Notifier, logger *logrus.Logger, cfg IdentityConfig) *IdentityService {
	if cfg.DefaultSubscription == "" {
		cfg.DefaultSubscription = "starter"
	}
	return &IdentityService{
		Repo:   repo,
		Hasher: hasher,
		Tokens: tokens,
		Mail:   mail,
		Logger: logger,
		Cfg:    cfg,
	}
}

type UserSummary struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL,omitempty"`
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      UserSummary
}

// Signup creates an unverified account and emails the verification link.
// Mail delivery is best effort: a failed send is logged and the account stays.
func (s *IdentityService) Signup(ctx context.Context, email, password string) (*UserSummary, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" || len(password) > MaxPasswordBytes {
		return nil, ErrInvalidInput
	}

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	verifyToken, err := genToken(32)
	if err != nil {
		return nil, fmt.Errorf("verification token: %w", err)
	}

	u := &entity.User{
		Email:             email,
		Password:          hash,
		AvatarURL:         DefaultAvatarURL(email),
		Subscription:      s.Cfg.DefaultSubscription,
		VerificationToken: verifyToken,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	stats.Add(statSignups, 1)
	s.log().WithField("user_id", u.ID).Info("user signed up")

	if err := s.sendVerification(ctx, u.Email, verifyToken); err != nil {
		stats.Add(statMailFailures, 1)
		s.log().WithError(err).WithField("user_id", u.ID).Warn("verification email not sent")
	}

	return &UserSummary{Email: u.Email, Subscription: u.Subscription, AvatarURL: u.AvatarURL}, nil
}

// Verify consumes a verification token. A consumed token is gone, so a second
// call with it fails with ErrNotFound, even when both calls race.
func (s *IdentityService) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	u, err := s.Repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}
	if err := s.Repo.MarkVerified(ctx, u.ID, token); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("mark verified: %w", err)
	}
	stats.Add(statVerifications, 1)
	s.log().WithField("user_id", u.ID).Info("email verified")
	return nil
}

// ResendVerification rotates the verification token and sends it again.
// Unlike signup, a delivery failure is returned: sending is the whole point here.
func (s *IdentityService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidInput
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup email: %w", err)
	}
	if u.Verified {
		return ErrAlreadyVerified
	}

	verifyToken, err := genToken(32)
	if err != nil {
		return fmt.Errorf("verification token: %w", err)
	}
	if err := s.Repo.SetVerificationToken(ctx, u.ID, verifyToken); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	if err := s.sendVerification(ctx, u.Email, verifyToken); err != nil {
		stats.Add(statMailFailures, 1)
		return fmt.Errorf("send verification: %w", err)
	}
	stats.Add(statVerifyResent, 1)
	return nil
}

// Login checks credentials and issues a token that replaces any previous one.
// Unknown email and wrong password are indistinguishable. An unverified account
// with the right password gets ErrEmailNotVerified.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		stats.Add(statLoginsFailed, 1)
		return nil, ErrUnauthorized
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			stats.Add(statLoginsFailed, 1)
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !s.Hasher.Compare(u.Password, password) {
		stats.Add(statLoginsFailed, 1)
		return nil, ErrUnauthorized
	}
	if !u.Verified {
		stats.Add(statLoginsFailed, 1)
		return nil, ErrEmailNotVerified
	}

	token, exp, err := s.Tokens.Issue(u.ID)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("issue token failed")
		return nil, fmt.Errorf("issue token: %w", err)
	}
	// last writer wins: a concurrent login may overwrite this token right after
	if err := s.Repo.UpdateToken(ctx, u.ID, &token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	stats.Add(statLoginsOK, 1)
	s.log().WithField("user_id", u.ID).Info("user logged in")

	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User:      UserSummary{Email: u.Email, Subscription: u.Subscription},
	}, nil
}

// Logout drops the stored token. The old token still verifies cryptographically
// but no longer matches the store, so the gate rejects it.
func (s *IdentityService) Logout(ctx context.Context, u *entity.User) error {
	if err := s.Repo.UpdateToken(ctx, u.ID, nil); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("clear token: %w", err)
	}
	stats.Add(statLogouts, 1)
	s.log().WithField("user_id", u.ID).Info("user logged out")
	return nil
}

// Current projects the resolved user.
func (s *IdentityService) Current(u *entity.User) UserSummary {
	return UserSummary{Email: u.Email, Subscription: u.Subscription}
}

// Authenticate resolves a bearer token to its user: signature and expiry first,
// then the user must exist and still hold exactly this token.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, s.reject("missing token")
	}
	userID, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, s.reject("invalid token")
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, s.reject("user not found")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !s.IsCurrentToken(u, token) {
		return nil, s.reject("token mismatch")
	}
	return u, nil
}

// IsCurrentToken reports whether token is the one stored for u.
func (s *IdentityService) IsCurrentToken(u *entity.User, token string) bool {
	if u == nil || !u.HasSession() || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*u.Token), []byte(token)) == 1
}

func (s *IdentityService) reject(reason string) error {
	stats.Add(statGateRejected, 1)
	s.log().WithField("reason", reason).Debug("request rejected")
	return ErrUnauthenticated
}

// VerificationLink builds the link mailed to the user.
func (s *IdentityService) VerificationLink(token string) string {
	return strings.TrimRight(s.Cfg.PublicBaseURL, "/") + "/api/users/verify/" + url.PathEscape(token)
}

func (s *IdentityService) sendVerification(ctx context.Context, email, token string) error {
	if s.Mail == nil {
		return errors.New("mail not configured")
	}
	data := tpl.NewVerifyEmailData(s.Cfg.AppName, s.Cfg.CompanyName, s.Cfg.SupportURL, email, s.VerificationLink(token), time.Now())
	subject, text, html, err := tpl.Render(tpl.VerifyEmail, data)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return s.Mail.Send(ctx, email, subject, text, html)
}

func (s *IdentityService) log() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// DefaultAvatarURL is the Gravatar identicon for email. It depends on the
// address only, so the same email always yields the same URL.
func DefaultAvatarURL(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=250&d=identicon"
}

func genToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
