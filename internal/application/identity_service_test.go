package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/contacts-identity/internal/application"
	"github.com/oksasatya/contacts-identity/internal/infrastructure/memory"
	"github.com/oksasatya/contacts-identity/pkg/helpers"
)

type sentMail struct {
	to, subject, text, html string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, text, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, text: text, html: html})
	return nil
}

// lastToken pulls the verification token out of the most recent link.
func (n *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no email sent")
	text := n.sent[len(n.sent)-1].text
	const marker = "/api/users/verify/"
	i := strings.Index(text, marker)
	require.GreaterOrEqual(t, i, 0, "no verification link in %q", text)
	rest := text[i+len(marker):]
	if j := strings.IndexAny(rest, " \n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

type fixture struct {
	svc    *application.IdentityService
	repo   *memory.UserRepository
	mail   *fakeNotifier
	tokens *helpers.JWTManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewUserRepository()
	mail := &fakeNotifier{}
	tokens := helpers.NewJWTManager("test-secret", time.Hour)
	svc := application.NewIdentityService(repo, helpers.NewBcryptHasher(bcrypt.MinCost), tokens, mail, helpers.NewNopLogger(), application.IdentityConfig{
		AppName:       "Contacts",
		PublicBaseURL: "http://localhost:8080/",
	})
	return &fixture{svc: svc, repo: repo, mail: mail, tokens: tokens}
}

// verifiedUser signs up and verifies email/password.
func (f *fixture) verifiedUser(t *testing.T, email, password string) {
	t.Helper()
	_, err := f.svc.Signup(context.Background(), email, password)
	require.NoError(t, err)
	require.NoError(t, f.svc.Verify(context.Background(), f.mail.lastToken(t)))
}

func TestSignup_CreatesUnverifiedUserAndSendsLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sum, err := f.svc.Signup(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sum.Email)
	assert.Equal(t, "starter", sum.Subscription)
	assert.Equal(t, application.DefaultAvatarURL("a@x.com"), sum.AvatarURL)

	u, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, u.Verified)
	assert.Nil(t, u.Token)
	assert.NotEqual(t, "pw", u.Password)
	assert.NotEmpty(t, u.VerificationToken)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "a@x.com", f.mail.sent[0].to)
	assert.Equal(t, u.VerificationToken, f.mail.lastToken(t))
	assert.Contains(t, f.mail.sent[0].text, "http://localhost:8080/api/users/verify/")
}

func TestSignup_MissingFields(t *testing.T) {
	f := newFixture(t)
	for _, tc := range [][2]string{{"", "pw"}, {"a@x.com", ""}, {"   ", "pw"}} {
		_, err := f.svc.Signup(context.Background(), tc[0], tc[1])
		assert.ErrorIs(t, err, application.ErrInvalidInput)
	}
}

func TestSignup_PasswordLimitCountsBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 40 runes, 80 bytes
	_, err := f.svc.Signup(ctx, "a@x.com", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, application.ErrInvalidInput)
	_, err = f.repo.GetByEmail(ctx, "a@x.com")
	assert.Error(t, err)

	_, err = f.svc.Signup(ctx, "a@x.com", strings.Repeat("é", 36))
	require.NoError(t, err)
}

func TestSignup_DuplicateEmailConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Signup(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	for _, pw := range []string{"pw", "other", "x"} {
		_, err := f.svc.Signup(context.Background(), "a@x.com", pw)
		assert.ErrorIs(t, err, application.ErrConflict)
	}
}

func TestSignup_MailFailureKeepsAccount(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	_, err := f.svc.Signup(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	_, err = f.repo.GetByEmail(context.Background(), "a@x.com")
	assert.NoError(t, err)
}

func TestVerify_ConsumesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	token := f.mail.lastToken(t)

	require.NoError(t, f.svc.Verify(ctx, token))
	u, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.Empty(t, u.VerificationToken)

	assert.ErrorIs(t, f.svc.Verify(ctx, token), application.ErrNotFound)
}

func TestVerify_ConcurrentCallsConsumeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	token := f.mail.lastToken(t)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.Verify(ctx, token)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, application.ErrNotFound)
	}
	assert.Equal(t, 1, ok)
}

func TestVerify_UnknownToken(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Verify(context.Background(), "nope"), application.ErrNotFound)
	assert.ErrorIs(t, f.svc.Verify(context.Background(), ""), application.ErrNotFound)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ResendVerification(ctx, ""), application.ErrInvalidInput)
	assert.ErrorIs(t, f.svc.ResendVerification(ctx, "ghost@x.com"), application.ErrNotFound)

	_, err := f.svc.Signup(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	first := f.mail.lastToken(t)

	require.NoError(t, f.svc.ResendVerification(ctx, "a@x.com"))
	second := f.mail.lastToken(t)
	assert.NotEqual(t, first, second)
	assert.Len(t, f.mail.sent, 2)

	assert.ErrorIs(t, f.svc.Verify(ctx, first), application.ErrNotFound)
	require.NoError(t, f.svc.Verify(ctx, second))

	assert.ErrorIs(t, f.svc.ResendVerification(ctx, "a@x.com"), application.ErrAlreadyVerified)
}

func TestResendVerification_MailFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	f.mail.err = errors.New("smtp down")
	err = f.svc.ResendVerification(ctx, "a@x.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrNotFound)
}

func TestLogin_RefusedBeforeVerification(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Signup(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, application.ErrEmailNotVerified)

	u, err := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, u.Token)
}

func TestLogin_BadCredentialsAreGeneric(t *testing.T) {
	f := newFixture(t)
	f.verifiedUser(t, "a@x.com", "pw")

	_, errWrongPw := f.svc.Login(context.Background(), "a@x.com", "nope")
	_, errNoUser := f.svc.Login(context.Background(), "ghost@x.com", "pw")
	_, errEmpty := f.svc.Login(context.Background(), "", "")

	assert.ErrorIs(t, errWrongPw, application.ErrUnauthorized)
	assert.ErrorIs(t, errNoUser, application.ErrUnauthorized)
	assert.ErrorIs(t, errEmpty, application.ErrUnauthorized)
	assert.Equal(t, errWrongPw.Error(), errNoUser.Error())
}

func TestLogin_WrongPasswordOnUnverifiedDoesNotLeakState(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Signup(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, application.ErrUnauthorized)
}

func TestSessionLifecycle_LogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "a@x.com", "pw")

	res, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "starter", res.User.Subscription)

	u, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, application.UserSummary{Email: "a@x.com", Subscription: "starter"}, f.svc.Current(u))

	require.NoError(t, f.svc.Logout(ctx, u))

	// still a valid signature, but no longer the stored token
	_, err = f.tokens.Verify(res.Token)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, application.ErrUnauthenticated)
}

func TestSessionLifecycle_SecondLoginRevokesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "a@x.com", "pw")

	first, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, err = f.svc.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, application.ErrUnauthenticated)

	u, err := f.svc.Authenticate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestAuthenticate_TokenOnlyAuthorizesItsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "a@x.com", "pw")
	f.verifiedUser(t, "b@x.com", "pw")

	a, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "b@x.com", "pw")
	require.NoError(t, err)

	u, err := f.svc.Authenticate(ctx, a.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	forged, _, err := helpers.NewJWTManager("other-secret", time.Hour).Issue("whoever")
	require.NoError(t, err)
	orphan, _, err := f.tokens.Issue("no-such-user")
	require.NoError(t, err)
	expired, _, err := helpers.NewJWTManager("test-secret", -time.Minute).Issue("whoever")
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":   "",
		"garbage": "abc.def.ghi",
		"forged":  forged,
		"no user": orphan,
		"expired": expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Authenticate(ctx, tok)
			assert.ErrorIs(t, err, application.ErrUnauthenticated)
		})
	}
}

func TestAuthenticate_ValidTokenNeverStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "a@x.com", "pw")
	u, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	tok, _, err := f.tokens.Issue(u.ID)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, application.ErrUnauthenticated)
}

func TestIsCurrentToken(t *testing.T) {
	f := newFixture(t)
	f.verifiedUser(t, "a@x.com", "pw")
	res, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	u, err := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	assert.True(t, f.svc.IsCurrentToken(u, res.Token))
	assert.False(t, f.svc.IsCurrentToken(u, res.Token+"x"))
	assert.False(t, f.svc.IsCurrentToken(u, ""))
	assert.False(t, f.svc.IsCurrentToken(nil, res.Token))

	empty := ""
	u.Token = &empty
	assert.False(t, u.HasSession())
	assert.False(t, f.svc.IsCurrentToken(u, ""))
	u.Token = nil
	assert.False(t, f.svc.IsCurrentToken(u, res.Token))
}

func TestDefaultAvatarURL_Deterministic(t *testing.T) {
	a := application.DefaultAvatarURL("a@x.com")
	assert.Equal(t, a, application.DefaultAvatarURL("a@x.com"))
	assert.Equal(t, a, application.DefaultAvatarURL("  A@X.com "))
	assert.NotEqual(t, a, application.DefaultAvatarURL("b@x.com"))
	assert.True(t, strings.HasPrefix(a, "https://www.gravatar.com/avatar/"))
}
