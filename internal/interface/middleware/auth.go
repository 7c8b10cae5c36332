package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/contacts-identity/internal/application"
	"github.com/oksasatya/contacts-identity/internal/domain/entity"
	"github.com/oksasatya/contacts-identity/pkg/response"
)

const (
	CurrentUserKey = "currentUser"
	UserIDKey      = "userID"
)

// Authenticator resolves a bearer token to the user that currently holds it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

// Auth guards protected routes. The request needs "Authorization: Bearer <token>"
// and the token must be the one stored for its user; a valid signature alone
// is not enough once the user has logged out or logged in elsewhere.
// It sets currentUser and userID in the Gin context on success.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, application.ErrUnauthenticated.Error(), nil)
			return
		}
		u, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, application.ErrUnauthenticated) {
				response.Abort(c, http.StatusUnauthorized, application.ErrUnauthenticated.Error(), nil)
				return
			}
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "internal error", nil)
			return
		}
		c.Set(CurrentUserKey, u)
		c.Set(UserIDKey, u.ID)
		c.Next()
	}
}

// CurrentUser returns the user resolved by Auth.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
