package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/contacts-identity/internal/interface/http"
	"github.com/oksasatya/contacts-identity/internal/interface/middleware"
)

// UserModule wires account and session routes.
// Public: POST /users/signup, GET /users/verify/:token, POST /users/verify, POST /users/login
// Protected: GET /users/logout, GET /users/current, PATCH /users/avatars
// All routes are registered under the given RouterGroup (usually /api)
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    middleware.Authenticator
}

func NewUserModule(h *handlers.UserHandler, auth middleware.Authenticator) *UserModule {
	return &UserModule{Handler: h, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.POST("/signup", m.Handler.Signup)
	users.GET("/verify/:token", m.Handler.Verify)
	users.POST("/verify", m.Handler.ResendVerify)
	users.POST("/login", m.Handler.Login)

	auth := users.Group("/")
	auth.Use(middleware.Auth(m.Auth))
	{
		auth.GET("/logout", m.Handler.Logout)
		auth.GET("/current", m.Handler.Current)
		auth.PATCH("/avatars", m.Handler.UpdateAvatar)
	}
}
