package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	app "github.com/oksasatya/contacts-identity/internal/application"
	"github.com/oksasatya/contacts-identity/internal/interface/middleware"
	"github.com/oksasatya/contacts-identity/pkg/response"
	"github.com/oksasatya/contacts-identity/pkg/validation"
)

type UserHandler struct {
	Identity       *app.IdentityService
	Avatars        *app.AvatarService
	Logger         *logrus.Logger
	UploadDir      string
	MaxAvatarBytes int64
}

func NewUserHandler(identity *app.IdentityService, avatars *app.AvatarService, logger *logrus.Logger, uploadDir string, maxAvatarBytes int64) *UserHandler {
	return &UserHandler{
		Identity:       identity,
		Avatars:        avatars,
		Logger:         logger,
		UploadDir:      uploadDir,
		MaxAvatarBytes: maxAvatarBytes,
	}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

// login fields are not required here: an empty credential is just a wrong one
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expiresAt"`
	User      app.UserSummary `json:"user"`
}

func (h *UserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Identity.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"user": u}, "user created")
}

func (h *UserHandler) Verify(c *gin.Context) {
	if err := h.Identity.Verify(c.Request.Context(), c.Param("token")); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Abort(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.fail(c, err)
		return
	}
	response.OK[any](c, http.StatusOK, nil, "verification successful")
}

func (h *UserHandler) ResendVerify(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, http.StatusBadRequest, "missing required field email", validation.ToDetails(err))
		return
	}
	if err := h.Identity.ResendVerification(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	response.OK[any](c, http.StatusOK, nil, "verification email sent")
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt.Unix(), User: res.User}, "login successful")
}

func (h *UserHandler) Logout(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, app.ErrUnauthenticated)
		return
	}
	if err := h.Identity.Logout(c.Request.Context(), u); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Current(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, app.ErrUnauthenticated)
		return
	}
	response.OK(c, http.StatusOK, h.Identity.Current(u), "current user")
}

// UpdateAvatar takes a multipart "avatar" file, parks it in the upload dir
// under a fresh name and hands it to the avatar pipeline.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, app.ErrUnauthenticated)
		return
	}
	if h.MaxAvatarBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxAvatarBytes+1<<20)
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Abort(c, http.StatusRequestEntityTooLarge, "file too large", nil)
			return
		}
		response.Abort(c, http.StatusBadRequest, "file is required", map[string]string{"avatar": "is required"})
		return
	}
	if h.MaxAvatarBytes > 0 && fh.Size > h.MaxAvatarBytes {
		response.Abort(c, http.StatusRequestEntityTooLarge, "file too large", nil)
		return
	}

	intake := filepath.Join(h.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, intake); err != nil {
		h.fail(c, err)
		return
	}
	url, err := h.Avatars.UpdateAvatar(c.Request.Context(), u, intake)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"avatarURL": url}, "avatar updated")
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	response.Abort(c, status, msg, nil)
}
