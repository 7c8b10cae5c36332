package handlers

import (
	"errors"
	"net/http"

	app "github.com/oksasatya/contacts-identity/internal/application"
)

// statusFor maps service errors onto HTTP statuses. Anything unknown is an
// internal error and its text is not shown to the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest, app.ErrInvalidInput.Error()
	case errors.Is(err, app.ErrAlreadyVerified):
		return http.StatusBadRequest, app.ErrAlreadyVerified.Error()
	case errors.Is(err, app.ErrConflict):
		return http.StatusConflict, app.ErrConflict.Error()
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound, app.ErrNotFound.Error()
	case errors.Is(err, app.ErrUnauthorized):
		return http.StatusUnauthorized, app.ErrUnauthorized.Error()
	case errors.Is(err, app.ErrEmailNotVerified):
		return http.StatusUnauthorized, app.ErrEmailNotVerified.Error()
	case errors.Is(err, app.ErrUnauthenticated):
		return http.StatusUnauthorized, app.ErrUnauthenticated.Error()
	case errors.Is(err, app.ErrProcessing):
		return http.StatusInternalServerError, app.ErrProcessing.Error()
	case errors.Is(err, app.ErrStorage):
		return http.StatusInternalServerError, app.ErrStorage.Error()
	}
	return http.StatusInternalServerError, "internal error"
}
