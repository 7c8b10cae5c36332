package application

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("email in use")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyVerified  = errors.New("verification has already been passed")
	ErrUnauthorized     = errors.New("email or password is wrong")
	ErrEmailNotVerified = errors.New("email not verified")
	ErrUnauthenticated  = errors.New("not authorized")
	ErrProcessing       = errors.New("image processing failed")
	ErrStorage          = errors.New("avatar storage failed")
)
