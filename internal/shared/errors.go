package shared

import (
	"errors"

	"github.com/mycrm-app/mycrm/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found. It is the httpx sentinel so
	// handlers can pass repository errors straight to RespondError.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
