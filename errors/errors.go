// Package errors declares the sentinel errors shared across the chat core.
// Callers match them with errors.Is; the gateway maps them to HTTP status
// codes and websocket error frames.
package errors

import "fmt"

var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrAlreadyExists   = fmt.Errorf("already exists")
	ErrConflict        = fmt.Errorf("conflicting relationship state")
	ErrForbidden       = fmt.Errorf("status cannot be requested directly")
	ErrValidation      = fmt.Errorf("invalid input")
	ErrUnauthenticated = fmt.Errorf("invalid or missing credentials")
	ErrRateLimited     = fmt.Errorf("rate limit exceeded")
	ErrBlocked         = fmt.Errorf("recipient unreachable")
	ErrPersistence     = fmt.Errorf("storage failure")

	ErrUserAlreadyExists  = fmt.Errorf("username already taken: %w", ErrAlreadyExists)
	ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", ErrUnauthenticated)
	ErrInvalidPassword    = fmt.Errorf("password complexity not met: %w", ErrValidation)
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
