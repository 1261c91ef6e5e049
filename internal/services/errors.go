package services

import "errors"

// Common service errors
var (
	ErrNoActiveSession  = errors.New("no active session")
	ErrQuestionNotFound = errors.New("question not found in session")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrInvalidRequest   = errors.New("invalid request")
)

// Error checking helpers

func IsNoActiveSessionError(err error) bool {
	return errors.Is(err, ErrNoActiveSession)
}

func IsQuestionNotFoundError(err error) bool {
	return errors.Is(err, ErrQuestionNotFound)
}

func IsNotAuthenticatedError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}
