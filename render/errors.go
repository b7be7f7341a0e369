package render

import "errors"

var (
	// ErrEmptyMarkup indicates render was called without markup.
	ErrEmptyMarkup = errors.New("markup is required")
	// ErrInvalidAttempts indicates a non-positive attempt budget.
	ErrInvalidAttempts = errors.New("max attempts must be at least 1")
	// ErrSessionDisconnected indicates the acquired session dropped before
	// the attempt could render.
	ErrSessionDisconnected = errors.New("render session disconnected")
	// ErrAttemptsExhausted indicates every render attempt failed.
	ErrAttemptsExhausted = errors.New("render attempts exhausted")
)
