package backend

import "errors"

var (
	// ErrRequestFailed wraps every non-2xx backend response.
	ErrRequestFailed = errors.New("backend: request failed")

	// ErrNotFound is returned alongside ErrRequestFailed for 404 responses.
	ErrNotFound = errors.New("backend: not found")

	// ErrInvalidRule is returned when a rule has no kind-specific path.
	ErrInvalidRule = errors.New("backend: unsupported rule")
)
