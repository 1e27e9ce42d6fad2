package usecase

import "errors"

// Sentinels callers wrap with context via fmt.Errorf("%w: ..."). The HTTP
// layer maps them to 400, 404, 410 and 503 respectively.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrGone                  = errors.New("resource gone")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
