package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned for positions outside [0, TotalCount).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotInitialized is returned when the list is used before Init succeeded.
	ErrNotInitialized = errors.New("paged list not initialized")

	// ErrRefreshUnsupported is returned by RefreshItem when no ItemFetcher was configured.
	ErrRefreshUnsupported = errors.New("item refresh not supported by source")

	// ErrClosed is returned after Close by calls that would need a fetch.
	ErrClosed = errors.New("paged list closed")
)

// IndexError reports an out-of-range position.
type IndexError struct {
	Position int
	Size     int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("position %d out of range [0, %d)", e.Position, e.Size)
}

// Unwrap allows errors.Is(err, ErrIndexOutOfRange).
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
