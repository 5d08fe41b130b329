package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFilename reports an archive name outside [a-zA-Z0-9_.-].
	ErrInvalidFilename = errors.New("filename contains invalid characters")
	// ErrTimeout reports that the upload exceeded its hard deadline.
	ErrTimeout = errors.New("upload timeout")
	// ErrNetwork wraps transport failures before any response arrived.
	ErrNetwork = errors.New("network error during upload")
)

// StatusError is returned when the storage endpoint answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed with status: %d", e.StatusCode)
}
