package media

import (
	"errors"
	"fmt"
)

// ErrOperationCancelled is returned for uploads that were never started
// because the caller's context was done.
var ErrOperationCancelled = errors.New("operation cancelled")

// ErrHostUnavailable is returned by Host.Ready when the media host cannot
// accept uploads.
var ErrHostUnavailable = errors.New("media host unavailable")

// ErrOutsideRoot is returned for local references that leave the media root.
var ErrOutsideRoot = errors.New("reference escapes the media root")

// UploadError reports a reference that could not be resolved to a hosted URL.
type UploadError struct {
	Reference string
	Err       error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.Reference, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
