// internal/driver/minitel/errors.go
package minitel

import "errors"

// Driver error sentinels. Callers classify failures with errors.Is, so
// wrap these rather than replacing them.
var (
	ErrNotConnected     = errors.New("terminal not connected")
	ErrAlreadyConnected = errors.New("terminal already connected")
	ErrConnectionFailed = errors.New("terminal connection failed")
	ErrReplyTimeout     = errors.New("no matching reply before deadline")
	ErrValidation       = errors.New("validation failed")
)
