package device

import "errors"

var (
	ErrNotRunning     = errors.New("device: not running")
	ErrAlreadyRunning = errors.New("device: already running")

	// ErrChildDevice is returned when Run is called on a child.  Children
	// are driven by their root device.
	ErrChildDevice = errors.New("device: child devices run through their root")

	ErrDuplicateChild = errors.New("device: duplicate child id")
	ErrUnknownChild   = errors.New("device: unknown child id")
)
