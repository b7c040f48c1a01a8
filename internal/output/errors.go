package output

import (
	"github.com/hyp3rd/ewrap"
)

// Common errors for the output package.
var (
	// ErrWriterClosed is returned when attempting to write to a closed sink.
	ErrWriterClosed = ewrap.New("writer is closed")

	// ErrEmptyPath is returned when a file sink is configured without a path.
	ErrEmptyPath = ewrap.New("log file path is required")

	// ErrFlushTimeout is returned when waiting for queued bytes to reach disk times out.
	ErrFlushTimeout = ewrap.New("flush timed out")
)
