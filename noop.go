package cutlog

// NoopWriter is a writer that does nothing.
type NoopWriter struct{}

// NewNoop creates a new NoopWriter.
func NewNoop() Writer {
	return NoopWriter{}
}

// Ensure NoopWriter implements Writer interface.
var _ Writer = NoopWriter{}

// Write discards the line.
func (NoopWriter) Write(_ string) error { return nil }

// Flush is a no-op operation.
func (NoopWriter) Flush() error { return nil }

// Close is a no-op operation.
func (NoopWriter) Close() error { return nil }
