package output

import (
	"bytes"
	"sync"
)

// MemorySink accumulates writes in memory. It stands in for the live file while
// another process is renaming it, so lines written meanwhile can be replayed later.
// Accumulated bytes stay readable after Close.
type MemorySink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// NewMemorySink returns an empty placeholder sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends p. It never reports backpressure.
func (m *MemorySink) Write(p []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrWriterClosed
	}

	m.buf.Write(p)

	return true, nil
}

// Bytes returns a copy of everything written so far.
func (m *MemorySink) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return bytes.Clone(m.buf.Bytes())
}

// Len returns the number of accumulated bytes.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.buf.Len()
}

// Close stops accepting writes.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return nil
}

var _ Sink = (*MemorySink)(nil)
