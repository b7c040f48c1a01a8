package writer

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyp3rd/cutlog/internal/output"
)

// fakeSink records writes and reports backpressure on the stallOn-th write.
type fakeSink struct {
	mu      sync.Mutex
	cfg     output.FileSinkConfig
	writes  [][]byte
	calls   int
	stallOn int
	closed  bool
}

func (s *fakeSink) open(cfg output.FileSinkConfig) (output.Sink, error) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	return s, nil
}

func (s *fakeSink) Write(p []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, output.ErrWriterClosed
	}

	s.calls++
	s.writes = append(s.writes, bytes.Clone(p))

	return s.calls != s.stallOn, nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return nil
}

func (s *fakeSink) drain() {
	s.mu.Lock()
	onDrain := s.cfg.OnDrain
	s.mu.Unlock()

	onDrain()
}

func (s *fakeSink) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.writes))
	for i, w := range s.writes {
		out[i] = string(w)
	}

	return out
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type errorRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errorRecorder) record(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *errorRecorder) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]error(nil), r.errs...)
}

var testZone = time.FixedZone("test", 8*60*60)

func readFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(content)
}
