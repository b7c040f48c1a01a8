package output

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog/internal/constants"
	"github.com/hyp3rd/cutlog/internal/utils"
)

const (
	defaultFileMode os.FileMode = 0o666
	defaultDirMode  os.FileMode = 0o755
)

// FileSinkConfig holds configuration for a file sink.
//
// - Path is the log file path, opened in append mode
// - FileMode sets the permissions for a newly created file
// - DirMode sets the permissions for missing parent directories
// - HighWaterMark is the queued byte count at which Write starts reporting backpressure
// - OnError is called when open, write, sync or close fails
// - OnDrain is called once the queue empties after Write reported backpressure
// - OnClose is called after the file handle has been released.
type FileSinkConfig struct {
	Path          string
	FileMode      os.FileMode
	DirMode       os.FileMode
	HighWaterMark int64
	OnError       func(error)
	OnDrain       func()
	OnClose       func()
}

// FileSink appends payloads to a file from a background loop. Writes are queued in
// order and never block on disk I/O; a queue above the high-water mark is reported to
// the caller as backpressure, and a drain notification follows once it empties.
type FileSink struct {
	mu   sync.Mutex
	cond *sync.Cond

	file *os.File
	path string

	queue     [][]byte
	queued    int64
	hwm       int64
	needDrain bool
	writing   bool
	closed    bool
	done      chan struct{}

	onError func(error)
	onDrain func()
	onClose func()
}

// NewFileSink creates the parent directory if needed, opens the file in append mode and
// starts the write loop.
func NewFileSink(config FileSinkConfig) (*FileSink, error) {
	if config.Path == "" {
		return nil, ErrEmptyPath
	}

	if config.FileMode == 0 {
		config.FileMode = defaultFileMode
	}

	if config.DirMode == 0 {
		config.DirMode = defaultDirMode
	}

	if config.HighWaterMark <= 0 {
		config.HighWaterMark = constants.DefaultHighWaterMark
	}

	path := filepath.Clean(config.Path)

	err := utils.EnsureDir(filepath.Dir(path), config.DirMode)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: the path comes from operator configuration.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.FileMode)
	if err != nil {
		return nil, ewrap.Wrapf(err, "opening log file").
			WithMetadata("path", path)
	}

	sink := &FileSink{
		file:    file,
		path:    path,
		hwm:     config.HighWaterMark,
		done:    make(chan struct{}),
		onError: config.OnError,
		onDrain: config.OnDrain,
		onClose: config.OnClose,
	}
	sink.cond = sync.NewCond(&sink.mu)

	go sink.run()

	return sink, nil
}

// Path returns the file the sink appends to.
func (s *FileSink) Path() string {
	return s.path
}

// Write queues p for the write loop. The sink takes ownership of p.
func (s *FileSink) Write(p []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrWriterClosed
	}

	if len(p) == 0 {
		return s.queued < s.hwm, nil
	}

	s.queue = append(s.queue, p)
	s.queued += int64(len(p))

	ok := s.queued < s.hwm
	if !ok {
		s.needDrain = true
	}

	s.cond.Broadcast()

	return ok, nil
}

// Stat describes the open file, which may no longer be reachable through Path once the
// file was renamed.
func (s *FileSink) Stat() (os.FileInfo, error) {
	s.mu.Lock()
	file := s.file
	s.mu.Unlock()

	if file == nil {
		return nil, ErrWriterClosed
	}

	return file.Stat()
}

// Queued returns the number of bytes accepted but not yet written to the file.
func (s *FileSink) Queued() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queued
}

// Sync waits for the queue to empty and flushes the file to stable storage.
func (s *FileSink) Sync() error {
	return s.SyncTimeout(constants.DefaultTimeout)
}

// SyncTimeout is Sync with an explicit bound on the wait for the queue. On timeout the
// waiter is released before ErrFlushTimeout is returned.
func (s *FileSink) SyncTimeout(timeout time.Duration) error {
	idle := make(chan struct{})
	expired := false

	go func() {
		defer close(idle)

		s.mu.Lock()
		defer s.mu.Unlock()

		for (len(s.queue) > 0 || s.writing) && !expired {
			s.cond.Wait()
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-idle:
	case <-timer.C:
		s.mu.Lock()
		expired = true
		s.cond.Broadcast()
		s.mu.Unlock()

		<-idle

		return ErrFlushTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	err := s.file.Sync()
	if err != nil {
		return ewrap.Wrapf(err, "syncing log file").
			WithMetadata("path", s.path)
	}

	return nil
}

// Close stops accepting writes, waits for queued payloads to reach the file, then
// syncs and closes it. Closing an already closed sink returns nil.
func (s *FileSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	<-s.done

	s.mu.Lock()
	file := s.file
	s.file = nil
	s.mu.Unlock()

	err := file.Sync()
	if err != nil {
		s.report(ewrap.Wrapf(err, "final sync before close").
			WithMetadata("path", s.path))
	}

	err = file.Close()
	if err != nil {
		return ewrap.Wrapf(err, "closing log file").
			WithMetadata("path", s.path)
	}

	if s.onClose != nil {
		s.onClose()
	}

	return nil
}

// run is the write loop. It exits once the sink is closed and the queue is empty.
func (s *FileSink) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}

		if len(s.queue) == 0 {
			s.mu.Unlock()

			return
		}

		batch := s.queue
		s.queue = nil
		s.writing = true
		s.mu.Unlock()

		var written int64

		for _, p := range batch {
			s.writeFile(p)
			written += int64(len(p))
		}

		s.mu.Lock()
		s.queued -= written
		s.writing = false

		fireDrain := s.queued == 0 && s.needDrain && !s.closed
		if fireDrain {
			s.needDrain = false
		}

		s.cond.Broadcast()
		s.mu.Unlock()

		if fireDrain && s.onDrain != nil {
			s.onDrain()
		}
	}
}

func (s *FileSink) writeFile(p []byte) {
	_, err := s.file.Write(p)
	if err != nil {
		s.report(ewrap.Wrap(err, "failed writing to log file").
			WithMetadata("path", s.path))
	}
}

func (s *FileSink) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

var _ Sink = (*FileSink)(nil)
