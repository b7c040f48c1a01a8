// Package audit records every rename and deletion the engine performs on log files.
//
// Lines have the form:
//
//	2006-01-02 15:04:05 [LEVEL] message
//
// A nil *Log discards every record, so components can be built without an audit trail.
package audit

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/output"
)

const timeLayout = "2006-01-02 15:04:05"

// Log is an append-only audit file shared by the rotation scheduler and the retention cleaner.
type Log struct {
	mu   sync.Mutex
	sink output.Sink
	now  func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// Open creates the parent directory of path and opens the audit file for appending.
func Open(path string, onError func(error), opts ...Option) (*Log, error) {
	sink, err := output.NewFileSink(output.FileSinkConfig{
		Path:    path,
		OnError: onError,
	})
	if err != nil {
		return nil, err
	}

	return New(sink, opts...), nil
}

// New wraps an already opened sink.
func New(sink output.Sink, opts ...Option) *Log {
	l := &Log{
		sink: sink,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Record appends one line at the given level.
func (l *Log) Record(level cutlog.Level, msg string) {
	if l == nil {
		return
	}

	var sb strings.Builder

	sb.Grow(len(timeLayout) + len(msg) + 12)
	sb.WriteString(l.now().Format(timeLayout))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)
	sb.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	// audit lines are tiny; backpressure is ignored
	_, _ = l.sink.Write([]byte(sb.String()))
}

// Infof records an INFO line.
func (l *Log) Infof(format string, args ...any) {
	l.Record(cutlog.InfoLevel, fmt.Sprintf(format, args...))
}

// Warnf records a WARN line.
func (l *Log) Warnf(format string, args ...any) {
	l.Record(cutlog.WarnLevel, fmt.Sprintf(format, args...))
}

// Errorf records an ERROR line.
func (l *Log) Errorf(format string, args ...any) {
	l.Record(cutlog.ErrorLevel, fmt.Sprintf(format, args...))
}

// Sync waits for recorded lines to reach the file.
func (l *Log) Sync() error {
	if l == nil {
		return nil
	}

	if s, ok := l.sink.(output.Syncer); ok {
		return s.Sync()
	}

	return nil
}

// Close releases the audit file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}

	return l.sink.Close()
}
