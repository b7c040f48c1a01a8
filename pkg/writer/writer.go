// Package writer implements the buffered, rotating file writers of cutlog and the
// factory that owns them.
//
// Two writer flavours exist:
// - Buffered: two chunk lists flushed on a size or time threshold, with backpressure
// - Rolling: one list flushed on a fixed timer, with scheduled rotation of the live file
//
// Rotation of a rolling writer closes the live file <dir>/<prefix>.log, renames it to
// <prefix>-<YYYYMMDD>.log when this process is the designated one, reopens a fresh live
// file and runs the retention cleaner. Non-designated processes hold their lines in memory
// while the rename happens and replay them into the new live file afterwards.
package writer

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/audit"
	"github.com/hyp3rd/cutlog/internal/constants"
	"github.com/hyp3rd/cutlog/internal/encoding"
	"github.com/hyp3rd/cutlog/internal/metrics"
	"github.com/hyp3rd/cutlog/internal/output"
	"github.com/hyp3rd/cutlog/internal/retention"
)

const dirMode os.FileMode = 0o755

// SinkOpener opens the sink a writer flushes into.
type SinkOpener func(cfg output.FileSinkConfig) (output.Sink, error)

// Options configures a single writer.
type Options struct {
	// Appender is the resolved appender configuration.
	Appender cutlog.AppenderConfig
	// Component is the component the writer serves.
	Component string
	// Selected designates this process as the owner of renames.
	Selected bool
	// Worker is the worker index written to audit lines.
	Worker string

	Cleaner *retention.Cleaner
	Audit   *audit.Log
	Metrics *metrics.Metrics

	// OnError observes sink, rotation and retention failures.
	OnError func(error)
	// OnClose is called after a sink released its file.
	OnClose func()

	// Now overrides the clock.
	Now func() time.Time
	// GraceDelay overrides how long a non-designated process waits for the rename.
	GraceDelay time.Duration
	// OpenSink overrides the file sink constructor.
	OpenSink SinkOpener
}

// New builds the writer flavour the appender asks for.
func New(opts Options) (cutlog.Writer, error) {
	if opts.Appender.RollingFile {
		w, err := NewRolling(opts)
		if err != nil {
			return nil, err
		}

		return w, nil
	}

	w, err := NewBuffered(opts)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (o *Options) normalize() error {
	if strings.TrimSpace(o.Appender.LogDir) == "" {
		return ewrap.New("log directory is required").
			WithMetadata("level", o.Appender.Level.Name())
	}

	err := o.Appender.Validate()
	if err != nil {
		return err
	}

	o.Appender = o.Appender.WithDefaults(&cutlog.Config{Encoding: encoding.UTF8})

	if o.Component == "" {
		o.Component = constants.DefaultComponent
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	if o.GraceDelay <= 0 {
		o.GraceDelay = constants.RenameGraceDelay
	}

	if o.OpenSink == nil {
		o.OpenSink = openFileSink
	}

	return nil
}

func (o *Options) sinkConfig(path string, onDrain func()) output.FileSinkConfig {
	return output.FileSinkConfig{
		Path:          path,
		FileMode:      o.Appender.FileMode,
		DirMode:       dirMode,
		HighWaterMark: o.Appender.HighWaterMark,
		OnError:       o.report,
		OnDrain:       onDrain,
		OnClose:       o.OnClose,
	}
}

func (o *Options) report(err error) {
	if err == nil {
		return
	}

	o.Metrics.WriteError(o.Appender.Level.Name(), o.Component)

	if o.OnError != nil {
		o.OnError(err)
	}
}

func (o *Options) dir() string {
	return filepath.Clean(o.Appender.LogDir)
}

func openFileSink(cfg output.FileSinkConfig) (output.Sink, error) {
	return output.NewFileSink(cfg)
}
