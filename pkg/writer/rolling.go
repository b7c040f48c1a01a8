package writer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/chunk"
	"github.com/hyp3rd/cutlog/internal/encoding"
	"github.com/hyp3rd/cutlog/internal/metrics"
	"github.com/hyp3rd/cutlog/internal/output"
	"github.com/hyp3rd/cutlog/internal/utils"
)

type cutFlag int

type fileStatter interface {
	Stat() (os.FileInfo, error)
}

const (
	// cutStart opens (or reuses) the live file at construction.
	cutStart cutFlag = iota
	// cutScheduled is a rotation tick.
	cutScheduled
	// cutFlush reopens the live file after the grace delay and replays held lines.
	cutFlush
)

// Rolling is the single-buffer writer. Lines are appended to one list that a fixed timer
// joins into one payload for the sink. A rotation scheduler cuts the live file on period
// boundaries.
type Rolling struct {
	mu sync.Mutex

	opts     Options
	enc      *encoding.Encoder
	format   NameFormat
	dir      string
	livePath string

	buf     chunk.List
	sink    output.Sink
	created map[string]struct{}

	rotateTimer *time.Timer
	graceTimer  *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewRolling opens the live file, registers the directory with the retention cleaner and
// schedules the first boundary-aligned rotation.
func NewRolling(opts Options) (*Rolling, error) {
	err := opts.normalize()
	if err != nil {
		return nil, err
	}

	format, err := ParseNameFormat(opts.Appender.NameFormat)
	if err != nil {
		return nil, err
	}

	enc, err := encoding.New(opts.Appender.Encoding)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Rolling{
		opts:    opts,
		enc:     enc,
		format:  format,
		dir:     opts.dir(),
		created: make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		stop:    make(chan struct{}),
	}
	r.livePath = filepath.Join(r.dir, format.LiveName())

	if opts.Cleaner != nil {
		opts.Cleaner.AddPrefix(format.Prefix())
		opts.Cleaner.Track(r.dir)
	}

	r.cut(cutStart)

	r.mu.Lock()
	r.rotateTimer = time.AfterFunc(firstDelay(opts.Now(), opts.Appender.Duration), r.tick)
	r.mu.Unlock()

	r.wg.Add(1)

	go r.flushLoop()

	return r, nil
}

// Path returns the live file path.
func (r *Rolling) Path() string {
	return r.livePath
}

// Write encodes line and appends it to the buffer.
func (r *Rolling) Write(line string) error {
	data, err := r.enc.Encode(line)
	if err != nil {
		r.opts.report(err)

		data = []byte(line)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return output.ErrWriterClosed
	}

	r.buf.Append(data)

	return nil
}

// Flush joins the buffered lines into one payload and hands it to the current sink.
func (r *Rolling) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.flushLocked()

	return nil
}

// Rotate runs one scheduled cut immediately, followed by a retention pass. Rotating a
// closed writer does nothing.
func (r *Rolling) Rotate() {
	if !r.cut(cutScheduled) {
		return
	}

	r.clean()
}

// Close cancels every timer, flushes the buffer and closes the sink. Lines held in memory
// for a pending replay are written to the live file first.
func (r *Rolling) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return nil
	}

	r.closed = true

	if r.rotateTimer != nil {
		r.rotateTimer.Stop()
	}

	if r.graceTimer != nil {
		r.graceTimer.Stop()
	}

	r.flushLocked()

	if mem, ok := r.sink.(*output.MemorySink); ok && mem.Len() > 0 {
		r.reopenLocked(mem.Bytes())
	}

	sink := r.sink
	r.mu.Unlock()

	r.cancel()
	close(r.stop)
	r.wg.Wait()

	return sink.Close()
}

func (r *Rolling) flushLocked() {
	if r.buf.Empty() {
		return
	}

	r.followLiveLocked()

	seg := r.buf.Detach()
	r.opts.Metrics.Flush(r.opts.Appender.Level.Name(), r.opts.Component, int(seg.Size))

	// no backpressure handling: per-tick volume is small
	_, err := r.sink.Write(seg.Bytes())
	if err != nil {
		r.opts.report(err)
	}
}

func (r *Rolling) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.opts.Appender.FlushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			_ = r.Flush()
		}
	}
}

// tick is the rotation timer callback. The next tick is scheduled only after this one
// finished, one period later.
func (r *Rolling) tick() {
	r.Rotate()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		r.rotateTimer = time.AfterFunc(r.opts.Appender.Duration, r.tick)
	}
}

func (r *Rolling) clean() {
	if r.opts.Cleaner == nil {
		return
	}

	err := r.opts.Cleaner.Run(r.ctx)
	if err != nil && r.ctx.Err() == nil {
		r.opts.report(ewrap.Wrap(err, "retention run failed"))
	}
}

// cut closes the current sink and opens the next one. It reports false when the writer
// is closed.
func (r *Rolling) cut(flag cutFlag) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	var held []byte

	if r.sink != nil {
		r.flushLocked()

		if mem, ok := r.sink.(*output.MemorySink); ok {
			held = mem.Bytes()
		}

		r.opts.report(r.sink.Close())
		r.sink = nil
	}

	if flag == cutScheduled && !r.opts.Selected {
		mem := output.NewMemorySink()
		_, _ = mem.Write(held)
		r.sink = mem
		r.opts.Metrics.Rotation(r.dir, metrics.RotationPlaceholder)
		r.graceTimer = time.AfterFunc(r.opts.GraceDelay, func() { r.cut(cutFlush) })

		return true
	}

	if flag == cutScheduled && r.opts.Appender.Level == cutlog.RotationLevel {
		r.renameLocked()
	}

	r.reopenLocked(held)

	return true
}

// followLiveLocked reopens the live path when the open file is no longer the one it
// names. Writers of other levels share the live file and may have reopened it before
// the rotation level writer renamed it.
func (r *Rolling) followLiveLocked() {
	st, ok := r.sink.(fileStatter)
	if !ok {
		return
	}

	open, err := st.Stat()
	if err != nil {
		return
	}

	live, err := os.Stat(r.livePath)

	switch {
	case err == nil && os.SameFile(open, live):
		return
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		r.opts.report(ewrap.Wrap(err, "checking live log file").WithMetadata("path", r.livePath))

		return
	}

	r.reopenLocked(nil)
}

// renameLocked moves the live file to its dated name unless that name is taken.
func (r *Rolling) renameLocked() {
	level := r.opts.Appender.Level.Name()
	dated := r.format.Format(r.opts.Now().AddDate(0, 0, -1))
	datedPath := filepath.Join(r.dir, dated)
	worker := r.opts.Worker
	pid := os.Getpid()

	if !utils.Exists(r.livePath) {
		r.opts.Audit.Infof("worker %s [%d %s] found no live file %s, skipping rotation", worker, pid, level, r.livePath)
		r.opts.Metrics.Rotation(r.dir, metrics.RotationSkipped)

		return
	}

	if utils.Exists(datedPath) {
		r.opts.Audit.Infof("worker %s [%d %s] found %s already exists, skipping rotation", worker, pid, level, datedPath)
		r.opts.Metrics.Rotation(r.dir, metrics.RotationSkipped)

		if _, mine := r.created[dated]; !mine {
			r.opts.Audit.Warnf("worker %s [%d %s] did not create %s: another process may be rotating %s",
				worker, pid, level, datedPath, r.dir)
			r.opts.Metrics.DuplicateOwner(r.dir)
		}

		return
	}

	r.opts.Audit.Infof("worker %s [%d %s] renaming %s to %s", worker, pid, level, r.livePath, datedPath)

	err := os.Rename(r.livePath, datedPath)
	if err != nil {
		r.opts.Audit.Errorf("rename of %s failed: %v", r.livePath, err)
		r.opts.Metrics.Rotation(r.dir, metrics.RotationFailed)
		r.opts.report(ewrap.Wrap(err, "rotating log file").
			WithMetadata("from", r.livePath).
			WithMetadata("to", datedPath))

		return
	}

	r.created[dated] = struct{}{}
	r.opts.Metrics.Rotation(r.dir, metrics.RotationRenamed)
}

// reopenLocked opens the live file and writes held bytes into it. When the file cannot
// be opened the bytes stay in a memory sink until the next cut.
func (r *Rolling) reopenLocked(held []byte) {
	if r.sink != nil {
		r.opts.report(r.sink.Close())
	}

	err := utils.EnsureDir(r.dir, dirMode)
	if err != nil {
		r.opts.report(err)
	}

	sink, err := r.opts.OpenSink(r.opts.sinkConfig(r.livePath, nil))
	if err != nil {
		r.opts.report(err)

		mem := output.NewMemorySink()
		_, _ = mem.Write(held)
		r.sink = mem

		return
	}

	r.sink = sink

	if len(held) > 0 {
		_, err = sink.Write(held)
		r.opts.report(err)
	}
}

var _ cutlog.Writer = (*Rolling)(nil)
