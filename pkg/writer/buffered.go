package writer

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/chunk"
	"github.com/hyp3rd/cutlog/internal/encoding"
	"github.com/hyp3rd/cutlog/internal/output"
)

const noBuffer = -1

// Buffered is the double-buffer writer. Lines are appended to the active buffer; when it
// reaches the configured capacity, or the flush interval elapsed since the last flush,
// the buffer is detached, the other one becomes active and the detached chunks are handed
// to the sink in FIFO order.
//
// When the sink reports backpressure mid-flush, the unwritten suffix is kept aside and no
// further flush happens until the sink drains. The suffix is then spliced in front of the
// active buffer and flushed with it.
type Buffered struct {
	mu sync.Mutex

	opts Options
	enc  *encoding.Encoder
	sink output.Sink
	path string

	bufs      [2]chunk.List
	active    int
	pending   int
	leftover  chunk.Segment
	lastFlush time.Time

	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewBuffered opens <dir>/<name> and starts the idle flush loop.
func NewBuffered(opts Options) (*Buffered, error) {
	err := opts.normalize()
	if err != nil {
		return nil, err
	}

	enc, err := encoding.New(opts.Appender.Encoding)
	if err != nil {
		return nil, err
	}

	b := &Buffered{
		opts:    opts,
		enc:     enc,
		path:    filepath.Join(opts.dir(), opts.Appender.Name),
		pending: noBuffer,
		stop:    make(chan struct{}),
	}

	b.sink, err = opts.OpenSink(opts.sinkConfig(b.path, b.onDrain))
	if err != nil {
		return nil, err
	}

	b.lastFlush = opts.Now()

	b.wg.Add(1)

	go b.idleLoop()

	return b, nil
}

// Path returns the file the writer appends to.
func (b *Buffered) Path() string {
	return b.path
}

// Write encodes line and appends it to the active buffer.
func (b *Buffered) Write(line string) error {
	data, err := b.enc.Encode(line)
	if err != nil {
		b.opts.report(err)

		data = []byte(line)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return output.ErrWriterClosed
	}

	active := b.active
	b.bufs[active].Append(data)

	// the sibling is stalled: accept, but wait for the drain before flushing again
	if b.pending == 1-active {
		return nil
	}

	now := b.opts.Now()
	if b.bufs[active].Size() >= b.opts.Appender.CacheSize || now.Sub(b.lastFlush) >= b.opts.Appender.FlushTimeout {
		b.flushLocked(active)
		b.lastFlush = now
	}

	return nil
}

// Flush hands the active buffer to the sink unless a flush is stalled on backpressure.
func (b *Buffered) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.pending != noBuffer || b.bufs[b.active].Empty() {
		return nil
	}

	b.flushLocked(b.active)
	b.lastFlush = b.opts.Now()

	return nil
}

// Stalled reports whether a flush is waiting for the sink to drain.
func (b *Buffered) Stalled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pending != noBuffer
}

// Close writes the stalled suffix, the stale buffer and the active buffer, in that order,
// ignoring backpressure, then closes the sink.
func (b *Buffered) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return nil
	}

	b.closed = true

	stale := 1 - b.active
	b.drainAll(b.leftover)
	b.leftover = chunk.Segment{}
	b.pending = noBuffer
	b.drainAll(b.bufs[stale].Detach())
	b.drainAll(b.bufs[b.active].Detach())

	sink := b.sink
	b.mu.Unlock()

	close(b.stop)
	b.wg.Wait()

	return sink.Close()
}

func (b *Buffered) flushLocked(idx int) {
	seg := b.bufs[idx].Detach()
	b.active = 1 - idx

	if seg.Empty() {
		return
	}

	level, component := b.opts.Appender.Level.Name(), b.opts.Component
	b.opts.Metrics.Flush(level, component, int(seg.Size))

	stalled := false
	rest := seg.Each(func(p []byte) bool {
		ok, err := b.sink.Write(p)
		if err != nil {
			b.opts.report(err)

			return true
		}

		if !ok {
			stalled = true
		}

		return ok
	})

	if stalled {
		b.pending = idx
		b.leftover = rest
		b.opts.Metrics.Backpressure(level, component)
	}
}

func (b *Buffered) onDrain() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.pending == noBuffer {
		return
	}

	// the stalled suffix predates everything queued in the sibling since
	b.bufs[b.active].Prepend(b.leftover)
	b.leftover = chunk.Segment{}
	b.pending = noBuffer

	b.flushLocked(b.active)
	b.lastFlush = b.opts.Now()
}

func (b *Buffered) drainAll(seg chunk.Segment) {
	seg.Each(func(p []byte) bool {
		_, err := b.sink.Write(p)
		if err != nil {
			b.opts.report(err)
		}

		return true
	})
}

// idleLoop flushes lines that would otherwise wait for the next write to cross a threshold.
func (b *Buffered) idleLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.opts.Appender.FlushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.mu.Lock()
			if !b.closed && b.pending == noBuffer && !b.bufs[b.active].Empty() &&
				b.opts.Now().Sub(b.lastFlush) >= b.opts.Appender.FlushTimeout {
				b.flushLocked(b.active)
				b.lastFlush = b.opts.Now()
			}
			b.mu.Unlock()
		}
	}
}

var _ cutlog.Writer = (*Buffered)(nil)
