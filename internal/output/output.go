// Package output provides the destinations the log writer persists to.
//
// This package implements the sinks buffered writers flush into:
// - FileSink appends to a file from a background loop with high-water mark backpressure
// - MemorySink holds lines in memory while another process renames the live file
// - ConsoleWriter prints to a terminal with per-level colors
//
// Every sink implements the Sink interface:
//
//	type Sink interface {
//	    Write(p []byte) (ok bool, err error) // ok == false: stop until drained
//	    Close() error
//	}
//
// FileSink reports its lifecycle through observers:
// - OnError for open, write and close failures, which are never fatal
// - OnDrain once queued bytes reach the file after backpressure was signalled
// - OnClose after the handle has been released
package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/mattn/go-isatty"

	"github.com/hyp3rd/cutlog"
)

const (
	defaultBufferSize = 4096 // 4KB buffer size
	maxLookupBytes    = 48
)

// ColorMode determines how colors are handled.
type ColorMode int

const (
	// ColorModeAuto detects if the output supports colors.
	ColorModeAuto ColorMode = iota
	// ColorModeAlways forces color output.
	ColorModeAlways
	// ColorModeNever disables color output.
	ColorModeNever
)

type levelStyle struct {
	color ColorCode
	style Style
}

// ConsoleWriter writes lines to a terminal, coloring them by level when supported.
type ConsoleWriter struct {
	out        io.Writer
	mode       ColorMode
	isTerminal bool
	buffer     *bytes.Buffer
	mu         sync.Mutex
	style      map[cutlog.Level]levelStyle
}

// NewConsoleWriter creates a ConsoleWriter over out, defaulting to os.Stdout.
func NewConsoleWriter(out io.Writer, mode ColorMode) *ConsoleWriter {
	if out == nil {
		out = os.Stdout
	}

	return &ConsoleWriter{
		out:        out,
		mode:       mode,
		isTerminal: IsTerminal(out),
		buffer:     bytes.NewBuffer(make([]byte, 0, defaultBufferSize)),
		style: map[cutlog.Level]levelStyle{
			cutlog.TraceLevel: {ColorWhite, StyleDim},
			cutlog.DebugLevel: {ColorCyan, StyleNormal},
			cutlog.InfoLevel:  {ColorGreen, StyleNormal},
			cutlog.WarnLevel:  {ColorYellow, StyleBold},
			cutlog.ErrorLevel: {ColorRed, StyleBold},
			cutlog.FatalLevel: {ColorMagenta, StyleBold},
		},
	}
}

// Write implements io.Writer, guessing the level from the head of the payload.
func (w *ConsoleWriter) Write(payload []byte) (int, error) {
	return w.WriteLevel(w.detectLevel(payload), payload)
}

// WriteLevel writes payload styled for level.
func (w *ConsoleWriter) WriteLevel(level cutlog.Level, payload []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer.Reset()

	styled := false

	if w.shouldUseColors() {
		if st, ok := w.style[level]; ok {
			if st.style != StyleNormal {
				w.buffer.WriteString(st.color.WithStyle(st.style))
			} else {
				w.buffer.WriteString(st.color.Start())
			}

			styled = true
		}
	}

	w.buffer.Write(payload)

	if styled {
		w.buffer.WriteString(ColorReset.End())
	}

	_, err := w.out.Write(w.buffer.Bytes())
	if err != nil {
		return 0, ewrap.Wrap(err, "failed writing to console output")
	}

	return len(payload), nil
}

// shouldUseColors determines if color output should be used based on mode and terminal support.
//
//nolint:exhaustive // ColorModeAuto is handled as default.
func (w *ConsoleWriter) shouldUseColors() bool {
	switch w.mode {
	case ColorModeAlways:
		return true
	case ColorModeNever:
		return false
	default:
		return w.isTerminal
	}
}

// detectLevel looks for a level name near the start of the line.
func (*ConsoleWriter) detectLevel(p []byte) cutlog.Level {
	head := p
	if len(p) > maxLookupBytes {
		head = p[:maxLookupBytes]
	}

	for level := cutlog.FatalLevel; ; level-- {
		if bytes.Contains(head, []byte(level.String())) {
			return level
		}

		if level == cutlog.TraceLevel {
			return cutlog.InfoLevel
		}
	}
}

// NewErrorReporter returns an error observer printing to out (stderr when nil) in the
// error style. It is the default observer for sink and rotation failures.
func NewErrorReporter(out io.Writer) func(error) {
	if out == nil {
		out = os.Stderr
	}

	console := NewConsoleWriter(out, ColorModeAuto)

	return func(err error) {
		if err == nil {
			return
		}

		line := time.Now().Format("2006-01-02 15:04:05") + " [cutlog] " + err.Error() + "\n"

		_, werr := console.WriteLevel(cutlog.ErrorLevel, []byte(line))
		if werr != nil {
			fmt.Fprintf(os.Stderr, "failed to report error: %v (original: %v)\n", werr, err)
		}
	}
}

// IsTerminal checks if the given writer is a terminal. It returns true if the writer is
// connected to a terminal, and false otherwise.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		if f.Fd() == uintptr(syscall.Stdout) || f.Fd() == uintptr(syscall.Stderr) {
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}

	return false
}
