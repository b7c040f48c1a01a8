package output

import (
	"strconv"
)

// Sink is an appendable output target with flow control.
//
// Write always accepts p. It returns ok == false when the sink is above its high-water
// mark; the caller should stop writing until the sink reports it has drained.
type Sink interface {
	Write(p []byte) (ok bool, err error)
	Close() error
}

// Syncer is implemented by sinks that can wait for queued bytes to reach storage.
type Syncer interface {
	Sync() error
}

// ColorCode represents ANSI color codes for terminal output.
type ColorCode int

const (
	// ColorReset removes any color or style formatting.
	ColorReset ColorCode = 0
	// ColorRed is the ANSI code for red text.
	ColorRed ColorCode = 31
	// ColorGreen is the ANSI code for green text.
	ColorGreen ColorCode = 32
	// ColorYellow is the ANSI code for yellow text.
	ColorYellow ColorCode = 33
	// ColorMagenta is the ANSI code for magenta text.
	ColorMagenta ColorCode = 35
	// ColorCyan is the ANSI code for cyan text.
	ColorCyan ColorCode = 36
	// ColorWhite is the ANSI code for white text.
	ColorWhite ColorCode = 37
)

// Style represents text style formatting codes for terminal output.
type Style int

const (
	// StyleBold enables bold text.
	StyleBold Style = 1
	// StyleDim enables dimmed text.
	StyleDim Style = 2
	// StyleNormal resets all formatting.
	StyleNormal Style = 22
)

// Start returns the ANSI escape sequence to start this color.
func (c ColorCode) Start() string {
	if c == ColorReset {
		return "\033[0m"
	}

	return "\033[" + strconv.Itoa(int(c)) + "m"
}

// WithStyle returns the escape sequence for the color combined with style.
func (c ColorCode) WithStyle(style Style) string {
	if c == ColorReset {
		return "\033[" + strconv.Itoa(int(style)) + "m"
	}

	return "\033[" + strconv.Itoa(int(style)) + ";" + strconv.Itoa(int(c)) + "m"
}

// End returns the ANSI escape sequence to reset to default color.
func (ColorCode) End() string {
	return "\033[0m"
}
