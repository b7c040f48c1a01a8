// Package cutlog defines a local log-writing engine for long-running server processes.
//
// The engine accepts formatted lines tagged with a severity level and a component name,
// buffers them in memory and persists them to files:
// - Double-buffered writers with size and time flush thresholds
// - Backpressure handling when the disk cannot keep up
// - Daily (or any period of at least one minute) rotation of the live file
// - Rotation coordinated across cooperating worker processes sharing a directory
// - Age based retention of rotated files
// - An audit log of every rotation and deletion
//
// The types in this package describe configuration and collaborator boundaries.
// Concrete writers are provided by the writer package:
//
//	factory, err := writer.NewFactory(cutlog.DefaultConfig())
//	if err != nil {
//		panic(err)
//	}
//	defer factory.Close()
//
//	factory.Write(cutlog.InfoLevel, "application", "service started")
//
// Always call Close before exit so buffered lines are flushed.
package cutlog

import (
	"strings"
)

// Level represents the severity of a log line.
type Level uint8

const (
	// TraceLevel represents verbose debugging information.
	TraceLevel Level = iota
	// DebugLevel represents debugging information.
	DebugLevel
	// InfoLevel represents general operational information.
	InfoLevel
	// WarnLevel represents warning messages.
	WarnLevel
	// ErrorLevel represents error messages.
	ErrorLevel
	// FatalLevel represents fatal error messages.
	FatalLevel
)

// RotationLevel is the level whose writer renames the live file on a rotation tick.
// Writers of other levels share the directory but never rename.
const RotationLevel = InfoLevel

// String returns the upper-case name of a log level.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Name returns the lower-case name used in configuration and registries.
func (l Level) Name() string {
	return strings.ToLower(l.String())
}

// IsValid returns true if the given Level is a valid log level, and false otherwise.
func (l Level) IsValid() bool {
	return l <= FatalLevel
}

// Levels lists every valid level from least to most severe.
func Levels() []Level {
	return []Level{TraceLevel, DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel}
}

// Writer is a buffered, file backed log writer for one (level, component) pair.
type Writer interface {
	// Write accepts one already formatted line, including its trailing newline.
	Write(line string) error
	// Flush pushes buffered lines to the sink without waiting for thresholds.
	Flush() error
	// Close flushes every buffer, cancels timers and releases the sink.
	Close() error
}
