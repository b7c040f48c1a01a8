// Package constants provides application-wide constant values
// used throughout the log writer. These constants define
// environment names, timing boundaries, default paths and environment
// variable keys to ensure consistency across the codebase.
package constants

import "time"

const (
	// NonProductionEnvironment is the environment name that routes lines to the console.
	NonProductionEnvironment = "development"
	// DefaultTimeout bounds waits on sink drains during shutdown.
	DefaultTimeout = 5 * time.Second
)

// Rotation boundaries.
const (
	OneMinute = time.Minute
	OneHour   = time.Hour
	OneDay    = 24 * time.Hour

	// MinRotationPeriod is the smallest accepted rotation period.
	MinRotationPeriod = OneMinute
	// DefaultRotationPeriod rotates once per day.
	DefaultRotationPeriod = OneDay
	// RollingFlushInterval is the fixed flush cadence of single-buffer writers.
	RollingFlushInterval = 2000 * time.Millisecond
	// RenameGraceDelay is how long a non-designated process holds lines in memory
	// while the designated process renames the live file.
	RenameGraceDelay = 4000 * time.Millisecond
)

// Buffering defaults.
const (
	// DefaultBufferCapacity is the per-buffer byte threshold that forces a flush.
	DefaultBufferCapacity = 10 * 1024
	// DefaultFlushInterval is the elapsed time that forces a flush.
	DefaultFlushInterval = 10 * time.Second
	// DefaultHighWaterMark is the queued byte count above which a file sink reports backpressure.
	DefaultHighWaterMark = 10 * 1024 * 1024
	// DefaultKeepDays is the retention window for dated files.
	DefaultKeepDays = 7
)
