package cutlog

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog/internal/constants"
	"github.com/hyp3rd/cutlog/internal/utils"
)

const (
	// DefaultEnvironment writes lines to files.
	DefaultEnvironment = "production"
	// LogFilePermissions are the default file permissions for log files.
	LogFilePermissions = 0o666
)

// AppenderConfig configures one writer.
type AppenderConfig struct {
	// Level is the severity the writer receives.
	Level Level
	// LogDir is the directory holding the live and rotated files. Empty means
	// <RootDir>/application.
	LogDir string
	// RollingFile selects single-buffer mode with scheduled rotation.
	RollingFile bool
	// Name is the live file name of a double-buffer writer. Required when RollingFile is false.
	Name string
	// NameFormat is a bracketed literal prefix followed by a date template, for
	// example "[application-]YYYYMMDD[.log]". "{pid}" is replaced with the process id.
	NameFormat string
	// Duration is the rotation period. Values below one minute are raised to one minute.
	Duration time.Duration
	// FlushTimeout is the elapsed time that forces a flush.
	FlushTimeout time.Duration
	// CacheSize is the per-buffer byte count that forces a flush. Zero flushes every line.
	CacheSize int64
	// Encoding names the text encoding of the file. Empty inherits Config.Encoding.
	Encoding string
	// FileMode sets the permissions of newly created files.
	FileMode os.FileMode
	// HighWaterMark is the queued byte count at which the file sink reports backpressure.
	HighWaterMark int64
}

// Config holds configuration for a writer factory.
type Config struct {
	// Environment selects the profile. NonProduction ("development") writes to the console.
	Environment string
	// RootDir is the base directory for component directories.
	RootDir string
	// Appenders configures the writers of the application component.
	Appenders []AppenderConfig
	// KeepDays is the retention window for rotated files.
	KeepDays int
	// AuditPath is the append-only file recording rotations and deletions.
	AuditPath string
	// Encoding is the default text encoding.
	Encoding string
	// WorkerIndex is the zero-based index of this worker process. "0" or empty designates
	// this process as the owner of destructive file operations.
	WorkerIndex string
	// Formatter renders a record into the text of one line. Nil selects TextFormatter.
	Formatter Formatter
	// ErrorHandler observes sink, rotation, retention and formatter failures.
	ErrorHandler func(error)
}

// DefaultAppenders returns one rolling writer per level, matching the default
// application layout.
func DefaultAppenders() []AppenderConfig {
	levels := Levels()
	appenders := make([]AppenderConfig, 0, len(levels))

	for _, level := range levels {
		appenders = append(appenders, AppenderConfig{
			Level:       level,
			RollingFile: true,
			Name:        constants.DefaultFileName,
		})
	}

	return appenders
}

// DefaultConfig returns the default factory configuration.
func DefaultConfig() Config {
	root := utils.LogRoot(constants.DefaultLogRoot)

	return Config{
		Environment: DefaultEnvironment,
		RootDir:     root,
		Appenders:   DefaultAppenders(),
		KeepDays:    constants.DefaultKeepDays,
		AuditPath:   filepath.Join(root, constants.AuditDirName, constants.AuditFileName),
		Encoding:    "utf-8",
		WorkerIndex: WorkerIndexFromEnv(),
	}
}

// WithDefaults fills zero-valued fields of the appender from the factory config.
func (a AppenderConfig) WithDefaults(cfg *Config) AppenderConfig {
	if a.LogDir == "" {
		a.LogDir = filepath.Join(cfg.RootDir, constants.DefaultComponent)
	}

	if a.NameFormat == "" {
		a.NameFormat = constants.DefaultNameFormat
	}

	if a.Duration <= 0 {
		a.Duration = constants.DefaultRotationPeriod
	}

	if a.Duration < constants.MinRotationPeriod {
		a.Duration = constants.MinRotationPeriod
	}

	if a.FlushTimeout <= 0 {
		if a.RollingFile {
			a.FlushTimeout = constants.RollingFlushInterval
		} else {
			a.FlushTimeout = constants.DefaultFlushInterval
		}
	}

	if a.CacheSize < 0 {
		a.CacheSize = constants.DefaultBufferCapacity
	}

	if a.Encoding == "" {
		a.Encoding = cfg.Encoding
	}

	if a.FileMode == 0 {
		a.FileMode = LogFilePermissions
	}

	if a.HighWaterMark <= 0 {
		a.HighWaterMark = constants.DefaultHighWaterMark
	}

	return a
}

// Validate reports programmer errors that must fail construction.
func (a AppenderConfig) Validate() error {
	if !a.Level.IsValid() {
		return ewrap.New("invalid appender level").WithMetadata("level", a.Level)
	}

	if !a.RollingFile && strings.TrimSpace(a.Name) == "" {
		return ewrap.New("log file name is required for non-rolling appenders").
			WithMetadata("level", a.Level.Name())
	}

	return nil
}

// Validate checks the factory configuration and every appender.
func (c *Config) Validate() error {
	if c.KeepDays < 0 {
		return ewrap.New("keep days cannot be negative").WithMetadata("keep_days", c.KeepDays)
	}

	if c.Environment != constants.NonProductionEnvironment && strings.TrimSpace(c.RootDir) == "" {
		return ewrap.New("root directory is required")
	}

	for _, appender := range c.Appenders {
		err := appender.Validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// Selected reports whether this process owns renames in shared log directories.
func (c *Config) Selected() bool {
	return IsSelectedWorker(c.WorkerIndex)
}

// IsDevelopment reports whether lines should go to the console instead of files.
func (c *Config) IsDevelopment() bool {
	return c.Environment == constants.NonProductionEnvironment
}

// IsSelectedWorker reports whether a worker index designates the rotation owner.
func IsSelectedWorker(index string) bool {
	index = strings.TrimSpace(index)

	return index == "" || index == "0"
}

// WorkerIndexFromEnv reads the worker index from the environment.
func WorkerIndexFromEnv() string {
	if v, ok := os.LookupEnv(constants.WorkerIndexEnv); ok {
		return v
	}

	return os.Getenv(constants.LegacyWorkerIndexEnv)
}

// ParseLevel parses the given level name, case-insensitively.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, ewrap.New("invalid log level: " + level)
	}
}
