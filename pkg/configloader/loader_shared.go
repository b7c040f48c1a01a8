package configloader

import (
	"os"
	"strconv"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/constants"
)

type rawAppender struct {
	Level        string        `mapstructure:"level"         yaml:"level"`
	LogDir       string        `mapstructure:"log_dir"       yaml:"log_dir"`
	RollingFile  bool          `mapstructure:"rolling_file"  yaml:"rolling_file"`
	Name         string        `mapstructure:"name"          yaml:"name"`
	NameFormat   string        `mapstructure:"name_format"   yaml:"name_format"`
	Duration     time.Duration `mapstructure:"duration"      yaml:"duration"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout" yaml:"flush_timeout"`
	CacheSize    *int64        `mapstructure:"cache_size"    yaml:"cache_size"`
	Encoding     string        `mapstructure:"encoding"      yaml:"encoding"`
	FileMode     string        `mapstructure:"file_mode"     yaml:"file_mode"`
}

type rawConfig struct {
	Environment string        `mapstructure:"environment"  yaml:"environment"`
	RootDir     string        `mapstructure:"root_dir"     yaml:"root_dir"`
	AuditPath   string        `mapstructure:"audit_path"   yaml:"audit_path"`
	KeepDays    *int          `mapstructure:"keep_days"    yaml:"keep_days"`
	Encoding    string        `mapstructure:"encoding"     yaml:"encoding"`
	WorkerIndex *string       `mapstructure:"worker_index" yaml:"worker_index"`
	Formatter   string        `mapstructure:"formatter"    yaml:"formatter"`
	TimeFormat  string        `mapstructure:"time_format"  yaml:"time_format"`
	Rotation    time.Duration `mapstructure:"rotation"     yaml:"rotation"`
	Appenders   []rawAppender `mapstructure:"appenders"    yaml:"appenders"`
}

func applyRaw(raw rawConfig, opts ...Option) (*cutlog.Config, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.formatters == nil {
		o.formatters = cutlog.NewFormatterRegistry()
	}

	builder := cutlog.NewConfigBuilder()

	if raw.Environment != "" {
		builder.WithEnvironment(raw.Environment)
	}

	if raw.RootDir != "" {
		builder.WithRootDir(raw.RootDir)
	}

	if raw.AuditPath != "" {
		builder.WithAuditPath(raw.AuditPath)
	}

	if raw.KeepDays != nil {
		builder.WithKeepDays(*raw.KeepDays)
	}

	if raw.Encoding != "" {
		builder.WithEncoding(raw.Encoding)
	}

	if raw.WorkerIndex != nil {
		builder.WithWorkerIndex(*raw.WorkerIndex)
	}

	formatter, err := resolveFormatter(o.formatters, raw.Formatter, raw.TimeFormat)
	if err != nil {
		return nil, err
	}

	builder.WithFormatter(formatter)

	if len(raw.Appenders) > 0 {
		appenders := make([]cutlog.AppenderConfig, 0, len(raw.Appenders))

		for i, ra := range raw.Appenders {
			appender, err := ra.toAppender()
			if err != nil {
				return nil, ewrap.Wrapf(err, "appender %d", i)
			}

			if appender.Duration == 0 {
				appender.Duration = raw.Rotation
			}

			appenders = append(appenders, appender)
		}

		builder.WithAppenders(appenders...)
	} else if raw.Rotation > 0 {
		builder.WithRotation(raw.Rotation)
	}

	cfg := builder.Build()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveFormatter(reg *cutlog.FormatterRegistry, name, timeFormat string) (cutlog.Formatter, error) {
	if name == "" {
		name = "text"
	}

	if name == "text" && timeFormat != "" {
		return cutlog.TextFormatter{TimeFormat: timeFormat}, nil
	}

	formatter, ok := reg.Get(name)
	if !ok {
		return nil, ewrap.New("unknown formatter").WithMetadata("formatter", name)
	}

	return formatter, nil
}

func (ra rawAppender) toAppender() (cutlog.AppenderConfig, error) {
	level, err := cutlog.ParseLevel(ra.Level)
	if err != nil {
		return cutlog.AppenderConfig{}, err
	}

	appender := cutlog.AppenderConfig{
		Level:        level,
		LogDir:       ra.LogDir,
		RollingFile:  ra.RollingFile,
		Name:         ra.Name,
		NameFormat:   ra.NameFormat,
		Duration:     ra.Duration,
		FlushTimeout: ra.FlushTimeout,
		CacheSize:    constants.DefaultBufferCapacity,
		Encoding:     ra.Encoding,
	}

	if ra.CacheSize != nil {
		appender.CacheSize = *ra.CacheSize
	}

	if ra.FileMode != "" {
		mode, err := strconv.ParseUint(ra.FileMode, 8, 32)
		if err != nil {
			return cutlog.AppenderConfig{}, ewrap.Wrap(err, "invalid file mode").
				WithMetadata("file_mode", ra.FileMode)
		}

		appender.FileMode = os.FileMode(mode)
	}

	return appender, nil
}

func allKeys() []string {
	return []string{
		"environment",
		"root_dir",
		"audit_path",
		"keep_days",
		"encoding",
		"worker_index",
		"formatter",
		"time_format",
		"rotation",
	}
}
