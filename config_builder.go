package cutlog

import (
	"path/filepath"
	"time"

	"github.com/hyp3rd/cutlog/internal/constants"
)

// ConfigBuilder provides a fluent API for constructing factory configurations.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new builder starting from DefaultConfig.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: DefaultConfig()}
}

// WithEnvironment sets the environment profile.
// Example: builder.WithEnvironment("development").
func (b *ConfigBuilder) WithEnvironment(env string) *ConfigBuilder {
	b.config.Environment = env

	return b
}

// WithDevelopment routes every line to the console.
func (b *ConfigBuilder) WithDevelopment() *ConfigBuilder {
	return b.WithEnvironment(constants.NonProductionEnvironment)
}

// WithRootDir sets the base directory and moves the audit log below it.
// Example: builder.WithRootDir("/var/log/my_app").
func (b *ConfigBuilder) WithRootDir(dir string) *ConfigBuilder {
	b.config.RootDir = dir
	b.config.AuditPath = filepath.Join(dir, constants.AuditDirName, constants.AuditFileName)

	return b
}

// WithAuditPath sets the audit log path.
func (b *ConfigBuilder) WithAuditPath(path string) *ConfigBuilder {
	b.config.AuditPath = path

	return b
}

// WithKeepDays sets the retention window in days.
func (b *ConfigBuilder) WithKeepDays(days int) *ConfigBuilder {
	b.config.KeepDays = days

	return b
}

// WithEncoding sets the default text encoding.
func (b *ConfigBuilder) WithEncoding(name string) *ConfigBuilder {
	b.config.Encoding = name

	return b
}

// WithWorkerIndex sets the worker index, overriding the environment.
func (b *ConfigBuilder) WithWorkerIndex(index string) *ConfigBuilder {
	b.config.WorkerIndex = index

	return b
}

// WithFormatter sets the line formatter.
func (b *ConfigBuilder) WithFormatter(formatter Formatter) *ConfigBuilder {
	b.config.Formatter = formatter

	return b
}

// WithErrorHandler sets the error observer.
func (b *ConfigBuilder) WithErrorHandler(handler func(error)) *ConfigBuilder {
	b.config.ErrorHandler = handler

	return b
}

// WithAppenders replaces the appender list.
func (b *ConfigBuilder) WithAppenders(appenders ...AppenderConfig) *ConfigBuilder {
	b.config.Appenders = append([]AppenderConfig(nil), appenders...)

	return b
}

// WithAppender adds one appender.
func (b *ConfigBuilder) WithAppender(appender AppenderConfig) *ConfigBuilder {
	b.config.Appenders = append(b.config.Appenders, appender)

	return b
}

// WithRotation sets the rotation period of every rolling appender.
// Example: builder.WithRotation(time.Hour).
func (b *ConfigBuilder) WithRotation(period time.Duration) *ConfigBuilder {
	for i := range b.config.Appenders {
		if b.config.Appenders[i].RollingFile {
			b.config.Appenders[i].Duration = period
		}
	}

	return b
}

// WithCacheSize sets the flush size threshold of every appender.
func (b *ConfigBuilder) WithCacheSize(size int64) *ConfigBuilder {
	for i := range b.config.Appenders {
		b.config.Appenders[i].CacheSize = size
	}

	return b
}

// Build returns a copy of the configuration.
func (b *ConfigBuilder) Build() *Config {
	config := b.config
	config.Appenders = append([]AppenderConfig(nil), b.config.Appenders...)

	return &config
}
