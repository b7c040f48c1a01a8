// Package log provides the application-level entry point of cutlog.
//
// It creates a writer factory with defaults picked from the environment name and the
// service name:
//
// - In non-production environments: every level goes to a colored console
// - In production environments: one rolling file per level below <log root>/<service>
//
// The log root is $HOME/logs, or /home/www/logs when HOME is unset.
//
// Usage:
//
//	factory, err := log.NewWithDefaults("production", "user-service")
//	if err != nil {
//		panic(err)
//	}
//	defer factory.Close()
//
//	_ = factory.Write(cutlog.InfoLevel, "", "service started")
package log

import (
	"path/filepath"
	"strings"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/constants"
	"github.com/hyp3rd/cutlog/internal/utils"
	"github.com/hyp3rd/cutlog/pkg/writer"
)

// DefaultConfig returns the configuration NewWithDefaults builds the factory from.
func DefaultConfig(environment, service string) *cutlog.Config {
	builder := cutlog.NewConfigBuilder()

	if environment == constants.NonProductionEnvironment {
		return builder.WithDevelopment().Build()
	}

	if environment != "" {
		builder.WithEnvironment(environment)
	}

	service = strings.TrimSpace(service)
	if service != "" {
		builder.WithRootDir(filepath.Join(utils.LogRoot(constants.DefaultLogRoot), service))
	}

	return builder.Build()
}

// NewWithDefaults creates a writer factory for the given environment and service.
// Options are passed through to writer.NewFactory.
func NewWithDefaults(environment, service string, opts ...writer.Option) (*writer.Factory, error) {
	factory, err := writer.NewFactory(*DefaultConfig(environment, service), opts...)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to create writer factory").
			WithMetadata("environment", environment).
			WithMetadata("service", service)
	}

	return factory, nil
}
