// Package utils provides internal utility functions used throughout the log writer.
//
// This package contains helpers for path hygiene and directory creation. These
// utilities are for internal use and are not part of the public API.
package utils

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hyp3rd/ewrap"
)

// CleanDir normalizes a log directory path supplied by configuration.
//
// The function rejects:
// - empty paths
// - paths containing a directory traversal segment (..)
//
// Relative paths are resolved against the working directory.
func CleanDir(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ewrap.New("path cannot be empty")
	}

	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		return "", ewrap.New("invalid path contains directory traversal sequence").
			WithMetadata("path", path)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", ewrap.Wrap(err, "resolving absolute path").
			WithMetadata("path", path)
	}

	return abs, nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string, perm os.FileMode) error {
	err := os.MkdirAll(dir, perm)
	if err != nil {
		return ewrap.Wrapf(err, "creating log directory").
			WithMetadata("path", dir)
	}

	return nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// LogRoot returns $HOME/logs, or fallback when HOME is unset.
func LogRoot(fallback string) string {
	home := os.Getenv("HOME")
	if home == "" {
		return fallback
	}

	return filepath.Join(home, "logs")
}
