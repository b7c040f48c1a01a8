package retention

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyp3rd/cutlog/internal/audit"
	"github.com/hyp3rd/cutlog/internal/output"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.Local)
}

func TestExpired(t *testing.T) {
	tests := []struct {
		name     string
		stamp    string
		now      time.Time
		keepDays int
		want     bool
	}{
		{"same year beyond window", "20190102", day(2019, time.January, 10), 7, true},
		{"same year inside window", "20190104", day(2019, time.January, 10), 7, false},
		{"same year on the edge", "20190103", day(2019, time.January, 10), 7, false},
		{"previous year after offset", "20181231", day(2019, time.January, 5), 7, false},
		{"previous year on offset", "20181229", day(2019, time.January, 5), 7, false},
		{"previous year before offset", "20181228", day(2019, time.January, 5), 7, true},
		{"previous year late in january", "20181231", day(2019, time.January, 8), 7, true},
		{"malformed stamp", "2019010", day(2019, time.January, 10), 7, false},
		{"non numeric stamp", "2019ab02", day(2019, time.January, 10), 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expired(tt.stamp, tt.now, tt.keepDays))
		})
	}
}

func TestMatch(t *testing.T) {
	c := New(Config{Prefixes: []string{"orders.v2"}})

	tests := []struct {
		name  string
		stamp string
		ok    bool
	}{
		{"application-20190101.log", "20190101", true},
		{"info-20190101.log", "20190101", true},
		{"orders.v2-20190101.log", "20190101", true},
		{"ordersXv2-20190101.log", "", false},
		{"application.log", "", false},
		{"info.log", "", false},
		{"application-2019010.log", "", false},
		{"application-20190101.log.gz", "", false},
		{"other-20190101.log", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamp, ok := c.Match(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.stamp, stamp)
		})
	}

	c.AddPrefix("other")

	_, ok := c.Match("other-20190101.log")
	assert.True(t, ok)
}

func TestTrackIsIdempotent(t *testing.T) {
	c := New(Config{})

	c.Track("/logs/a")
	c.Track("/logs/a/")
	c.Track("/logs/b")

	assert.Equal(t, []string{"/logs/a", "/logs/b"}, c.Dirs())
	assert.Equal(t, 7, c.KeepDays())
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
}

func TestRunDeletesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"application.log",
		"info.log",
		"application-20190102.log",
		"application-20190104.log",
		"info-20181228.log",
		"info-20181231.log",
		"notes-20180101.log",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "application-20180101.log"), 0o755))

	auditSink := output.NewMemorySink()

	var scanned []string

	c := New(Config{
		KeepDays: 7,
		Audit:    audit.New(auditSink),
		Now:      func() time.Time { return day(2019, time.January, 10) },
		OnScan: func(dir string, err error) {
			assert.NoError(t, err)

			scanned = append(scanned, dir)
		},
	})
	c.Track(dir)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{dir}, scanned)

	for _, kept := range []string{
		"application.log",
		"info.log",
		"application-20190104.log",
		"notes-20180101.log",
		"application-20180101.log",
	} {
		assert.FileExists(t, filepath.Join(dir, kept), kept)
	}

	// 20190110 - 8876 = 20181234, so both leftovers of 2018 go
	for _, gone := range []string{"application-20190102.log", "info-20181228.log", "info-20181231.log"} {
		assert.NoFileExists(t, filepath.Join(dir, gone), gone)
	}

	lines := strings.Split(strings.TrimSpace(string(auditSink.Bytes())), "\n")
	assert.Len(t, lines, 3)

	for _, line := range lines {
		assert.Contains(t, line, "[INFO] delete log: "+dir)
	}
}

func TestRunReportsMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	var scanErr error

	c := New(Config{OnScan: func(_ string, err error) { scanErr = err }})
	c.Track(missing)

	err := c.Run(context.Background())
	require.Error(t, err)
	require.Error(t, scanErr)
}

func TestRunHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "application-20000101.log")

	c := New(Config{})
	c.Track(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, c.Run(ctx))
	assert.FileExists(t, filepath.Join(dir, "application-20000101.log"))
}
