package writer

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/audit"
	"github.com/hyp3rd/cutlog/internal/output"
	"github.com/hyp3rd/cutlog/internal/retention"
)

func TestParseNameFormat(t *testing.T) {
	format, err := ParseNameFormat("[application-]YYYYMMDD[.log]")
	require.NoError(t, err)

	assert.Equal(t, "application", format.Prefix())
	assert.Equal(t, "application.log", format.LiveName())
	assert.Equal(t, "application-20190109.log", format.Format(time.Date(2019, 1, 9, 23, 59, 0, 0, testZone)))

	withPID, err := ParseNameFormat("[app{pid}-]YYYY[.log]")
	require.NoError(t, err)
	assert.Equal(t, "app"+strconv.Itoa(os.Getpid()), withPID.Prefix())

	for _, bad := range []string{"YYYYMMDD.log", "[app]YYYY", "[-]YYYY", "[a-b-]YYYY"} {
		_, err := ParseNameFormat(bad)
		require.Error(t, err, bad)
	}
}

func TestNameFormatTokens(t *testing.T) {
	at := time.Date(2019, 3, 4, 5, 6, 7, 0, testZone)

	tests := []struct {
		layout string
		want   string
	}{
		{"[x-]YYYY-MM-DD HH:mm:ss", "x-2019-03-04 05:06:07"},
		{"[x-]YY.M.D-H.m.s", "x-19.3.4-5.6.7"},
		{"[x-]YYYYMMDD[.MM.log]", "x-20190304.MM.log"},
		{"[x-]YYYY[unterminated", "x-2019unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			format, err := ParseNameFormat(tt.layout)
			require.NoError(t, err)
			assert.Equal(t, tt.want, format.Format(at))
		})
	}
}

func TestFirstDelay(t *testing.T) {
	now := time.Date(2019, 1, 9, 13, 45, 30, 0, testZone)

	tests := []struct {
		name   string
		period time.Duration
		want   time.Duration
	}{
		{"one minute", time.Minute, time.Minute},
		{"minutes", 5 * time.Minute, 4*time.Minute + 30*time.Second},
		{"hours", 2 * time.Hour, time.Hour + 14*time.Minute + 30*time.Second},
		{"one day", 24 * time.Hour, 10*time.Hour + 14*time.Minute + 30*time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstDelay(now, tt.period))
		})
	}
}

type rollingEnv struct {
	dir     string
	clock   *fakeClock
	audit   *output.MemorySink
	cleaner *retention.Cleaner
	errs    *errorRecorder
}

func newRollingEnv(t *testing.T) *rollingEnv {
	t.Helper()

	clock := newClock(time.Date(2019, 1, 10, 0, 0, 1, 0, testZone))
	auditSink := output.NewMemorySink()

	return &rollingEnv{
		dir:   t.TempDir(),
		clock: clock,
		audit: auditSink,
		cleaner: retention.New(retention.Config{
			KeepDays: 7,
			Audit:    audit.New(auditSink),
			Now:      clock.Now,
		}),
		errs: &errorRecorder{},
	}
}

func (e *rollingEnv) open(t *testing.T, level cutlog.Level, selected bool, grace time.Duration) *Rolling {
	t.Helper()

	r, err := NewRolling(Options{
		Appender: cutlog.AppenderConfig{
			Level:       level,
			LogDir:      e.dir,
			RollingFile: true,
		},
		Selected:   selected,
		Worker:     "0",
		Cleaner:    e.cleaner,
		Audit:      audit.New(e.audit),
		OnError:    e.errs.record,
		Now:        e.clock.Now,
		GraceDelay: grace,
	})
	require.NoError(t, err)

	return r
}

func (e *rollingEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

func TestRollingRotation(t *testing.T) {
	env := newRollingEnv(t)
	require.NoError(t, os.WriteFile(env.path("application.log"), []byte("old\n"), 0o600))

	r := env.open(t, cutlog.InfoLevel, true, time.Hour)
	assert.Equal(t, env.path("application.log"), r.Path())
	assert.Equal(t, []string{env.dir}, env.cleaner.Dirs())

	require.NoError(t, r.Write("before\n"))
	r.Rotate()
	require.NoError(t, r.Write("after\n"))
	require.NoError(t, r.Close())

	assert.Equal(t, "old\nbefore\n", readFile(t, env.path("application-20190109.log")))
	assert.Equal(t, "after\n", readFile(t, env.path("application.log")))
	assert.Contains(t, string(env.audit.Bytes()), "[INFO] worker 0")
	assert.Contains(t, string(env.audit.Bytes()), "renaming "+env.path("application.log"))
	assert.Empty(t, env.errs.all())
}

func TestRollingRotationSkipsExistingDatedFile(t *testing.T) {
	env := newRollingEnv(t)
	require.NoError(t, os.WriteFile(env.path("application-20190109.log"), []byte("theirs\n"), 0o600))

	r := env.open(t, cutlog.InfoLevel, true, time.Hour)

	require.NoError(t, r.Write("mine\n"))
	r.Rotate()
	require.NoError(t, r.Close())

	assert.Equal(t, "theirs\n", readFile(t, env.path("application-20190109.log")))
	assert.Equal(t, "mine\n", readFile(t, env.path("application.log")))

	log := string(env.audit.Bytes())
	assert.Contains(t, log, "already exists, skipping rotation")
	assert.Contains(t, log, "[WARN]")
}

func TestRollingRepeatedTickIsIdempotent(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.InfoLevel, true, time.Hour)

	require.NoError(t, r.Write("first\n"))
	r.Rotate()
	require.NoError(t, r.Write("second\n"))
	r.Rotate()
	require.NoError(t, r.Close())

	assert.Equal(t, "first\n", readFile(t, env.path("application-20190109.log")))
	assert.Equal(t, "second\n", readFile(t, env.path("application.log")))
	assert.NotContains(t, string(env.audit.Bytes()), "[WARN]", "a dated file this writer created is not a duplicate owner")
}

func TestRollingOnlyRotationLevelRenames(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.ErrorLevel, true, time.Hour)

	require.NoError(t, r.Write("boom\n"))
	r.Rotate()
	require.NoError(t, r.Close())

	assert.NoFileExists(t, env.path("application-20190109.log"))
	assert.Equal(t, "boom\n", readFile(t, env.path("application.log")))
}

func TestRollingNonDesignatedReplaysAfterGrace(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.InfoLevel, false, 200*time.Millisecond)

	require.NoError(t, r.Write("one\n"))
	r.Rotate()
	require.NoError(t, r.Write("two\n"))
	require.NoError(t, r.Flush())

	assert.Equal(t, "one\n", readFile(t, env.path("application.log")), "held lines stay in memory during the grace delay")

	require.Eventually(t, func() bool {
		content, err := os.ReadFile(env.path("application.log"))

		return err == nil && string(content) == "one\ntwo\n"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, r.Close())
	assert.NoFileExists(t, env.path("application-20190109.log"), "a non-designated process never renames")
}

func TestRollingNonDesignatedCloseDuringGrace(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.InfoLevel, false, time.Hour)

	require.NoError(t, r.Write("one\n"))
	r.Rotate()
	require.NoError(t, r.Write("two\n"))
	require.NoError(t, r.Close())

	assert.Equal(t, "one\ntwo\n", readFile(t, env.path("application.log")))
}

func TestRollingRunsRetentionAfterTick(t *testing.T) {
	env := newRollingEnv(t)

	for _, name := range []string{"application-20190101.log", "application-20190105.log", "other-20180101.log"} {
		require.NoError(t, os.WriteFile(env.path(name), []byte("x"), 0o600))
	}

	r := env.open(t, cutlog.InfoLevel, true, time.Hour)
	r.Rotate()
	require.NoError(t, r.Close())

	assert.NoFileExists(t, env.path("application-20190101.log"))
	assert.FileExists(t, env.path("application-20190105.log"))
	assert.FileExists(t, env.path("other-20180101.log"))
	assert.FileExists(t, env.path("application.log"), "the live file is never deleted")
	assert.True(t, strings.Contains(string(env.audit.Bytes()), "delete log: "+env.path("application-20190101.log")))
}

func TestRollingRejectsFormatWithoutPrefix(t *testing.T) {
	_, err := NewRolling(Options{
		Appender: cutlog.AppenderConfig{
			Level:       cutlog.InfoLevel,
			LogDir:      t.TempDir(),
			RollingFile: true,
			NameFormat:  "YYYYMMDD.log",
		},
	})
	require.Error(t, err)
}

func TestRollingWriteAfterClose(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.InfoLevel, true, time.Hour)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	require.ErrorIs(t, r.Write("late\n"), output.ErrWriterClosed)
	require.NoError(t, r.Flush())
}

func TestRollingFollowsRenamedLiveFile(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.WarnLevel, true, time.Hour)

	require.NoError(t, r.Write("before\n"))
	require.NoError(t, r.Flush())

	// another writer sharing the directory rotated the live file
	require.NoError(t, os.Rename(env.path("application.log"), env.path("application-20190109.log")))

	require.NoError(t, r.Write("after\n"))
	require.NoError(t, r.Flush())
	require.NoError(t, r.Write("closing\n"))
	require.NoError(t, r.Close())

	assert.Equal(t, "before\n", readFile(t, env.path("application-20190109.log")))
	assert.Equal(t, "after\nclosing\n", readFile(t, env.path("application.log")))
	assert.Empty(t, env.errs.all())
}

func TestRollingRecreatesDeletedLiveFile(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.ErrorLevel, true, time.Hour)

	require.NoError(t, os.Remove(env.path("application.log")))

	require.NoError(t, r.Write("boom\n"))
	require.NoError(t, r.Close())

	assert.Equal(t, "boom\n", readFile(t, env.path("application.log")))
}

func TestRollingRotateAfterCloseIsNoop(t *testing.T) {
	env := newRollingEnv(t)
	r := env.open(t, cutlog.InfoLevel, true, time.Hour)

	require.NoError(t, r.Write("line\n"))
	require.NoError(t, r.Close())

	r.Rotate()

	assert.NoFileExists(t, env.path("application-20190109.log"))
	assert.Equal(t, "line\n", readFile(t, env.path("application.log")))
	assert.NotContains(t, string(env.audit.Bytes()), "renaming")
	assert.Empty(t, env.errs.all())
}

func TestRollingFlushLoop(t *testing.T) {
	sink := &fakeSink{}

	r, err := NewRolling(Options{
		Appender: cutlog.AppenderConfig{
			Level:        cutlog.InfoLevel,
			LogDir:       t.TempDir(),
			RollingFile:  true,
			FlushTimeout: 20 * time.Millisecond,
		},
		OpenSink: sink.open,
	})
	require.NoError(t, err)

	require.NoError(t, r.Write("a\n"))
	require.NoError(t, r.Write("b\n"))

	require.Eventually(t, func() bool {
		return strings.Join(sink.lines(), "") == "a\nb\n"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Close())
}
