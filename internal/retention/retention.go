// Package retention deletes dated log files that fell out of the retention window.
//
// Directories are registered with Track as writers are created. Run scans every tracked
// directory for files named <prefix>-<YYYYMMDD>.log and removes the expired ones. The
// undated live file never matches and is never deleted.
package retention

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog/internal/audit"
	"github.com/hyp3rd/cutlog/internal/constants"
	"github.com/hyp3rd/cutlog/internal/metrics"
)

// yearBoundaryOffset is subtracted from today's YYYYMMDD when a file carries another
// year. The result is compared digit-wise, not as a calendar difference:
// 20190105 - 8876 = 20181229.
const yearBoundaryOffset = 8876

const stampLayout = "20060102"

// DefaultPrefixes are always matched.
var DefaultPrefixes = []string{constants.DefaultComponent, "info"}

// Config holds configuration for a Cleaner.
type Config struct {
	// KeepDays is the retention window. Zero selects the default.
	KeepDays int
	// Prefixes are matched in addition to DefaultPrefixes.
	Prefixes []string
	// Audit receives one line per intended deletion. May be nil.
	Audit *audit.Log
	// Metrics counts deletions and failures. May be nil.
	Metrics *metrics.Metrics
	// OnScan is called after each directory scan with the collected errors, or nil.
	OnScan func(dir string, err error)
	// Now overrides the clock.
	Now func() time.Time
}

// Cleaner is the registry of tracked directories. It never shrinks.
type Cleaner struct {
	mu       sync.Mutex
	dirs     []string
	prefixes []string
	pattern  *regexp.Regexp

	keepDays int
	audit    *audit.Log
	metrics  *metrics.Metrics
	onScan   func(string, error)
	now      func() time.Time
}

// New creates a Cleaner with no tracked directories.
func New(cfg Config) *Cleaner {
	if cfg.KeepDays <= 0 {
		cfg.KeepDays = constants.DefaultKeepDays
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Cleaner{
		keepDays: cfg.KeepDays,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		onScan:   cfg.OnScan,
		now:      cfg.Now,
	}

	for _, prefix := range append(slices.Clone(DefaultPrefixes), cfg.Prefixes...) {
		c.addPrefix(prefix)
	}

	c.compile()

	return c
}

// Track adds dir to the registry. Tracking the same directory twice has no effect.
func (c *Cleaner) Track(dir string) {
	dir = filepath.Clean(dir)

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.dirs, dir) {
		return
	}

	c.dirs = append(c.dirs, dir)
}

// AddPrefix makes files named <prefix>-<YYYYMMDD>.log eligible for deletion.
func (c *Cleaner) AddPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.addPrefix(prefix) {
		c.compile()
	}
}

// Dirs returns the tracked directories in registration order.
func (c *Cleaner) Dirs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.dirs)
}

// KeepDays returns the retention window.
func (c *Cleaner) KeepDays() int {
	return c.keepDays
}

// Match reports whether name is a dated file this cleaner manages, and its date stamp.
func (c *Cleaner) Match(name string) (string, bool) {
	c.mu.Lock()
	pattern := c.pattern
	c.mu.Unlock()

	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}

	return m[1], true
}

// Run scans every tracked directory. Errors of all directories are returned together.
func (c *Cleaner) Run(ctx context.Context) error {
	errs := ewrap.NewErrorGroup()

	for _, dir := range c.Dirs() {
		err := ctx.Err()
		if err != nil {
			errs.Add(ewrap.Wrap(err, "retention run interrupted"))

			break
		}

		err = c.Scan(ctx, dir)
		if err != nil {
			errs.Add(err)
		}
	}

	if errs.HasErrors() {
		return errs
	}

	return nil
}

// Scan deletes the expired files of one directory.
func (c *Cleaner) Scan(ctx context.Context, dir string) error {
	errs := ewrap.NewErrorGroup()

	c.scan(ctx, dir, errs)

	var err error
	if errs.HasErrors() {
		err = errs
	}

	if c.onScan != nil {
		c.onScan(dir, err)
	}

	return err
}

func (c *Cleaner) scan(ctx context.Context, dir string, errs *ewrap.ErrorGroup) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.metrics.CleanError(dir)
		errs.Add(ewrap.Wrap(err, "listing log directory").WithMetadata("dir", dir))

		return
	}

	now := c.now()

	for _, entry := range entries {
		if ctx.Err() != nil {
			errs.Add(ewrap.Wrap(ctx.Err(), "retention scan interrupted").WithMetadata("dir", dir))

			return
		}

		if entry.IsDir() {
			continue
		}

		stamp, ok := c.Match(entry.Name())
		if !ok || !Expired(stamp, now, c.keepDays) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		c.audit.Infof("delete log: %s", path)

		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.metrics.CleanError(dir)
			errs.Add(ewrap.Wrap(err, "deleting expired log").WithMetadata("path", path))

			continue
		}

		c.metrics.Deleted(dir)
	}
}

func (c *Cleaner) addPrefix(prefix string) bool {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || slices.Contains(c.prefixes, prefix) {
		return false
	}

	c.prefixes = append(c.prefixes, prefix)

	return true
}

func (c *Cleaner) compile() {
	quoted := make([]string, len(c.prefixes))
	for i, p := range c.prefixes {
		quoted[i] = regexp.QuoteMeta(p)
	}

	c.pattern = regexp.MustCompile(`^(?:` + strings.Join(quoted, "|") + `)-(\d{8})\.log$`)
}

// Expired applies the retention rule to an eight digit YYYYMMDD stamp.
//
// A stamp in the current year expires when it is lower than today - keepDays. A stamp of
// any other year expires when it is lower than today - 8876. Both comparisons are
// integer comparisons of the YYYYMMDD representation.
func Expired(stamp string, now time.Time, keepDays int) bool {
	if len(stamp) != len(stampLayout) {
		return false
	}

	date, err := strconv.Atoi(stamp)
	if err != nil {
		return false
	}

	today, _ := strconv.Atoi(now.Format(stampLayout))

	if stamp[:4] == now.Format("2006") {
		return date < today-keepDays
	}

	return date < today-yearBoundaryOffset
}
