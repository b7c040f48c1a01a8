package writer

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/internal/audit"
	"github.com/hyp3rd/cutlog/internal/constants"
	"github.com/hyp3rd/cutlog/internal/metrics"
	"github.com/hyp3rd/cutlog/internal/output"
	"github.com/hyp3rd/cutlog/internal/retention"
)

var (
	// ErrFactoryClosed is returned when writing through a closed factory.
	ErrFactoryClosed = ewrap.New("writer factory is closed")
	// ErrUnknownLevel is returned for levels no appender was configured for.
	ErrUnknownLevel = ewrap.New("no appender configured for level")
)

type writerKey struct {
	level     cutlog.Level
	component string
}

// Option configures a Factory.
type Option func(*Factory)

// WithRegisterer registers the factory metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(f *Factory) {
		f.registerer = reg
	}
}

// WithClock overrides the clock of the factory and every writer it creates.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		f.now = now
	}
}

// WithGraceDelay overrides how long non-designated writers hold lines during a rotation.
func WithGraceDelay(d time.Duration) Option {
	return func(f *Factory) {
		f.graceDelay = d
	}
}

// WithConsole sets the destination of development output.
func WithConsole(out io.Writer) Option {
	return func(f *Factory) {
		f.consoleOut = out
	}
}

// WithAudit uses log instead of opening Config.AuditPath.
func WithAudit(log *audit.Log) Option {
	return func(f *Factory) {
		f.audit = log
	}
}

// WithSinkOpener overrides how writers open their files.
func WithSinkOpener(open SinkOpener) Option {
	return func(f *Factory) {
		f.openSink = open
	}
}

// Factory owns the writers of one process, keyed by level and component, together with
// the retention cleaner, the audit log and the metrics they share.
type Factory struct {
	mu sync.RWMutex

	cfg       cutlog.Config
	formatter cutlog.Formatter
	onError   func(error)
	pid       int

	cleaner *retention.Cleaner
	audit   *audit.Log
	metrics *metrics.Metrics
	console *output.ConsoleWriter

	levels  map[cutlog.Level]struct{}
	writers map[writerKey]cutlog.Writer
	closed  bool

	registerer prometheus.Registerer
	now        func() time.Time
	graceDelay time.Duration
	consoleOut io.Writer
	openSink   SinkOpener
}

// NewFactory validates cfg and creates one writer per configured appender for the
// application component.
func NewFactory(cfg cutlog.Config, opts ...Option) (*Factory, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	f := &Factory{
		cfg:       cfg,
		formatter: cfg.Formatter,
		onError:   cfg.ErrorHandler,
		pid:       os.Getpid(),
		levels:    make(map[cutlog.Level]struct{}),
		writers:   make(map[writerKey]cutlog.Writer),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.formatter == nil {
		f.formatter = cutlog.TextFormatter{}
	}

	if f.onError == nil {
		f.onError = output.NewErrorReporter(nil)
	}

	f.metrics = metrics.New(f.registerer)

	for _, appender := range cfg.Appenders {
		f.levels[appender.Level] = struct{}{}
	}

	if cfg.IsDevelopment() {
		f.console = output.NewConsoleWriter(f.consoleOut, output.ColorModeAuto)

		return f, nil
	}

	if f.audit == nil && cfg.AuditPath != "" {
		f.audit, err = audit.Open(cfg.AuditPath, f.onError, audit.WithClock(f.now))
		if err != nil {
			f.onError(ewrap.Wrap(err, "opening audit log, continuing without it"))
		}
	}

	f.cleaner = retention.New(retention.Config{
		KeepDays: cfg.KeepDays,
		Audit:    f.audit,
		Metrics:  f.metrics,
		Now:      f.now,
	})

	for _, appender := range cfg.Appenders {
		key := writerKey{level: appender.Level, component: constants.DefaultComponent}
		if _, dup := f.writers[key]; dup {
			_ = f.Close()

			return nil, ewrap.New("duplicate appender").WithMetadata("level", appender.Level.Name())
		}

		w, err := New(f.options(appender.WithDefaults(&f.cfg), constants.DefaultComponent))
		if err != nil {
			_ = f.Close()

			return nil, ewrap.Wrap(err, "creating writer").WithMetadata("level", appender.Level.Name())
		}

		f.writers[key] = w
	}

	return f, nil
}

// Write formats data and appends it to the writer of (level, component). An empty
// component selects the application component.
func (f *Factory) Write(level cutlog.Level, component, data string) error {
	if component == "" {
		component = constants.DefaultComponent
	}

	line := f.render(level, component, data)

	if f.console != nil {
		_, err := f.console.WriteLevel(level, []byte(line))

		return err
	}

	w, err := f.writer(level, component)
	if err != nil {
		f.metrics.WriteError(level.Name(), component)

		return err
	}

	return w.Write(line)
}

// Writer returns the writer of (level, component), creating component writers on first use.
// Development factories return a no-op writer.
func (f *Factory) Writer(level cutlog.Level, component string) (cutlog.Writer, error) {
	if f.console != nil {
		return cutlog.NewNoop(), nil
	}

	if component == "" {
		component = constants.DefaultComponent
	}

	return f.writer(level, component)
}

// Levels returns the configured levels.
func (f *Factory) Levels() []cutlog.Level {
	levels := make([]cutlog.Level, 0, len(f.levels))

	for _, level := range cutlog.Levels() {
		if _, ok := f.levels[level]; ok {
			levels = append(levels, level)
		}
	}

	return levels
}

// Cleaner returns the retention cleaner shared by the rolling writers.
func (f *Factory) Cleaner() *retention.Cleaner {
	return f.cleaner
}

// Gatherer returns the registry holding the factory metrics.
func (f *Factory) Gatherer() prometheus.Gatherer {
	return f.metrics.Gatherer()
}

// Flush flushes every writer.
func (f *Factory) Flush() error {
	errs := ewrap.NewErrorGroup()

	for _, w := range f.snapshot() {
		err := w.Flush()
		if err != nil {
			errs.Add(err)
		}
	}

	if errs.HasErrors() {
		return errs
	}

	return nil
}

// Close closes every writer, then the audit log. Closing twice returns nil.
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()

		return nil
	}

	f.closed = true
	writers := f.writers
	f.writers = make(map[writerKey]cutlog.Writer)
	f.mu.Unlock()

	errs := ewrap.NewErrorGroup()

	for key, w := range writers {
		err := w.Close()
		if err != nil {
			errs.Add(ewrap.Wrap(err, "closing writer").
				WithMetadata("level", key.level.Name()).
				WithMetadata("component", key.component))
		}
	}

	err := f.audit.Close()
	if err != nil {
		errs.Add(err)
	}

	if errs.HasErrors() {
		return errs
	}

	return nil
}

// render produces "[<tag>] <text>\n". A formatter failure falls back to the raw data.
func (f *Factory) render(level cutlog.Level, component, data string) string {
	tag := constants.DefaultComponent
	if component != constants.DefaultComponent {
		tag = "@" + component
	}

	text, err := f.formatter.Format(cutlog.Record{
		Data:      data,
		Level:     level,
		Component: component,
		Time:      f.now(),
		PID:       f.pid,
	})
	if err != nil {
		f.metrics.WriteError(level.Name(), component)
		f.onError(ewrap.Wrap(err, "formatting log line").WithMetadata("component", component))

		text = data
	}

	return "[" + tag + "] " + text + "\n"
}

func (f *Factory) writer(level cutlog.Level, component string) (cutlog.Writer, error) {
	key := writerKey{level: level, component: component}

	f.mu.RLock()
	w, ok := f.writers[key]
	closed := f.closed
	f.mu.RUnlock()

	switch {
	case closed:
		return nil, ErrFactoryClosed
	case ok:
		return w, nil
	}

	if _, known := f.levels[level]; !known {
		return nil, ewrap.Wrapf(ErrUnknownLevel, "level %s", level.Name())
	}

	if component == "" || component == "." || component == ".." || strings.ContainsAny(component, `/\`) {
		return nil, ewrap.New("invalid component name").WithMetadata("component", component)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFactoryClosed
	}

	if w, ok := f.writers[key]; ok {
		return w, nil
	}

	appender := cutlog.AppenderConfig{
		Level:        level,
		LogDir:       filepath.Join(f.cfg.RootDir, component),
		RollingFile:  true,
		Name:         constants.DefaultFileName,
		NameFormat:   constants.ComponentNameFormat,
		FlushTimeout: constants.DefaultFlushInterval,
	}

	w, err := New(f.options(appender.WithDefaults(&f.cfg), component))
	if err != nil {
		return nil, err
	}

	f.writers[key] = w

	return w, nil
}

func (f *Factory) options(appender cutlog.AppenderConfig, component string) Options {
	return Options{
		Appender:   appender,
		Component:  component,
		Selected:   f.cfg.Selected(),
		Worker:     f.cfg.WorkerIndex,
		Cleaner:    f.cleaner,
		Audit:      f.audit,
		Metrics:    f.metrics,
		OnError:    f.onError,
		Now:        f.now,
		GraceDelay: f.graceDelay,
		OpenSink:   f.openSink,
	}
}

func (f *Factory) snapshot() []cutlog.Writer {
	f.mu.RLock()
	defer f.mu.RUnlock()

	writers := make([]cutlog.Writer, 0, len(f.writers))
	for _, w := range f.writers {
		writers = append(writers, w)
	}

	return writers
}
