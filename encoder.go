package cutlog

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap"
)

// DefaultTimeFormat is the timestamp layout of TextFormatter.
const DefaultTimeFormat = "2006-01-02 15:04:05.000"

// Record is the input of a Formatter.
type Record struct {
	// Data is the caller supplied message.
	Data string
	// Level is the severity of the line.
	Level Level
	// Component is the component name the line is routed to.
	Component string
	// Time is when the line was accepted.
	Time time.Time
	// PID is the id of the writing process.
	PID int
}

// Formatter renders a record into the text of one line, without the trailing newline.
type Formatter interface {
	Format(rec Record) (string, error)
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(rec Record) (string, error)

// Format calls f(rec).
func (f FormatterFunc) Format(rec Record) (string, error) {
	return f(rec)
}

// TextFormatter renders "<time> <LEVEL> [<pid>] <data>".
type TextFormatter struct {
	TimeFormat string
}

// Format implements Formatter.
func (f TextFormatter) Format(rec Record) (string, error) {
	layout := f.TimeFormat
	if layout == "" {
		layout = DefaultTimeFormat
	}

	var sb strings.Builder

	sb.Grow(len(layout) + len(rec.Data) + 24)
	sb.WriteString(rec.Time.Format(layout))
	sb.WriteByte(' ')
	sb.WriteString(rec.Level.String())
	sb.WriteString(" [")
	sb.WriteString(strconv.Itoa(rec.PID))
	sb.WriteString("] ")
	sb.WriteString(rec.Data)

	return sb.String(), nil
}

// RawFormatter returns the record data unchanged.
type RawFormatter struct{}

// Format implements Formatter.
func (RawFormatter) Format(rec Record) (string, error) {
	return rec.Data, nil
}

// FormatterRegistry manages named formatters that can be referenced from configuration.
type FormatterRegistry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewFormatterRegistry creates a registry holding the "text" and "raw" formatters.
func NewFormatterRegistry() *FormatterRegistry {
	return &FormatterRegistry{
		formatters: map[string]Formatter{
			"text": TextFormatter{},
			"raw":  RawFormatter{},
		},
	}
}

// Register adds a formatter to the registry under the provided name.
func (r *FormatterRegistry) Register(name string, formatter Formatter) error {
	if name == "" {
		return ewrap.New("formatter name cannot be empty")
	}

	if formatter == nil {
		return ewrap.New("formatter cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; exists {
		return ewrap.New("formatter already registered").WithMetadata("name", name)
	}

	r.formatters[name] = formatter

	return nil
}

// Get retrieves a formatter by name.
func (r *FormatterRegistry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]

	return f, ok
}

// MustRegister registers a formatter and panics if registration fails.
func (r *FormatterRegistry) MustRegister(name string, formatter Formatter) {
	err := r.Register(name, formatter)
	if err != nil {
		panic(err)
	}
}
