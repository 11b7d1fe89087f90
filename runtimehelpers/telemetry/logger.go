package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
)

// Fields represents structured telemetry fields.
type Fields map[string]any

// Level models log verbosity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger captures structured telemetry for wizard components.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	Error(ctx context.Context, msg string, err error, fields Fields)
	WithComponent(component string) Logger
}

// NewLogger builds a logger scoped to a component name using the installed factory.
func NewLogger(component string) Logger {
	if factory := currentFactory(); factory != nil {
		if logger := factory.New(component); logger != nil {
			return logger
		}
	}
	return newStructuredLogger(component)
}

// StructuredLogger adapts helpers/logging to the telemetry interface.
type StructuredLogger struct {
	component string
	base      *logging.Logger
}

func newStructuredLogger(component string) *StructuredLogger {
	if component == "" {
		component = "wizard"
	}
	return &StructuredLogger{
		component: component,
		base:      logging.NewLogger(component),
	}
}

// WithComponent clones the logger with a new component.
func (l *StructuredLogger) WithComponent(component string) Logger {
	return newStructuredLogger(component)
}

func (l *StructuredLogger) Debug(_ context.Context, msg string, fields Fields) {
	l.base.DebugWithFields(msg, flatten(fields)...)
}

func (l *StructuredLogger) Info(_ context.Context, msg string, fields Fields) {
	l.base.InfoWithFields(msg, flatten(fields)...)
}

func (l *StructuredLogger) Warn(_ context.Context, msg string, fields Fields) {
	l.base.WarnWithFields(msg, flatten(fields)...)
}

// Error emits an error event with the error message attached.
func (l *StructuredLogger) Error(_ context.Context, msg string, err error, fields Fields) {
	l.base.ErrorWithFields(msg, flatten(withError(fields, err))...)
}

// HCLogger adapts an hclog.Logger to the telemetry interface.
type HCLogger struct {
	base hclog.Logger
}

// NewHCLogger wraps base. A nil base discards everything.
func NewHCLogger(base hclog.Logger) *HCLogger {
	if base == nil {
		base = hclog.NewNullLogger()
	}
	return &HCLogger{base: base}
}

func (l *HCLogger) Debug(_ context.Context, msg string, fields Fields) {
	l.base.Debug(msg, flatten(fields)...)
}

func (l *HCLogger) Info(_ context.Context, msg string, fields Fields) {
	l.base.Info(msg, flatten(fields)...)
}

func (l *HCLogger) Warn(_ context.Context, msg string, fields Fields) {
	l.base.Warn(msg, flatten(fields)...)
}

func (l *HCLogger) Error(_ context.Context, msg string, err error, fields Fields) {
	l.base.Error(msg, flatten(withError(fields, err))...)
}

// WithComponent returns a named child logger.
func (l *HCLogger) WithComponent(component string) Logger {
	return &HCLogger{base: l.base.Named(component)}
}

// NoopLogger drops all telemetry and is safe for tests.
type NoopLogger struct{}

func (NoopLogger) Debug(context.Context, string, Fields)        {}
func (NoopLogger) Info(context.Context, string, Fields)         {}
func (NoopLogger) Warn(context.Context, string, Fields)         {}
func (NoopLogger) Error(context.Context, string, error, Fields) {}
func (NoopLogger) WithComponent(string) Logger                  { return NoopLogger{} }

// TrackOperation logs the lifecycle of a named operation at debug level and
// reports failures at error level.
func TrackOperation(ctx context.Context, logger Logger, name string, fn func(context.Context) error) error {
	if logger == nil {
		logger = NoopLogger{}
	}
	start := time.Now()
	logger.Debug(ctx, fmt.Sprintf("%s.start", name), nil)

	err := fn(ctx)

	fields := Fields{"duration_ms": float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		logger.Error(ctx, fmt.Sprintf("%s.fail", name), err, fields)
		return err
	}

	logger.Debug(ctx, fmt.Sprintf("%s.success", name), fields)
	return nil
}

func withError(fields Fields, err error) Fields {
	merged := cloneFields(fields)
	if err != nil {
		merged["error"] = err.Error()
	}
	return merged
}

func flatten(fields Fields) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

func cloneFields(fields Fields) Fields {
	cp := make(Fields, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}

// MergeFields merges field maps into a single map without mutating inputs.
func MergeFields(base Fields, others ...Fields) Fields {
	merged := cloneFields(base)
	for _, set := range others {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}
