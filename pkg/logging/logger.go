package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger is an interface for logging
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

type contextKey string

const (
	invocationIDKey contextKey = "invocation_id"
	sessionIDKey    contextKey = "session_id"
)

// WithInvocationID adds an invocation ID to the context so every log line of
// the turn carries it
func WithInvocationID(ctx context.Context, invocationID string) context.Context {
	return context.WithValue(ctx, invocationIDKey, invocationID)
}

// WithSessionID adds a session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// ZeroLogger implements Logger using zerolog
type ZeroLogger struct {
	logger  zerolog.Logger
	out     io.Writer
	console bool
	level   zerolog.Level
}

// Option configures a ZeroLogger
type Option func(*ZeroLogger)

// WithLevel sets the minimum level that is written
func WithLevel(level string) Option {
	return func(l *ZeroLogger) {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil || lvl == zerolog.NoLevel {
			lvl = zerolog.InfoLevel
		}
		l.level = lvl
	}
}

// WithOutput sets the writer log lines go to
func WithOutput(w io.Writer) Option {
	return func(l *ZeroLogger) {
		l.out = w
	}
}

// WithConsole switches between human readable and JSON output
func WithConsole(enabled bool) Option {
	return func(l *ZeroLogger) {
		l.console = enabled
	}
}

// New creates a new ZeroLogger
func New(options ...Option) *ZeroLogger {
	l := &ZeroLogger{
		out:     os.Stdout,
		console: true,
		level:   zerolog.InfoLevel,
	}
	for _, option := range options {
		option(l)
	}

	out := l.out
	if l.console {
		out = zerolog.ConsoleWriter{Out: l.out, TimeFormat: time.RFC3339}
	}
	l.logger = zerolog.New(out).Level(l.level).With().Timestamp().Logger()
	return l
}

// NewNop returns a logger that discards everything
func NewNop() *ZeroLogger {
	return &ZeroLogger{logger: zerolog.Nop()}
}

// Info logs an info message
func (l *ZeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Info(), msg, fields)
}

// Warn logs a warning message
func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Warn(), msg, fields)
}

// Error logs an error message
func (l *ZeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Error(), msg, fields)
}

// Debug logs a debug message
func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Debug(), msg, fields)
}

func (l *ZeroLogger) write(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	// Disabled levels return a nil event
	if event == nil {
		return
	}

	if ctx != nil {
		if invocationID, ok := ctx.Value(invocationIDKey).(string); ok {
			event = event.Str("invocation_id", invocationID)
		}
		if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
			event = event.Str("session_id", sessionID)
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			event = event.Str("trace_id", sc.TraceID().String())
		}
	}

	for k, v := range fields {
		if err, ok := v.(error); ok {
			event = event.AnErr(k, err)
			continue
		}
		event = event.Interface(k, v)
	}

	event.Msg(msg)
}
