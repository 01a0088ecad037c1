package auth

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LoggerOptions configures the zerolog backed Logger
type LoggerOptions struct {
	Level  string    `mapstructure:"level"`
	Format string    `mapstructure:"format"`
	Output io.Writer `mapstructure:"-"`
}

type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns the default structured Logger. Format "console"
// (or "pretty") renders human readable lines, anything else emits JSON.
func NewZerologLogger(name string, opts LoggerOptions) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := strings.ToLower(opts.Format)
	if format == "console" || format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if name != "" {
		zl = zl.With().Str("component", name).Logger()
	}

	return &zerologLogger{zl: zl}
}

// NewZerologAdapter wraps an existing zerolog.Logger
func NewZerologAdapter(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, args ...any) {
	l.emit(l.zl.Debug(), msg, args...)
}

func (l *zerologLogger) Info(msg string, args ...any) {
	l.emit(l.zl.Info(), msg, args...)
}

func (l *zerologLogger) Warn(msg string, args ...any) {
	l.emit(l.zl.Warn(), msg, args...)
}

func (l *zerologLogger) Error(msg string, args ...any) {
	l.emit(l.zl.Error(), msg, args...)
}

// emit writes msg with args read as key/value pairs
func (l *zerologLogger) emit(evt *zerolog.Event, msg string, args ...any) {
	if evt == nil {
		return
	}

	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		if i+1 >= len(args) {
			evt = evt.Interface(key, nil)
			break
		}
		switch v := args[i+1].(type) {
		case error:
			evt = evt.AnErr(key, v)
		case string:
			evt = evt.Str(key, v)
		default:
			evt = evt.Interface(key, v)
		}
	}

	evt.Msg(msg)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything, handy for tests
func NopLogger() Logger {
	return nopLogger{}
}

func defaultLogger(name string) Logger {
	return NewZerologLogger(name, LoggerOptions{Level: "info"})
}

func normalizeLogger(l Logger, name string) Logger {
	if l == nil {
		return defaultLogger(name)
	}
	return l
}
