// Package logging adapts logrus to the stockrelay.Logger interface.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/velmie/stockrelay"
)

var _ stockrelay.Logger = (*Logger)(nil)

// Logger forwards key/value logging calls to a logrus entry.
type Logger struct {
	entry *logrus.Entry
}

// New builds a logrus-backed Logger. format is "text" or "json".
func New(level, format string, out io.Writer) (*Logger, error) {
	base := logrus.New()
	base.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	base.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	return Wrap(logrus.NewEntry(base)), nil
}

// Wrap returns a Logger writing through entry.
func Wrap(entry *logrus.Entry) *Logger {
	return &Logger{entry: entry}
}

// With returns a Logger carrying additional fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(args))}
}

// Entry exposes the underlying logrus entry.
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

func (l *Logger) Debug(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Debug(msg)
}

func (l *Logger) Info(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Info(msg)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Warn(msg)
}

func (l *Logger) Error(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Error(msg)
}

func fields(args []any) logrus.Fields {
	out := make(logrus.Fields, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		var val any = "<missing>"
		if i+1 < len(args) {
			val = args[i+1]
		}
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		out[key] = val
	}

	return out
}
