// Package log provides the logger contract used across the monitor.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type (
	// Logger is a contract for the logger.
	Logger interface {
		Debugf(format string, args ...interface{})
		Infof(format string, args ...interface{})
		Info(args ...interface{})
		Warnf(format string, args ...interface{})
		Errorf(format string, args ...interface{})
		Error(args ...interface{})
		Fatalf(format string, args ...interface{})
		Fatal(args ...interface{})
		With(args ...interface{}) Logger
		Flush() error
	}

	logrusLogger struct {
		entry *logrus.Entry
	}
)

// New initializes and returns a new instance of a logger. An unknown level falls back to info.
func New(appID, logLevel string) Logger {
	return NewWithOutput(appID, logLevel, os.Stdout)
}

// NewWithOutput is New writing to the given output.
func NewWithOutput(appID, logLevel string, out io.Writer) Logger {
	l := &logrus.Logger{
		Out:       out,
		Formatter: &logrus.TextFormatter{FullTimestamp: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
		ExitFunc:  os.Exit,
	}

	if logLevel != "" {
		lvl, err := logrus.ParseLevel(logLevel)
		if err != nil {
			l.Errorf("invalid log level [%s]", logLevel)
		} else {
			l.SetLevel(lvl)
		}
	}

	return &logrusLogger{entry: logrus.NewEntry(l).WithField("svc", appID)}
}

// Debugf .
func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Infof .
func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Info .
func (l *logrusLogger) Info(args ...interface{}) {
	l.entry.Info(args...)
}

// Warnf .
func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Errorf .
func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Error .
func (l *logrusLogger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

// Fatalf .
func (l *logrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// Fatal .
func (l *logrusLogger) Fatal(args ...interface{}) {
	l.entry.Fatal(args...)
}

// With takes key-value pairs and returns a logger carrying them as fields. A trailing key without
// a value is dropped.
func (l *logrusLogger) With(args ...interface{}) Logger {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			continue
		}
		fields[k] = args[i+1]
	}
	return &logrusLogger{entry: l.entry.WithFields(fields)}
}

// Flush is a no-op for logrus, which writes synchronously.
func (l *logrusLogger) Flush() error {
	return nil
}
