package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusAdapter is the Logger used outside tests. Derived loggers share the
// underlying logrus.Logger and carry their fields on an entry.
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter builds a logrus-backed Logger writing to stderr.
// level is any logrus level name; an unknown name falls back to info with a warning.
// format "json" selects the JSON formatter, anything else the text formatter.
func NewLogrusAdapter(level, format string) Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return wrap(logger)
}

// NewDiscardLogger returns a logger that writes nothing.
func NewDiscardLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return wrap(logger)
}

func wrap(logger *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{entry: logrus.NewEntry(logger)}
}

func (l *LogrusAdapter) Debug(msg string, fields ...Field) {
	l.with(fields).Debug(msg)
}

func (l *LogrusAdapter) Info(msg string, fields ...Field) {
	l.with(fields).Info(msg)
}

func (l *LogrusAdapter) Warn(msg string, fields ...Field) {
	l.with(fields).Warn(msg)
}

func (l *LogrusAdapter) Error(msg string, fields ...Field) {
	l.with(fields).Error(msg)
}

func (l *LogrusAdapter) WithError(err error) Logger {
	return &LogrusAdapter{entry: l.entry.WithError(err)}
}

func (l *LogrusAdapter) WithField(key string, value interface{}) Logger {
	return &LogrusAdapter{entry: l.entry.WithField(key, value)}
}

func (l *LogrusAdapter) WithFields(fields ...Field) Logger {
	return &LogrusAdapter{entry: l.with(fields)}
}

func (l *LogrusAdapter) with(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return l.entry.WithFields(lf)
}
