//go:build !rp2040

package logx

import (
	"io"

	"github.com/sirupsen/logrus"
)

type logrusLogger struct {
	e *logrus.Entry
}

// NewLogrus builds a host logger writing text lines to w.
func NewLogrus(w io.Writer, level Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	l.SetLevel(toLogrus(level))
	return FromLogrus(logrus.NewEntry(l))
}

// FromLogrus wraps an existing entry, e.g. the package-level logger.
func FromLogrus(e *logrus.Entry) Logger { return logrusLogger{e: e} }

func (l logrusLogger) Debug(msg string, kv ...any) { l.fields(kv).Debug(msg) }
func (l logrusLogger) Info(msg string, kv ...any)  { l.fields(kv).Info(msg) }
func (l logrusLogger) Warn(msg string, kv ...any)  { l.fields(kv).Warn(msg) }
func (l logrusLogger) Error(msg string, kv ...any) { l.fields(kv).Error(msg) }

func (l logrusLogger) With(kv ...any) Logger { return logrusLogger{e: l.fields(kv)} }

func (l logrusLogger) fields(kv []any) *logrus.Entry {
	if len(kv) == 0 {
		return l.e
	}
	f := make(logrus.Fields, (len(kv)+1)/2)
	pairs(kv, func(k string, v any) { f[k] = v })
	return l.e.WithFields(f)
}

func toLogrus(l Level) logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	}
	return logrus.InfoLevel
}
