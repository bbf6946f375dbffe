// Package logx is the diagnostic sink shared by every task. It is
// fire-and-forget: no caller depends on a log call succeeding.
//
// Two backends exist: a logrus-backed logger for host builds and a console
// writer that formats without fmt, suitable for a UART on the MCU.
package logx

import "strings"

type Level uint8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	}
	return "unknown"
}

// ParseLevel accepts "debug", "info", "warn"/"warning" and "error".
// Anything else yields InfoLevel and false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, true
	case "info", "":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	}
	return InfoLevel, false
}

// Logger takes a message plus alternating key/value pairs.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

// Nop discards everything.
func Nop() Logger { return nop{} }

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
func (n nop) With(...any) Logger { return n }

// pairs walks kv two at a time. A trailing key without a value is reported
// with a nil value; non-string keys are rendered as "?".
func pairs(kv []any, fn func(k string, v any)) {
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = "?"
		}
		var v any
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		fn(k, v)
	}
}
