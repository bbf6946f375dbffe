package logx

import (
	"io"
	"strconv"
	"sync"
)

// Console writes one line per entry: "Info: msg key=value ...".
// It never uses fmt, so it stays small on TinyGo.
type Console struct {
	mu    *sync.Mutex
	w     io.Writer
	min   Level
	scope []any
}

func NewConsole(w io.Writer, min Level) *Console {
	return &Console{mu: &sync.Mutex{}, w: w, min: min}
}

func (c *Console) Debug(msg string, kv ...any) { c.write(DebugLevel, msg, kv) }
func (c *Console) Info(msg string, kv ...any)  { c.write(InfoLevel, msg, kv) }
func (c *Console) Warn(msg string, kv ...any)  { c.write(WarnLevel, msg, kv) }
func (c *Console) Error(msg string, kv ...any) { c.write(ErrorLevel, msg, kv) }

func (c *Console) With(kv ...any) Logger {
	scope := make([]any, 0, len(c.scope)+len(kv))
	scope = append(scope, c.scope...)
	scope = append(scope, kv...)
	return &Console{mu: c.mu, w: c.w, min: c.min, scope: scope}
}

var prefixes = [...]string{"Debug: ", "Info: ", "Warn: ", "Error: "}

func (c *Console) write(l Level, msg string, kv []any) {
	if l < c.min {
		return
	}
	buf := make([]byte, 0, 64+len(msg))
	buf = append(buf, prefixes[l]...)
	buf = append(buf, msg...)
	add := func(k string, v any) {
		buf = append(buf, ' ')
		buf = append(buf, k...)
		buf = append(buf, '=')
		buf = appendValue(buf, v)
	}
	pairs(c.scope, add)
	pairs(kv, add)
	buf = append(buf, '\r', '\n')

	c.mu.Lock()
	_, _ = c.w.Write(buf)
	c.mu.Unlock()
}

func appendValue(b []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, "<nil>"...)
	case string:
		return append(b, x...)
	case bool:
		return strconv.AppendBool(b, x)
	case int:
		return strconv.AppendInt(b, int64(x), 10)
	case int8:
		return strconv.AppendInt(b, int64(x), 10)
	case int16:
		return strconv.AppendInt(b, int64(x), 10)
	case int32:
		return strconv.AppendInt(b, int64(x), 10)
	case int64:
		return strconv.AppendInt(b, x, 10)
	case uint:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint8:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint16:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint32:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint64:
		return strconv.AppendUint(b, x, 10)
	case float32:
		return strconv.AppendFloat(b, float64(x), 'f', 1, 32)
	case float64:
		return strconv.AppendFloat(b, x, 'f', 1, 64)
	case error:
		return append(b, x.Error()...)
	case interface{ String() string }:
		return append(b, x.String()...)
	}
	return append(b, '?')
}
