package logx

import "sync"

// Entry is one captured log call.
type Entry struct {
	Level  Level
	Msg    string
	Fields map[string]any
}

// Recorder keeps every entry in memory. Used by tests across the module.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	scope   []any
}

func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) Debug(msg string, kv ...any) { r.add(DebugLevel, msg, kv) }
func (r *Recorder) Info(msg string, kv ...any)  { r.add(InfoLevel, msg, kv) }
func (r *Recorder) Warn(msg string, kv ...any)  { r.add(WarnLevel, msg, kv) }
func (r *Recorder) Error(msg string, kv ...any) { r.add(ErrorLevel, msg, kv) }

func (r *Recorder) With(kv ...any) Logger {
	scope := append(append([]any{}, r.scope...), kv...)
	return &Recorder{mu: r.mu, entries: r.entries, scope: scope}
}

func (r *Recorder) add(l Level, msg string, kv []any) {
	f := map[string]any{}
	pairs(r.scope, func(k string, v any) { f[k] = v })
	pairs(kv, func(k string, v any) { f[k] = v })
	r.mu.Lock()
	*r.entries = append(*r.entries, Entry{Level: l, Msg: msg, Fields: f})
	r.mu.Unlock()
}

// Entries returns a snapshot copy.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), *r.entries...)
}

// Count returns how many entries at level l carry msg.
func (r *Recorder) Count(l Level, msg string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == l && e.Msg == msg {
			n++
		}
	}
	return n
}
