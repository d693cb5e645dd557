package vtest

import (
	"context"
	"log/slog"
	"sync"
)

// Record is one captured log entry with its attributes flattened.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is a slog.Handler that stores records for assertions.
type LogRecorder struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
	group   string
	level   slog.Level
}

// NewLogRecorder creates a recorder that keeps records at debug level and
// above.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{
		mu:      &sync.Mutex{},
		records: &[]Record{},
		level:   slog.LevelDebug,
	}
}

// Logger returns a logger writing to the recorder.
func (r *LogRecorder) Logger() *slog.Logger {
	return slog.New(r)
}

// Enabled implements slog.Handler.
func (r *LogRecorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

// Handle implements slog.Handler.
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	out := Record{Level: rec.Level, Message: rec.Message, Attrs: make(map[string]any)}
	for _, a := range r.attrs {
		r.put(out.Attrs, a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		r.put(out.Attrs, a)
		return true
	})

	r.mu.Lock()
	*r.records = append(*r.records, out)
	r.mu.Unlock()
	return nil
}

func (r *LogRecorder) put(m map[string]any, a slog.Attr) {
	key := a.Key
	if r.group != "" {
		key = r.group + "." + key
	}
	m[key] = a.Value.Resolve().Any()
}

// WithAttrs implements slog.Handler.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *r
	clone.attrs = append(append([]slog.Attr(nil), r.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler.
func (r *LogRecorder) WithGroup(name string) slog.Handler {
	clone := *r
	if clone.group != "" {
		name = clone.group + "." + name
	}
	clone.group = name
	return &clone
}

// Records returns every captured record.
func (r *LogRecorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), *r.records...)
}

// Count returns the number of records at level.
func (r *LogRecorder) Count(level slog.Level) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Level == level {
			n++
		}
	}
	return n
}

// Find returns the first record with the given level and message.
func (r *LogRecorder) Find(level slog.Level, msg string) (Record, bool) {
	for _, rec := range r.Records() {
		if rec.Level == level && rec.Message == msg {
			return rec, true
		}
	}
	return Record{}, false
}

// Reset drops captured records.
func (r *LogRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.records = nil
}
