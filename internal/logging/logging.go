package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default slog logger writing text records to stdout and
// to a rotating log file.
func Setup(level, filename string) error {
	return SetupWriter(os.Stdout, level, filename)
}

// SetupWriter is Setup with an explicit console writer.
func SetupWriter(console io.Writer, level, filename string) error {
	w := console
	if filename != "" {
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return err
		}
		logWriter := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
		w = io.MultiWriter(console, logWriter)
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	slog.SetDefault(slog.New(h))
	return nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Entry is a captured log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// String renders the entry on one line.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(e.Level)
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Attrs) {
		fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
	}
	return b.String()
}

type captureStore struct {
	mu      sync.Mutex
	entries []Entry
}

// Capture is a slog.Handler that records every record it sees and forwards
// it to the next handler. Handlers derived through WithAttrs and WithGroup
// record into the same store.
type Capture struct {
	next   slog.Handler
	store  *captureStore
	attrs  []slog.Attr
	prefix string
}

// NewCapture wraps next. A nil next only records.
func NewCapture(next slog.Handler) *Capture {
	return &Capture{next: next, store: &captureStore{}}
}

// Entries returns a copy of everything recorded so far.
func (c *Capture) Entries() []Entry {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return append([]Entry(nil), c.store.entries...)
}

func (c *Capture) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelInfo {
		return true
	}
	return c.next != nil && c.next.Enabled(ctx, level)
}

func (c *Capture) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		e := Entry{Time: r.Time, Level: r.Level.String(), Message: r.Message}
		if len(c.attrs) > 0 || r.NumAttrs() > 0 {
			e.Attrs = make(map[string]string, len(c.attrs)+r.NumAttrs())
		}
		for _, a := range c.attrs {
			addAttr(e.Attrs, "", a)
		}
		r.Attrs(func(a slog.Attr) bool {
			addAttr(e.Attrs, c.prefix, a)
			return true
		})
		c.store.mu.Lock()
		c.store.entries = append(c.store.entries, e)
		c.store.mu.Unlock()
	}
	if c.next != nil && c.next.Enabled(ctx, r.Level) {
		return c.next.Handle(ctx, r)
	}
	return nil
}

func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *c
	out.attrs = make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	out.attrs = append(out.attrs, c.attrs...)
	for _, a := range attrs {
		if c.prefix != "" {
			a.Key = c.prefix + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	if c.next != nil {
		out.next = c.next.WithAttrs(attrs)
	}
	return &out
}

func (c *Capture) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	out := *c
	out.prefix = c.prefix + name + "."
	if c.next != nil {
		out.next = c.next.WithGroup(name)
	}
	return &out
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			addAttr(dst, prefix+a.Key+".", g)
		}
		return
	}
	dst[prefix+a.Key] = a.Value.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
