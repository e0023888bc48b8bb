// Package logging builds the slog loggers used by the TUI and the dev server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type Options struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
	// Color enables ANSI colours in text output. Leave it off for files.
	Color bool
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to opts.Output, or discarding when it is nil.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := ParseLevel(opts.Level)
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{
		mu:    &sync.Mutex{},
		out:   opts.Output,
		level: level,
		color: opts.Color,
	})
}

// OpenFile opens path for appending, creating parent directories as needed.
func OpenFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// colorHandler writes one line per record with optional colour.
type colorHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	color  bool
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) paint(c *color.Color, s string) string {
	if !h.color {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(h.paint(color.New(color.FgHiBlack), r.Time.Format("15:04:05")+" "))

	switch {
	case r.Level >= slog.LevelError:
		buf.WriteString(h.paint(color.New(color.FgRed, color.Bold), "ERR "))
	case r.Level >= slog.LevelWarn:
		buf.WriteString(h.paint(color.New(color.FgYellow), "WRN "))
	case r.Level >= slog.LevelInfo:
		buf.WriteString(h.paint(color.New(color.FgCyan), "INF "))
	default:
		buf.WriteString(h.paint(color.New(color.FgMagenta), "DBG "))
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range h.attrs {
		h.writeAttr(&buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, prefix, a)
		return true
	})
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) writeAttr(buf *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	buf.WriteString(h.paint(color.New(color.FgHiBlack), " "+prefix+a.Key+"="))
	buf.WriteString(a.Value.String())
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	next := *h
	next.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(next.attrs, h.attrs)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}
