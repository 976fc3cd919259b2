// Package logging wraps log/slog behind a single constructor, modeled on
// five82-spindle's internal/logging package: a plain console handler for
// default runs, and a JSON handler when Options.Verbose (--verbose) is set.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Options configures the logger returned by New.
type Options struct {
	Verbose bool
}

// New constructs a slog.Logger. Verbose selects JSON-with-source output;
// the default is a terse, human-readable line per record.
func New(opts Options, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	var handler slog.Handler
	if opts.Verbose {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar, AddSource: true})
	} else {
		handler = &consoleHandler{w: w, level: levelVar}
	}
	return slog.New(handler)
}

// consoleHandler renders "HH:MM:SS LEVEL message key=value ..." lines,
// the same terse shape as the teacher's Config.Logf callback but routed
// through slog so job-scoped fields (stage, window id, clip rank) attach
// uniformly across every component.
type consoleHandler struct {
	w     io.Writer
	level *slog.LevelVar
	attrs []slog.Attr
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')
	_, err := h.w.Write([]byte(b.String()))
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &consoleHandler{w: h.w, level: h.level}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler { return h }
