// Package telemetry wires structured logging and run metrics.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LoggerOptions controls InitLogger.
type LoggerOptions struct {
	Debug   bool
	JSON    bool
	LogFile string
	// Output defaults to stderr so stdout stays free for command output.
	Output io.Writer
}

// InitLogger configures the default slog logger. The returned func closes
// the log file, if one was opened.
func InitLogger(opts LoggerOptions) func() {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlers := []slog.Handler{newHandler(out, opts.JSON, handlerOpts)}
	closer := func() {}

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			// the file always gets JSON so it can be shipped as-is
			handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
			closer = func() { f.Close() }
		} else {
			slog.Error("failed to open log file", "path", opts.LogFile, "error", err)
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = &multiHandler{handlers: handlers}
	} else {
		handler = handlers[0]
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

func newHandler(w io.Writer, asJSON bool, opts *slog.HandlerOptions) slog.Handler {
	if asJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
