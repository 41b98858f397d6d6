// logging.go - slog construction and context helpers.
// Logs always go to stderr: in stdio mode stdout belongs to the protocol.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

// Format selects the slog handler.
type Format string

// Handler formats accepted by ParseFormat.
const (
	FormatAuto Format = "auto" // dev on a terminal, json otherwise
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatDev  Format = "dev"
)

type ctxKey struct{}

type options struct {
	writer io.Writer
	level  slog.Level
	format Format
}

// Option configures New.
type Option func(o *options)

// WithWriter overrides stderr. Tests use it to capture output.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithLevel sets the minimum level.
func WithLevel(lvl slog.Level) Option {
	return func(o *options) {
		o.level = lvl
	}
}

// WithFormat sets the handler format.
func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// New builds a logger. The default is info level, auto format, stderr.
func New(opts ...Option) *slog.Logger {
	o := &options{
		writer: os.Stderr,
		level:  slog.LevelInfo,
		format: FormatAuto,
	}
	for _, apply := range opts {
		apply(o)
	}

	format := o.format
	if format == FormatAuto {
		format = FormatJSON
		if f, ok := o.writer.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = FormatDev
		}
	}

	hopts := &slog.HandlerOptions{Level: o.level}
	switch format {
	case FormatDev:
		return slog.New(tint.NewHandler(o.writer, &tint.Options{
			Level:      o.level,
			TimeFormat: "[15:04:05.000]", // millisecond
		}))
	case FormatText:
		return slog.New(slog.NewTextHandler(o.writer, hopts))
	default:
		return slog.New(slog.NewJSONHandler(o.writer, hopts))
	}
}

// Void discards everything.
func Void() *slog.Logger {
	return New(WithWriter(io.Discard), WithFormat(FormatJSON))
}

// ParseLevel maps debug|info|warn|error (case-insensitive) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown log level %q", s)
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatJSON, FormatText, FormatDev:
		return f, nil
	case "txt":
		return FormatText, nil
	}
	return FormatAuto, errors.Errorf("unknown log format %q", s)
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
