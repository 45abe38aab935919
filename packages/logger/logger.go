// Package logger configures the structured diagnostics hostspec writes to
// stderr. Check results never go through the logger; formatters own stdout.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level is shared by every handler built here so verbosity can change after
// the logger is installed.
var Level = &slog.LevelVar{}

type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// New returns a logger writing to opts.Writer (stderr by default). Terminals
// get tint's colored handler, everything else a plain text handler.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Verbose {
		Level.Set(slog.LevelDebug)
	} else {
		Level.Set(slog.LevelWarn)
	}

	if isTerminal(w) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:   Level,
			NoColor: opts.NoColor,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.Attr{}
				}
				return a
			},
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				return slog.String(a.Key, strings.ToLower(a.Value.String()))
			}
			return a
		},
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(99)}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
