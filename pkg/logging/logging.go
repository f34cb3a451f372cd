package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default slog logger. Logs go to stderr so stdout stays
// free for reports.
func Init(verbose bool, format string) {
	slog.SetDefault(New(os.Stderr, verbose, format))
}

func New(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
