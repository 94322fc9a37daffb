package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rs/zerolog"
)

// New builds the configured Logger writing to w. format is "json", "text"
// or "zerolog". The returned *slog.Logger shares w and level and serves
// libraries that only accept slog.
func New(w io.Writer, format, level string) (Logger, *slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "json":
		sl := slog.New(slog.NewJSONHandler(w, opts))
		return NewSlogLogger(sl), sl, nil
	case "text":
		sl := slog.New(slog.NewTextHandler(w, opts))
		return NewSlogLogger(sl), sl, nil
	case "zerolog":
		zl, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		sl := slog.New(slog.NewJSONHandler(w, opts))
		return NewConsoleLogger(w, zl), sl, nil
	}
	return nil, nil, fmt.Errorf("unknown log format %q", format)
}
