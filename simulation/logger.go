package simulation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// LogConfig configures the logger of a simulation.
type LogConfig struct {
	// Level is the lowest level printed to the console and the file.
	Level slog.Level

	// Console receives the colored output. It defaults to os.Stderr.
	Console io.Writer

	// File, if not empty, also receives the logs as plain text.
	File string

	// Prefix is printed in front of every console line.
	Prefix string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the logger described by the config. The returned closer
// closes the log file, if any.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := make([]slog.Handler, 0, 2)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:        cfg.Level,
			AddSource:    false,
			CustomPrefix: cfg.Prefix,
			ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
				if attr.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if cfg.File == "" {
		return slog.New(slogmulti.Fanout(handlers...)), nopCloser{}, nil
	}

	err := os.MkdirAll(filepath.Dir(cfg.File), 0o755)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}

	handlers = append(handlers,
		slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.Level}))

	return slog.New(slogmulti.Fanout(handlers...)), f, nil
}

// ParseLevel turns a level name such as "debug" or "warn" into a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(name)))

	return level, err
}
