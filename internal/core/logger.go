// AngelaMos | 2026
// logger.go

package core

import (
	"log/slog"
	"os"

	"github.com/carterperez-dev/printshop/internal/config"
)

// NewLogger builds the process logger shared by the api, worker and
// scheduler binaries.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
