package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/config"
	"github.com/lmittmann/tint"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT.
// "json" writes structured records to stdout; "text" writes colored
// records for local runs.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	if format == "text" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
