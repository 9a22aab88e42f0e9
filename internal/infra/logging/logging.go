package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig enables rotated file output next to stdout.
type FileConfig struct {
	Path       string `env:"APP_LOG_FILE" envDefault:""`
	MaxSizeMB  int    `env:"APP_LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"APP_LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"APP_LOG_MAX_AGE_DAYS" envDefault:"14"`
}

// SetupJSON sets slog's default logger to use JSON output at the given level.
func SetupJSON(level slog.Level) {
	slog.SetDefault(NewJSON(os.Stdout, level))
}

// SetupJSONWithFile is SetupJSON that additionally writes to a rotated log
// file when fc.Path is set. The returned closer flushes the file writer.
func SetupJSONWithFile(level slog.Level, fc FileConfig) io.Closer {
	if fc.Path == "" {
		SetupJSON(level)

		return io.NopCloser(nil)
	}

	rotator := &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAge:     fc.MaxAgeDays,
		Compress:   true,
	}

	slog.SetDefault(NewJSON(io.MultiWriter(os.Stdout, rotator), level))

	return rotator
}

// NewJSON builds a JSON slog logger writing to w.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
