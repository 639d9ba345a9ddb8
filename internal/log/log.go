package log

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

var initOnce sync.Once

// Init installs the process-wide slog handler. Safe to call more than
// once; only the first call wins. Debug enables the debug level.
func Init(debug bool) {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(
			tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.RFC1123Z,
			}),
		))
	})
}

func Debug(msg string, kv ...any) {
	Init(false)
	slog.Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Init(false)
	slog.Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	Init(false)
	slog.Warn(msg, kv...)
}

// Error logs msg with err prepended to the key-value list.
func Error(msg string, err error, kv ...any) {
	Init(false)
	slog.Error(msg, append([]any{"err", err}, kv...)...)
}
