// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"

	stdlog "log"

	"github.com/idrisskacou/Log-Store-2-DB/config"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init installs the global logger.
//
// LOG_PRETTY selects a human-readable console writer; otherwise JSON lines go
// to stdout. Every event carries the service and instance fields, and the
// standard library logger is redirected so stray log.Printf calls end up in
// the same stream.
func Init(cfg *config.Config) {
	zlog.Logger = New(cfg, os.Stdout)
	zerolog.SetGlobalLevel(zlog.Logger.GetLevel())

	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}

// New builds a logger writing to out without touching global state.
func New(cfg *config.Config, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil && l != zerolog.NoLevel {
		level = l
	}

	w := out
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()
}
