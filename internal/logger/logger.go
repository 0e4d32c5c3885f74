package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/rs/zerolog"
)

// SetupLogger writes console logs to stderr so stdout stays free for command output.
func SetupLogger(cfg *config.LoggingConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg *config.LoggingConfig, out io.Writer) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	zerolog.TimeFieldFormat = time.RFC3339

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	return zerolog.New(consoleWriter).
		With().
		Timestamp().
		Caller().
		Str("service", "alfresco_orchestrator").
		Str("host", hostname).
		Logger()
}
