package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var levels = map[string]slog.Level{
	envLocal: slog.LevelDebug,
	envDev:   slog.LevelDebug,
	envProd:  slog.LevelInfo,
}

// SetupLogger writes to stdout for local runs and appends to logPath otherwise.
// Every record carries the service name, so a shared log file stays readable.
func SetupLogger(env, logPath, service string) (*slog.Logger, error) {
	level, ok := levels[env]
	if !ok {
		return nil, fmt.Errorf("invalid environment: %q", env)
	}

	var out io.Writer = os.Stdout
	if env != envLocal {
		logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = logFile
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", service)), nil
}
