// Package applog configures the process-wide zerolog logger.
package applog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a level name to a zerolog level, defaulting to info for
// unknown names.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// NewWriter builds the console writer used by every DCWiz service:
// "2026-01-02 15:04:05 | LEVEL    | message".
func NewWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
		FormatLevel: func(i any) string {
			level, _ := i.(string)
			return fmt.Sprintf("| %-8s|", strings.ToUpper(level))
		},
	}
}

// Setup installs the console logger at the given level as the global
// zerolog logger and returns it.
func Setup(levelName string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(levelName))
	logger := zerolog.New(NewWriter(os.Stderr)).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
