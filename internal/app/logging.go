package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shubhamrasal/peekq/internal/config"
)

const logFileName = "peekq.log"

// nopCloser is returned when the logger writes to a stream the process does not own
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger. The TUI owns the terminal, so it logs to a file
// unless one is given; headless commands log to stderr.
func NewLogger(level, file string, headless bool) (zerolog.Logger, io.Closer, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	if file == "" && headless {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		logger := zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
		log.Logger = logger
		return logger, nopCloser{}, nil
	}

	if file == "" {
		dir, err := config.Dir()
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		file = filepath.Join(dir, logFileName)
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger, f, nil
}
