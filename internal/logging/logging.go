package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Options controls where log output goes.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Unknown means info.
	Level string
	// Console receives coloured output. Defaults to os.Stdout.
	Console io.Writer
	// File receives uncoloured output when set.
	File io.Writer
	// GraylogAddress enables a GELF UDP sink when non-empty.
	GraylogAddress string
	// Component is attached to every entry.
	Component string
}

// Manager owns the configured logger and any sinks that need closing.
type Manager struct {
	logger zerolog.Logger
	gelf   *gelf.Writer
}

// ParseLevel converts a config string to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds the multi-sink logger.
func Setup(opts Options) (*Manager, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
	}
	if opts.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.File,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	m := &Manager{}
	if opts.GraylogAddress != "" {
		w, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			return nil, fmt.Errorf("graylog writer: %w", err)
		}
		m.gelf = w
		writers = append(writers, w)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}
	m.logger = ctx.Logger()

	m.logger.Debug().Str("loglevel", m.logger.GetLevel().String()).Msg("logging set up")
	return m, nil
}

// Logger returns the configured logger.
func (m *Manager) Logger() zerolog.Logger { return m.logger }

// Close releases the GELF connection if one was opened.
func (m *Manager) Close() error {
	if m.gelf == nil {
		return nil
	}
	return m.gelf.Close()
}

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// OpenLogFile creates logsDir if needed and opens a fresh session log file.
func OpenLogFile(logsDir, name string, sessionStart time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	path := LogFilePath(logsDir, name, sessionStart)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
