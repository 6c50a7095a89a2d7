// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "alpha-sniper", "logs", "sniper.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		writers = append(writers, consoleWriter)
	}

	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithMint adds a token mint to the logger context.
func WithMint(logger zerolog.Logger, mint string) zerolog.Logger {
	return logger.With().Str("mint", mint).Logger()
}

// WithQueueID adds a queue entry id to the logger context.
func WithQueueID(logger zerolog.Logger, id string) zerolog.Logger {
	return logger.With().Str("queue_id", id).Logger()
}

// WithVenue adds a swap venue name to the logger context.
func WithVenue(logger zerolog.Logger, venue string) zerolog.Logger {
	return logger.With().Str("venue", venue).Logger()
}

// LogDecision logs an engine decision.
func LogDecision(logger zerolog.Logger, mint, symbol, action string, confidence int, reasoning string) {
	logger.Info().
		Str("event", "decision").
		Str("mint", mint).
		Str("symbol", symbol).
		Str("action", action).
		Int("confidence", confidence).
		Str("reasoning", reasoning).
		Msg("Decision")
}

// LogSettlement logs a completed trade settlement.
func LogSettlement(logger zerolog.Logger, queueID, mint, venue string, price, size float64, reference string) {
	logger.Info().
		Str("event", "settlement").
		Str("queue_id", queueID).
		Str("mint", mint).
		Str("venue", venue).
		Float64("price", price).
		Float64("size_sol", size).
		Str("reference", reference).
		Msg("Trade settled")
}

// LogEndpointCall logs a swap endpoint call.
func LogEndpointCall(logger zerolog.Logger, venue, step string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "endpoint_call").
		Str("venue", venue).
		Str("step", step).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Endpoint call failed")
	} else {
		event.Msg("Endpoint call completed")
	}
}
