// Package logging provides structured logging functionality.
package logging

import (
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
		FilePath:   filepath.Join(home, ".config", "atticus", "logs", "desk.log"),
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
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
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

// WithComponent adds a component name to the logger context.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogTick logs a reference-price update.
func LogTick(logger zerolog.Logger, symbol, source string, price, volume float64) {
	logger.Debug().
		Str("event", "tick").
		Str("symbol", symbol).
		Str("source", source).
		Float64("price", price).
		Float64("volume", volume).
		Msg("Price update")
}

// LogFill logs an executed order.
func LogFill(logger zerolog.Logger, accountID, positionID string, side string, qty, strike, premium float64) {
	logger.Info().
		Str("event", "fill").
		Str("account_id", accountID).
		Str("position_id", positionID).
		Str("side", side).
		Float64("quantity", qty).
		Float64("strike", strike).
		Float64("premium", premium).
		Msg("Order filled")
}

// LogSettlement logs an expiry settlement.
func LogSettlement(logger zerolog.Logger, positionID string, settlementUSD, pnl float64) {
	logger.Info().
		Str("event", "settlement").
		Str("position_id", positionID).
		Float64("settlement_usd", settlementUSD).
		Float64("pnl", pnl).
		Msg("Position settled")
}

// LogAlert logs a risk alert.
func LogAlert(logger zerolog.Logger, severity, alertType, message string) {
	event := logger.Warn()
	if severity == "critical" {
		event = logger.Error()
	}
	event.
		Str("event", "risk_alert").
		Str("severity", severity).
		Str("type", alertType).
		Msg(message)
}

// LogRecommendation logs the top hedge recommendation.
func LogRecommendation(logger zerolog.Logger, strategy string, confidence float64, reasoning string) {
	logger.Info().
		Str("event", "hedge_recommendation").
		Str("strategy", strategy).
		Float64("confidence", confidence).
		Str("reasoning", reasoning).
		Msg("Hedge recommendation")
}
