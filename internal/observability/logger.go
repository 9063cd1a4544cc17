// File: internal/observability/logger.go
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// globalLogger stores the global logger instance safely across goroutines.
	globalLogger atomic.Pointer[zap.Logger]
	// initMu serializes rebuilds so concurrent Initialize calls cannot
	// interleave the ReplaceGlobals/RedirectStdLog pair.
	initMu sync.Mutex
)

// LoggerConfig controls the global logger. It lives here rather than in the
// config package so observability has no dependency on config loading; the
// config package embeds it.
type LoggerConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`                   // "debug", "info", "warn", "error".
	Format     string `json:"format" yaml:"format" mapstructure:"format"`                // "console" or "json".
	LogFile    string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`          // Optional rotating file sink.
	MaxSize    int    `json:"max_size" yaml:"max_size" mapstructure:"max_size"`          // Megabytes before rotation.
	MaxBackups int    `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"` // Rotated files to retain.
	MaxAge     int    `json:"max_age" yaml:"max_age" mapstructure:"max_age"`             // Days to retain rotated files.
	Compress   bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
	AddSource  bool   `json:"add_source" yaml:"add_source" mapstructure:"add_source"` // Annotate entries with caller info.
}

// ANSI color codes for the console level encoder.
const (
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorReset  = "\x1b[0m"
)

// Initialize builds the global Zap logger with the given console writer and
// swaps it in atomically. Calling it again rebuilds the logger, which lets
// the bootstrap logger be replaced once file-sourced configuration is loaded.
// Report output owns stdout, so production use routes the console core to
// stderr; tests inject their own writer.
func Initialize(cfg LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	initMu.Lock()
	defer initMu.Unlock()

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	consoleCore := zapcore.NewCore(newEncoder(cfg.Format), consoleWriter, level)
	cores := []zapcore.Core{consoleCore}

	if cfg.LogFile != "" {
		// File sink is always JSON; lumberjack rotates it.
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(newEncoder("json"), fileWriter, level))
	}

	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		options = append(options, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewTee(cores...), options...).Named("warden")
	globalLogger.Store(logger)

	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)
}

// InitializeLogger is the production entry point. Console output goes to a
// locked stderr so machine-readable report output on stdout is never mixed
// with log lines.
func InitializeLogger(cfg LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stderr))
}

// ResetForTest clears the global logger.
// This function should ONLY be used in tests to ensure isolation.
func ResetForTest() {
	globalLogger.Store(nil)
}

// levelColor maps log levels to terminal colors for the console encoder.
func levelColor(level zapcore.Level) string {
	switch {
	case level >= zapcore.ErrorLevel:
		return colorRed
	case level == zapcore.WarnLevel:
		return colorYellow
	case level == zapcore.InfoLevel:
		return colorGreen
	default:
		return colorCyan
	}
}

// newEncoder builds the encoder for the requested format: a colorized,
// single-line console encoder for terminals, or JSON for file sinks and log
// aggregation.
func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if format == "console" {
		encoderConfig.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(levelColor(level) + strings.ToUpper(level.String()) + colorReset)
		}
		encoderConfig.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(name + ".")
		}
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// GetLogger returns the initialized global logger instance.
func GetLogger() *zap.Logger {
	logger := globalLogger.Load()
	if logger == nil {
		// Fallback for code paths that log before initialization.
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return l.Named("fallback")
	}
	return logger
}

// Sync flushes any buffered log entries. Applications should call this before exiting.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		// Syncing stderr fails on some platforms; only surface real errors.
		msg := err.Error()
		if !strings.Contains(msg, "invalid argument") &&
			!strings.Contains(msg, "operation not supported") &&
			!strings.Contains(msg, "sync /dev/stderr") {
			fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
		}
	}
}
