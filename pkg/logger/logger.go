// Package logger holds the process-wide zap logger used by the chat server.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	baseLogger *zap.Logger
	atomicLVL  zap.AtomicLevel
)

// Options selects how the base logger is built.
type Options struct {
	Level    string // debug|info|warn|error
	Encoding string // json|console
	Output   string // stdout|stderr|file path
}

func init() {
	atomicLVL = zap.NewAtomicLevelAt(parseLevel(getEnv("CHAT_LOG_LEVEL", "info")))
	l, err := build(Options{
		Encoding: getEnv("CHAT_LOG_ENCODING", "json"),
		Output:   getEnv("CHAT_LOG_OUTPUT", "stdout"),
	})
	if err != nil {
		l = zap.NewNop()
	}
	baseLogger = l
}

// L returns the base logger.
func L() *zap.Logger { return baseLogger }

// SetLevel changes the level of the base logger at runtime.
func SetLevel(level string) { atomicLVL.SetLevel(parseLevel(level)) }

// Configure rebuilds the base logger. The atomic level is shared, so
// loggers derived before the call keep following SetLevel.
func Configure(opt Options) error {
	if opt.Level != "" {
		SetLevel(opt.Level)
	}
	l, err := build(opt)
	if err != nil {
		return err
	}
	_ = baseLogger.Sync()
	baseLogger = l
	return nil
}

// Sync flushes the base logger; errors from syncing stdout are ignored.
func Sync() { _ = baseLogger.Sync() }

func build(opt Options) (*zap.Logger, error) {
	if opt.Encoding == "" {
		opt.Encoding = "json"
	}
	if opt.Output == "" {
		opt.Output = "stdout"
	}
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if opt.Encoding == "console" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg := zap.Config{
		Level:            atomicLVL,
		Development:      false,
		Encoding:         opt.Encoding,
		EncoderConfig:    enc,
		OutputPaths:      []string{opt.Output},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build(zap.AddCaller())
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
