package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel turns "debug", "info", "warn" or "error" (any case) into a zap level.
// Anything else is info.
func ParseLevel(logLevel string) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if logLevel == "" {
		return level
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(logLevel))); err != nil {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return level
}

// EncoderConfig is the JSON layout shared by every file logger of the tool.
func EncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// FileCore writes JSON entries to a size-rotated file.
func FileCore(logPath string, level zap.AtomicLevel) zapcore.Core {
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // MB
		MaxBackups: 5,
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), writer, level)
}

// NewLogger creates a JSON logger writing only to file with configurable level.
// If logPath empty → no-op logger.
func NewLogger(logPath, logLevel string) (*zap.SugaredLogger, error) {
	if logPath == "" {
		return zap.NewNop().Sugar(), nil
	}
	return zap.New(FileCore(logPath, ParseLevel(logLevel))).Sugar(), nil
}
