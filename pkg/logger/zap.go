package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes how the process logger is built.
type Config struct {
	// Level is one of debug, info, warn, error. Empty picks a level from Environment.
	Level string
	// Format is json or console.
	Format string
	// Output is stdout, stderr or file.
	Output string
	// FilePath is used when Output is file.
	FilePath string
	// Environment is the deployment environment, e.g. production.
	Environment string
	Development bool
}

// ParseLevel resolves the configured level. Production defaults to warn,
// everything else to info.
func ParseLevel(level, environment string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	if environment == "production" {
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// NewZapLogger builds a zap logger from config. The returned func closes the
// log file when the output is a file; call it after the final Sync.
func NewZapLogger(config Config) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(ParseLevel(config.Level, config.Environment))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "log.level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"

	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	target := "stdout"
	switch config.Output {
	case "stderr":
		target = "stderr"
	case "file":
		if config.FilePath != "" {
			target = config.FilePath
		}
	}

	writeSyncer, closeOutput, err := zap.Open(target)
	if err != nil {
		return nil, nil, err
	}

	logger := zap.New(zapcore.NewCore(encoder, writeSyncer, level))

	if config.Development {
		logger = logger.WithOptions(zap.AddCaller())
	}

	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), closeOutput, nil
}

// DefaultZapLogger returns a json logger on stdout at info level.
func DefaultZapLogger() *zap.Logger {
	logger, _, err := NewZapLogger(Config{Level: "info", Format: "json", Output: "stdout"})
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
