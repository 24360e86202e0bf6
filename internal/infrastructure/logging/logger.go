package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so components can share one named tree.
type Logger struct {
	*zap.Logger
}

type Config struct {
	// debug, info, warn, error
	Level string
	// json or console
	Format      string
	Development bool
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

func New(cfg Config) (*Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	}
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	format := cfg.Format
	if format != "console" {
		format = "json"
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          format,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{l}, nil
}

// NewNop discards everything; it is the default for components built without a logger.
func NewNop() *Logger { return &Logger{zap.NewNop()} }

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

func (l *Logger) Named(name string) *Logger { return &Logger{l.Logger.Named(name)} }

func (l *Logger) With(fields ...zap.Field) *Logger { return &Logger{l.Logger.With(fields...)} }

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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
