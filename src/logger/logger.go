package logger

import (
	"fmt"
	"os"
	"strings"

	"oi-signal-engine/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	sugar  *zap.SugaredLogger
	config *models.MConfig
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. A nil config logs INFO to stdout.
func NewLogger(cfg *models.MConfig, name string) *Logger {
	level := zapcore.InfoLevel
	format := "console"
	var logging models.MLoggingConfig
	if cfg != nil {
		level = ParseLevel(cfg.LogLevel)
		logging = cfg.Logging
		if logging.Format != "" {
			format = logging.Format
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	if logging.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   logging.File,
			MaxSize:    orDefault(logging.MaxSizeMB, 100),
			MaxBackups: orDefault(logging.MaxBackups, 5),
			MaxAge:     orDefault(logging.MaxAgeDays, 30),
			Compress:   logging.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	base := zap.New(zapcore.NewTee(cores...))
	return &Logger{
		name:   name,
		sugar:  base.Sugar().Named(name),
		config: cfg,
	}
}

// -----------------------------------------------------------------------------

// NewNop returns a logger that discards everything.
func NewNop(name string) *Logger {
	return &Logger{name: name, sugar: zap.NewNop().Sugar()}
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same sinks.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, sugar: l.sugar.Desugar().Named(name).Sugar(), config: l.config}
}

// -----------------------------------------------------------------------------

// ParseLevel maps the config level names onto zap levels.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debug(l.line(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warn(l.line(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Info(l.line(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Error(l.line(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Error(l.line(format, args...))
	_ = l.sugar.Sync()
	os.Exit(1)
}

// -----------------------------------------------------------------------------

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// -----------------------------------------------------------------------------

func (l *Logger) line(format string, args ...interface{}) string {
	return fmt.Sprintf("[%s] %s", l.name, fmt.Sprintf(format, args...))
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
