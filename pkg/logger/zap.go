package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type CallerDisplayMode int

const (
	// CallerShort shows only filename:line (controller.go:116)
	CallerShort CallerDisplayMode = iota
	// CallerMedium shows package/filename:line (scheduler/controller.go:116)
	CallerMedium
	// CallerFull shows full path
	CallerFull
)

// DefaultLogPath is used when production logging is requested without a path.
const DefaultLogPath = "./logs/dynosched.log"

var (
	// Logger is the process-wide logger. It is a no-op until InitLogger runs,
	// so packages and tests can log before (or without) initialization.
	Logger            = zap.NewNop()
	Sugar             = Logger.Sugar()
	atomicLevel       = zap.NewAtomicLevelAt(zap.InfoLevel)
	callerDisplayMode = CallerShort
)

// Options controls logger construction.
type Options struct {
	Development bool
	LogPath     string
	Level       string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// InitLogger initializes the global logger
func InitLogger(opts Options) error {
	level := ParseLevel(opts.Level)
	atomicLevel.SetLevel(level)

	var (
		l   *zap.Logger
		err error
	)
	if opts.Development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = fixedWidthLevel
		cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
		cfg.EncoderConfig.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(formatCallerPath(caller))
		}
		cfg.Level = atomicLevel
		l, err = cfg.Build(
			zap.AddCallerSkip(1),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	} else {
		l, err = NewProductionLogger(opts)
	}
	if err != nil {
		return err
	}

	Logger = l
	Sugar = l.Sugar()
	zap.ReplaceGlobals(l)
	return nil
}

// NewProductionLogger creates a JSON file logger with rotation, teed to a
// console encoder on stderr. Stdout is left to command output.
func NewProductionLogger(opts Options) (*zap.Logger, error) {
	logPath := opts.LogPath
	if logPath == "" {
		logPath = DefaultLogPath
	}
	if err := createLogDir(logPath); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotation := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 30),
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = fixedWidthLevel
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(formatCallerPath(caller))
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotation), atomicLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), atomicLevel),
	)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// ParseLevel maps a textual level to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// With creates a child logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Logger.With(fields...)
}

// Info logs a message at InfoLevel
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Error logs a message at ErrorLevel
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Warn logs a message at WarnLevel
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Debug logs a message at DebugLevel
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Fatal logs a message at FatalLevel
func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return Logger.Sync()
}

// SetLevel dynamically changes the log level
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

// GetLevel returns the current log level
func GetLevel() zapcore.Level {
	return atomicLevel.Level()
}

// SetCallerDisplayMode sets the caller path display mode
func SetCallerDisplayMode(mode CallerDisplayMode) {
	callerDisplayMode = mode
}

func fixedWidthLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(fmt.Sprintf("%-5s", level.CapitalString()))
}

func createLogDir(logPath string) error {
	dir := filepath.Dir(logPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// formatCallerPath formats caller path based on display mode with alignment
func formatCallerPath(caller zapcore.EntryCaller) string {
	fullPath := caller.TrimmedPath()
	var result string

	switch callerDisplayMode {
	case CallerShort:
		parts := strings.Split(fullPath, "/")
		result = parts[len(parts)-1]
	case CallerMedium:
		shortened := strings.TrimPrefix(fullPath, "pkg/")
		shortened = strings.TrimPrefix(shortened, "cmd/")
		shortened = strings.TrimPrefix(shortened, "internal/")
		parts := strings.Split(shortened, "/")
		if len(parts) > 2 {
			result = strings.Join(parts[len(parts)-2:], "/")
		} else {
			result = shortened
		}
	default:
		result = fullPath
	}

	const callerWidth = 24
	if len(result) > callerWidth {
		result = "..." + result[len(result)-(callerWidth-3):]
	}
	return fmt.Sprintf("%-*s", callerWidth, result)
}
