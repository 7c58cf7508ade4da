package log

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	sugar   *zap.SugaredLogger
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	initOne sync.Once
)

// initLogger installs the default console logger on first use.
func initLogger() {
	initOne.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if base == nil {
			install(zap.New(newCore(zapcore.AddSync(os.Stderr), false)))
		}
	})
}

func newCore(ws zapcore.WriteSyncer, json bool) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewCore(enc, ws, level)
}

func install(l *zap.Logger) {
	base = l
	sugar = l.Sugar()
}

// Init configures the global logger. When file is non-empty, JSON lines are
// also written there with size-based rotation.
func Init(lvl Level, file string) error {
	initLogger()
	SetLevel(lvl)

	cores := []zapcore.Core{newCore(zapcore.AddSync(os.Stderr), false)}
	if file != "" {
		w := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, newCore(zapcore.AddSync(w), true))
	}

	mu.Lock()
	install(zap.New(zapcore.NewTee(cores...)))
	mu.Unlock()
	return nil
}

// SetLogger replaces the global logger, e.g. with zaptest or zap.NewNop in
// tests.
func SetLogger(l *zap.Logger) {
	initLogger()
	mu.Lock()
	install(l)
	mu.Unlock()
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// ParseLevel maps config strings ("debug", "INFO", ...) to a Level.
// Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(s)); err != nil {
		return LevelInfo
	}
	switch zl {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.InfoLevel:
		return LevelInfo
	default:
		return LevelError
	}
}

func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		level.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		level.SetLevel(zapcore.WarnLevel)
	case LevelError:
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

func Sync() {
	_ = L().Sync()
}

func Debug(msg string, kv ...any) {
	s().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	s().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	s().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", errString(err)}, kv...)
	s().Errorw(msg, extended...)
}

func s() *zap.SugaredLogger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return fmt.Sprint(err)
}
