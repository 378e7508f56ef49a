package logger

import (
	"os"

	"github.com/samvad-hq/samvad-rail-feed/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package-level logger to be used across packages after Init.
var S *zap.SugaredLogger

// Logger is the structured logging surface handed to components.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// Init initializes a zap SugaredLogger using settings from config.
// Output goes to stderr: stdout is reserved for fetched payloads.
func Init(cfg *config.Config) (Logger, error) {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(zapcore.Lock(os.Stderr)),
		parseLevel(cfg.LogLevel),
	)

	logger := newZap(core).With(zap.String("app", cfg.AppName), zap.String("env", cfg.Env))
	S = logger.Sugar()
	return ZapLogger{l: logger}, nil
}

// newZap skips one frame so callers, not the *Obj wrappers, are reported.
func newZap(core zapcore.Core) *zap.Logger {
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
}

func encoderConfig() zapcore.EncoderConfig {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderCfg
}

func parseLevel(raw string) zapcore.Level {
	switch raw {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes any buffered loggers.
func Close() error {
	if S == nil {
		return nil
	}
	return S.Sync()
}

// Minimal object logging helpers -------------------------------------------------
// These are tiny wrappers that log the given object as a structured field named
// `key` and do not attempt to parse arbitrary kv arrays.
func InfoObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Info(msg, zap.Any(key, obj))
}

func DebugObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Debug(msg, zap.Any(key, obj))
}

func WarnObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Warn(msg, zap.Any(key, obj))
}

func ErrorObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Error(msg, zap.Any(key, obj))
}

// ZapLogger implements Logger over a zap logger. The zero value uses S.
// Methods log directly so the caller skip set in newZap points at the call site.
type ZapLogger struct {
	l *zap.Logger
}

func (z ZapLogger) base() *zap.Logger {
	if z.l != nil {
		return z.l
	}
	if S != nil {
		return S.Desugar()
	}
	return nil
}

func (z ZapLogger) InfoObj(msg, key string, obj interface{}) {
	if l := z.base(); l != nil {
		l.Info(msg, zap.Any(key, obj))
	}
}

func (z ZapLogger) DebugObj(msg, key string, obj interface{}) {
	if l := z.base(); l != nil {
		l.Debug(msg, zap.Any(key, obj))
	}
}

func (z ZapLogger) WarnObj(msg, key string, obj interface{}) {
	if l := z.base(); l != nil {
		l.Warn(msg, zap.Any(key, obj))
	}
}

func (z ZapLogger) ErrorObj(msg, key string, obj interface{}) {
	if l := z.base(); l != nil {
		l.Error(msg, zap.Any(key, obj))
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (*NopLogger) InfoObj(string, string, interface{})  {}
func (*NopLogger) DebugObj(string, string, interface{}) {}
func (*NopLogger) WarnObj(string, string, interface{})  {}
func (*NopLogger) ErrorObj(string, string, interface{}) {}
