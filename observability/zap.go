package observability

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// NewZap builds a *zap.Logger; format "json" selects the production encoder.
func NewZap(level, format string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// NewZapLogger returns a Logger backed by zap, falling back to a no-op
// logger when the zap config cannot be built.
func NewZapLogger(level, format string) Logger {
	l, err := NewZap(level, format)
	if err != nil {
		return NopLogger{}
	}
	return NewZapAdapter(l)
}

// NewZapAdapter wraps an existing *zap.Logger.
func NewZapAdapter(l *zap.Logger) Logger {
	return zapLogger{l: l}
}

// NewTestLogger writes through testing.TB.
func NewTestLogger(t testing.TB) Logger {
	return zapLogger{l: zaptest.NewLogger(t)}
}

type zapLogger struct {
	l *zap.Logger
}

func (z zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, toZap(fields)...) }
func (z zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, toZap(fields)...) }
func (z zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, toZap(fields)...) }
func (z zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, toZap(fields)...) }

func (z zapLogger) With(fields ...Field) Logger {
	return zapLogger{l: z.l.With(toZap(fields)...)}
}

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.(type) {
		case stringField:
			out = append(out, zap.String(v.key, v.val))
		case intField:
			out = append(out, zap.Int(v.key, v.val))
		case int64Field:
			out = append(out, zap.Int64(v.key, v.val))
		case boolField:
			out = append(out, zap.Bool(v.key, v.val))
		case durationField:
			out = append(out, zap.Duration(v.key, v.val))
		case errorField:
			out = append(out, zap.NamedError(v.key, v.err))
		default:
			out = append(out, zap.Any(f.Key(), f.Value()))
		}
	}
	return out
}
