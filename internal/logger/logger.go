package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger emits one JSON line per call, keyed by an action name. Every service
// logs through this so the lines stay grep-able across modes.
type Logger struct {
	z       *zap.Logger
	service string
}

func New(service string) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "action"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), zap.DebugLevel)
	host, _ := os.Hostname()
	z := zap.New(core).With(zap.String("service", service), zap.String("hostname", host))
	return &Logger{z: z, service: service}
}

// FromZap wraps an existing zap logger; tests use this with an observed core.
func FromZap(z *zap.Logger, service string) *Logger {
	return &Logger{z: z.With(zap.String("service", service)), service: service}
}

func fieldsOf(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.z.Debug(action, fieldsOf(fields)...)
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.z.Info(action, fieldsOf(fields)...)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.z.Warn(action, fieldsOf(fields)...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	fs := fieldsOf(fields)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	l.z.Error(action, fs...)
}

func (l *Logger) Sync() { _ = l.z.Sync() }
