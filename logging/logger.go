package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with redaction of anything matched by
// IsSensitiveField/RedactSensitiveData before it reaches the console or
// file sink.
type Logger struct {
	zap           *zap.Logger
	sugar         *zap.SugaredLogger
	isDevelopment bool
	logFilePath   string
}

// NewLogger builds a Logger that tees to both stdout and a rotating file
// at logFilePath. Development mode logs at debug level with colored
// console output; otherwise info level with JSON on both sinks.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	level := zapcore.InfoLevel
	if isDevelopment {
		level = zapcore.DebugLevel
	}

	core, err := newCore(level, logFilePath, isDevelopment)
	if err != nil {
		return nil, fmt.Errorf("creating log core: %w", err)
	}

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, l.redactFields(fields)...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, l.redactFields(fields)...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, l.redactFields(fields)...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, l.redactFields(fields)...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.zap.Fatal(msg, l.redactFields(fields)...) }
func (l *Logger) Panic(msg string, fields ...zap.Field) { l.zap.Panic(msg, l.redactFields(fields)...) }

// With returns a child logger carrying fields on every subsequent entry,
// e.g. a per-run correlation ID.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:           l.zap.With(l.redactFields(fields)...),
		sugar:         l.sugar.With(l.redactFieldsToInterface(fields)...),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

func (l *Logger) Named(name string) *Logger {
	newZap := l.zap.Named(name)
	return &Logger{zap: newZap, sugar: newZap.Sugar(), isDevelopment: l.isDevelopment, logFilePath: l.logFilePath}
}

// Sugar and Zap expose the underlying loggers for call sites that need the
// full zap API surface beyond this wrapper's redacted subset.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }
func (l *Logger) Zap() *zap.Logger          { return l.zap }

func (l *Logger) IsDevelopment() bool { return l.isDevelopment }
func (l *Logger) LogFilePath() string { return l.logFilePath }

func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	result := make([]zap.Field, len(fields))
	for i, f := range fields {
		result[i] = l.redactField(f)
	}
	return result
}

func (l *Logger) redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}
	if field.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}
	return field
}

func (l *Logger) redactKeysAndValues(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}
	result := make([]interface{}, len(keysAndValues))
	copy(result, keysAndValues)
	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		if IsSensitiveField(key) {
			result[i+1] = RedactedPlaceholder
			continue
		}
		if value, ok := result[i+1].(string); ok {
			result[i+1] = RedactSensitiveData(value)
		}
	}
	return result
}

func (l *Logger) redactFieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		redacted := l.redactField(f)
		result = append(result, redacted.Key, redacted.String)
	}
	return result
}
