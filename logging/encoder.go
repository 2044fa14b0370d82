package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Field names shared by both the JSON and console encoders.
const (
	fieldTimestamp = "timestamp"
	fieldLevel     = "level"
	fieldSource    = "source"
	fieldMessage   = "message"
	fieldStack     = "stacktrace"
	fieldCaller    = "caller"
)

// jsonEncoderConfig is used for the rotating log file and, outside
// development mode, for console output too.
func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        fieldTimestamp,
		LevelKey:       fieldLevel,
		NameKey:        fieldSource,
		CallerKey:      fieldCaller,
		MessageKey:     fieldMessage,
		StacktraceKey:  fieldStack,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// consoleEncoderConfig is used for development-mode console output: colored
// levels and a compact time format instead of full ISO8601.
func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := jsonEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = shortTimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}
