// Package logging wires zap + lumberjack into llamahost's Logger: a tee
// of console and rotating-file output, with detection-domain
// zapcore.ObjectMarshaler helpers (ProbeFields, GPU) and redaction of the
// host paths and tokens a supervisor/release run can otherwise leak into
// logs (see redact.go).
package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the log file: 100MB per file, 5 backups, 30 days,
// gzip-compressed.
const (
	rotateMaxSizeMB  = 100
	rotateMaxBackups = 5
	rotateMaxAgeDays = 30
)

// newFileWriter returns a rotating zapcore.WriteSyncer for path.
func newFileWriter(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxBackups,
		MaxAge:     rotateMaxAgeDays,
		Compress:   true,
	})
}

// newCore builds the console+file tee. File output is always JSON, rotated
// via lumberjack; console output is colored/human-readable in development
// mode and JSON otherwise, so a production deployment can feed both streams
// to the same log collector unmodified.
func newCore(level zapcore.Level, filePath string, isDev bool) (zapcore.Core, error) {
	// lumberjack opens filePath lazily on first write, so a missing parent
	// directory would otherwise surface only once something gets logged.
	// Probe it eagerly so NewLogger fails at startup instead.
	probe, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	probe.Close()

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), newFileWriter(filePath), level)

	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)

	return zapcore.NewTee(consoleCore, fileCore), nil
}
