package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// Init builds the process-wide logger. LOG_LEVEL selects the minimum level
// (debug, info, warn, error); anything else falls back to info.
func Init() {
	level := zapcore.InfoLevel
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	log = l
}

func l() *zap.Logger {
	if log == nil {
		Init()
	}
	return log
}

func Debug(msg string, fields ...zap.Field) {
	l().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	l().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	l().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	l().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	l().Fatal(msg, fields...)
}

func Debugf(template string, args ...interface{}) {
	l().Sugar().Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	l().Sugar().Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	l().Sugar().Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	l().Sugar().Errorf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	l().Sugar().Fatalf(template, args...)
}
