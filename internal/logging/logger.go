package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger writes JSON logs to combined.log at the given level and repeats
// error-level entries into error.log, both rotated by lumberjack.
func NewLogger(logDir, level string) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(cfg)

	combined := zapcore.NewCore(enc, rotating(filepath.Join(logDir, "combined.log")), lvl)
	errorsOnly := zapcore.NewCore(enc.Clone(), rotating(filepath.Join(logDir, "error.log")), zap.ErrorLevel)

	return zap.New(zapcore.NewTee(combined, errorsOnly), zap.AddCaller()), nil
}

func rotating(filename string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
}
