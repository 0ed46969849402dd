// Package logger wraps zap behind package-level helpers so callers don't
// thread a logger through every constructor.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

func init() {
	// Safe no-op until Init is called, so early callers never panic.
	log = zap.NewNop().Sugar()
}

// Init configures the global logger. With a non-empty filename, output goes
// to both stdout and the file.
func Init(filename string, debug bool) error {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	sink := zapcore.AddSync(os.Stdout)
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		sink = zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(f))
	}

	log = zap.New(zapcore.NewCore(encoder, sink, level)).Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = log.Sync()
}

// L returns the underlying sugared logger for callers that want to attach
// structured fields with With.
func L() *zap.SugaredLogger {
	return log
}

func Debugf(format string, v ...any) { log.Debugf(format, v...) }
func Infof(format string, v ...any)  { log.Infof(format, v...) }
func Warnf(format string, v ...any)  { log.Warnf(format, v...) }
func Errorf(format string, v ...any) { log.Errorf(format, v...) }

func Infow(msg string, kv ...any)  { log.Infow(msg, kv...) }
func Warnw(msg string, kv ...any)  { log.Warnw(msg, kv...) }
func Errorw(msg string, kv ...any) { log.Errorw(msg, kv...) }
