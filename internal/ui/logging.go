package ui

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type Logger struct {
	Debug bool
	z     *zap.SugaredLogger
}

// NewLogger builds the console logger: errors go to stderr, everything
// else to stdout. Debug messages are dropped unless debug is set.
func NewLogger(debug bool) *Logger {
	low := zapcore.InfoLevel
	if debug {
		low = zapcore.DebugLevel
	}

	stdout := zapcore.NewCore(consoleEncoder(os.Stdout), zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return low <= lvl && lvl < zapcore.ErrorLevel
		}))
	stderr := zapcore.NewCore(consoleEncoder(os.Stderr), zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		}))

	z := zap.New(zapcore.NewTee(stdout, stderr)).Named("tachi")
	return &Logger{Debug: debug, z: z.Sugar()}
}

// NewLoggerFrom wraps an existing zap logger, mostly for tests.
func NewLoggerFrom(z *zap.Logger) *Logger {
	return &Logger{
		Debug: z.Core().Enabled(zapcore.DebugLevel),
		z:     z.Sugar(),
	}
}

func consoleEncoder(f *os.File) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if term.IsTerminal(int(f.Fd())) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	}

	return zapcore.NewConsoleEncoder(ec)
}

func line(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.Debug {
		l.z.Debug(line(format, args))
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.z.Info(line(format, args))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.z.Warn(line(format, args))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.z.Error(line(format, args))
}

// Zap exposes the underlying logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	return l.z.Desugar()
}

func (l *Logger) Sync() error {
	return l.z.Sync()
}
