//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the logger that receives LLVM diagnostics while no
// DiagnosticHandler is set. Unlike the other packages it is not a no-op by
// default: it writes warnings and errors to stderr, as LLVM itself would.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	logger.CompareAndSwap(nil, stderrLogger())
	return logger.Load()
}

func stderrLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zap.WarnLevel,
	)
	return zap.New(core).Named("llvm")
}

// SetLogger replaces Logger(). A nil l restores the stderr logger. Safe for
// concurrent use.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = stderrLogger()
	}
	logger.Store(l)
}
