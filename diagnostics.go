//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package safellvm

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/UnionCompilerDesign/safe-llvm/ir"
	"github.com/UnionCompilerDesign/safe-llvm/jit"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// Severity is the severity of an LLVM diagnostic.
type Severity = llvmc.DiagnosticSeverity

// Severity levels matching LLVMDiagnosticSeverity.
const (
	SeverityError   = llvmc.DiagnosticError
	SeverityWarning = llvmc.DiagnosticWarning
	SeverityRemark  = llvmc.DiagnosticRemark
	SeverityNote    = llvmc.DiagnosticNote
)

// DiagnosticCallback is called for each diagnostic LLVM reports on a context
// created through ir.CreateContext.
type DiagnosticCallback func(severity Severity, message string)

var (
	logger atomic.Pointer[zap.Logger]

	diagMu       sync.Mutex
	diagCallback DiagnosticCallback
	diagOnce     sync.Once
)

// Logger returns the package's default logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	logger.CompareAndSwap(nil, zap.NewNop())
	return logger.Load()
}

// SetLogger sets the logger of this package and of registry, ir, jit and
// llvmc. LLVM diagnostics go to it, named "llvm", unless a
// DiagnosticCallback is set. Until it is called they go to stderr. Call it
// before creating registries and engines; existing ones keep their logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
	registry.SetLogger(l.Named("registry"))
	ir.SetLogger(l.Named("ir"))
	jit.SetLogger(l.Named("jit"))
	llvmc.SetLogger(l.Named("llvm"))
}

// SetDiagnosticCallback routes LLVM diagnostics to cb instead of the logger.
// Pass nil to restore logging.
func SetDiagnosticCallback(cb DiagnosticCallback) {
	diagMu.Lock()
	defer diagMu.Unlock()
	diagCallback = cb
}

func installDiagnostics() {
	diagOnce.Do(func() {
		llvmc.SetDiagnosticHandler(dispatchDiagnostic)
	})
}

// dispatchDiagnostic runs on whatever goroutine LLVM reported from.
func dispatchDiagnostic(severity Severity, message string) {
	diagMu.Lock()
	cb := diagCallback
	diagMu.Unlock()

	if cb != nil {
		cb(severity, message)
		return
	}
	llvmc.LogDiagnostic(severity, message)
}
