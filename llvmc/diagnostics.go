//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"
)

// DiagnosticSeverity mirrors LLVMDiagnosticSeverity.
type DiagnosticSeverity int32

// Severity levels, most severe first.
const (
	DiagnosticError DiagnosticSeverity = iota
	DiagnosticWarning
	DiagnosticRemark
	DiagnosticNote
)

// String returns the lower-case severity name.
func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticError:
		return "error"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticRemark:
		return "remark"
	default:
		return "note"
	}
}

// DiagnosticHandler receives every diagnostic LLVM reports for a context that
// has the trampoline installed.
type DiagnosticHandler func(severity DiagnosticSeverity, message string)

var (
	llvmContextSetDiagnosticHandler func(ctx unsafe.Pointer, handler uintptr, diagContext unsafe.Pointer)
	llvmGetDiagInfoDescription      func(di uintptr) unsafe.Pointer
	llvmGetDiagInfoSeverity         func(di uintptr) int32

	diagMu      sync.Mutex
	diagHandler DiagnosticHandler
	diagCBOnce  sync.Once
	diagCB      uintptr
)

func diagnosticBindings() []binding {
	return []binding{
		{&llvmContextSetDiagnosticHandler, "LLVMContextSetDiagnosticHandler"},
		{&llvmGetDiagInfoDescription, "LLVMGetDiagInfoDescription"},
		{&llvmGetDiagInfoSeverity, "LLVMGetDiagInfoSeverity"},
	}
}

// SetDiagnosticHandler sets the process-wide Go handler that receives
// diagnostics from every context with the trampoline installed.
// Pass nil to restore the default, which logs through Logger().
func SetDiagnosticHandler(h DiagnosticHandler) {
	diagMu.Lock()
	defer diagMu.Unlock()
	diagHandler = h
}

// InstallDiagnosticHandler routes the diagnostics of ctx to the Go handler
// set with SetDiagnosticHandler, or to Logger() while none is set. Contexts
// without it get LLVM's default, which prints to stderr and exits the process
// on errors.
func InstallDiagnosticHandler(ctx Context) {
	if ctx == nil || llvmContextSetDiagnosticHandler == nil {
		return
	}
	// purego callbacks are a limited resource; one trampoline serves all contexts.
	diagCBOnce.Do(func() {
		diagCB = purego.NewCallback(diagnosticTrampoline)
	})
	llvmContextSetDiagnosticHandler(unsafe.Pointer(ctx), diagCB, nil)
}

// diagnosticTrampoline is called by LLVM and forwards to the Go handler.
// Signature: void (*)(LLVMDiagnosticInfoRef, void *)
func diagnosticTrampoline(di uintptr, _ uintptr) {
	if llvmGetDiagInfoDescription == nil {
		return
	}
	severity := DiagnosticSeverity(llvmGetDiagInfoSeverity(di))
	msg := takeMessage(llvmGetDiagInfoDescription(di))
	deliverDiagnostic(severity, msg)
}

func deliverDiagnostic(severity DiagnosticSeverity, msg string) {
	diagMu.Lock()
	h := diagHandler
	diagMu.Unlock()

	if h == nil {
		h = LogDiagnostic
	}
	h(severity, msg)
}

// LogDiagnostic writes a diagnostic to Logger() at the zap level matching
// severity. It is the handler in effect while none is set.
func LogDiagnostic(severity DiagnosticSeverity, msg string) {
	fields := []zap.Field{zap.Stringer("severity", severity), zap.String("message", msg)}
	switch severity {
	case DiagnosticError:
		Logger().Error("llvm diagnostic", fields...)
	case DiagnosticWarning:
		Logger().Warn("llvm diagnostic", fields...)
	default:
		Logger().Debug("llvm diagnostic", fields...)
	}
}
