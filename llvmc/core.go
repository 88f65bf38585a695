//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import "unsafe"

var (
	llvmContextCreate  func() unsafe.Pointer
	llvmContextDispose func(ctx unsafe.Pointer)
	llvmDisposeMessage func(msg unsafe.Pointer)

	llvmModuleCreateWithNameInContext func(name string, ctx unsafe.Pointer) unsafe.Pointer
	llvmPrintModuleToString           func(m unsafe.Pointer) unsafe.Pointer
	llvmPrintModuleToFile             func(m unsafe.Pointer, filename string, errMsg *unsafe.Pointer) int32
	llvmSetTarget                     func(m unsafe.Pointer, triple string)
	llvmGetTarget                     func(m unsafe.Pointer) unsafe.Pointer
	llvmGetDefaultTargetTriple        func() unsafe.Pointer
	llvmGetModuleContext              func(m unsafe.Pointer) unsafe.Pointer
)

func coreBindings() []binding {
	return []binding{
		{&llvmContextCreate, "LLVMContextCreate"},
		{&llvmContextDispose, "LLVMContextDispose"},
		{&llvmDisposeMessage, "LLVMDisposeMessage"},
		{&llvmModuleCreateWithNameInContext, "LLVMModuleCreateWithNameInContext"},
		{&llvmPrintModuleToString, "LLVMPrintModuleToString"},
		{&llvmPrintModuleToFile, "LLVMPrintModuleToFile"},
		{&llvmSetTarget, "LLVMSetTarget"},
		{&llvmGetTarget, "LLVMGetTarget"},
		{&llvmGetDefaultTargetTriple, "LLVMGetDefaultTargetTriple"},
		{&llvmGetModuleContext, "LLVMGetModuleContext"},
	}
}

// ContextCreate creates a new LLVM context.
// The context must be released exactly once with ContextDispose.
func ContextCreate() Context {
	if llvmContextCreate == nil {
		return nil
	}
	return Context(llvmContextCreate())
}

// ContextDispose destroys a context and everything it owns.
// Safe to call with nil.
func ContextDispose(ctx Context) {
	if ctx == nil || llvmContextDispose == nil {
		return
	}
	llvmContextDispose(unsafe.Pointer(ctx))
}

// ModuleCreateWithName creates an empty module owned by ctx.
func ModuleCreateWithName(name string, ctx Context) Module {
	if ctx == nil || llvmModuleCreateWithNameInContext == nil || CheckName(name) != nil {
		return nil
	}
	return Module(llvmModuleCreateWithNameInContext(name, unsafe.Pointer(ctx)))
}

// ModuleContext returns the context that owns m.
func ModuleContext(m Module) Context {
	if m == nil || llvmGetModuleContext == nil {
		return nil
	}
	return Context(llvmGetModuleContext(unsafe.Pointer(m)))
}

// PrintModuleToString renders m in textual IR form.
func PrintModuleToString(m Module) string {
	if m == nil || llvmPrintModuleToString == nil {
		return ""
	}
	return takeMessage(llvmPrintModuleToString(unsafe.Pointer(m)))
}

// PrintModuleToFile writes m in textual IR form to filename.
func PrintModuleToFile(m Module, filename string) error {
	if m == nil || llvmPrintModuleToFile == nil {
		return ErrNotLoaded
	}
	if err := CheckName(filename); err != nil {
		return err
	}
	var msg unsafe.Pointer
	if llvmPrintModuleToFile(unsafe.Pointer(m), filename, &msg) != 0 {
		return newMessageError("LLVMPrintModuleToFile", msg)
	}
	return nil
}

// SetTarget sets the target triple of m.
func SetTarget(m Module, triple string) {
	if m == nil || llvmSetTarget == nil || CheckName(triple) != nil {
		return
	}
	llvmSetTarget(unsafe.Pointer(m), triple)
}

// Target returns the target triple of m.
func Target(m Module) string {
	if m == nil || llvmGetTarget == nil {
		return ""
	}
	// Owned by the module; not freed.
	return goString(llvmGetTarget(unsafe.Pointer(m)))
}

// DefaultTargetTriple returns the triple of the host LLVM was built for.
func DefaultTargetTriple() string {
	if llvmGetDefaultTargetTriple == nil {
		return ""
	}
	return takeMessage(llvmGetDefaultTargetTriple())
}
