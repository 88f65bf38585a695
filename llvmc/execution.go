//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import (
	"sync"
	"unsafe"
)

var (
	llvmLinkInMCJIT                    func()
	llvmCreateExecutionEngineForModule func(outEE *unsafe.Pointer, m unsafe.Pointer, outErr *unsafe.Pointer) int32
	llvmCreateJITCompilerForModule     func(outJIT *unsafe.Pointer, m unsafe.Pointer, optLevel uint32, outErr *unsafe.Pointer) int32
	llvmDisposeExecutionEngine         func(ee unsafe.Pointer)
	llvmGetFunctionAddress             func(ee unsafe.Pointer, name string) uint64
	llvmGetGlobalValueAddress          func(ee unsafe.Pointer, name string) uint64

	linkOnce sync.Once
)

func executionBindings() []binding {
	return []binding{
		{&llvmLinkInMCJIT, "LLVMLinkInMCJIT"},
		{&llvmCreateExecutionEngineForModule, "LLVMCreateExecutionEngineForModule"},
		{&llvmCreateJITCompilerForModule, "LLVMCreateJITCompilerForModule"},
		{&llvmDisposeExecutionEngine, "LLVMDisposeExecutionEngine"},
		{&llvmGetFunctionAddress, "LLVMGetFunctionAddress"},
		{&llvmGetGlobalValueAddress, "LLVMGetGlobalValueAddress"},
	}
}

// LinkInMCJIT forces MCJIT to be registered as the JIT implementation.
// It is safe to call multiple times.
func LinkInMCJIT() {
	linkOnce.Do(func() {
		if llvmLinkInMCJIT != nil {
			llvmLinkInMCJIT()
		}
	})
}

// CreateExecutionEngine builds an execution engine for m, letting LLVM pick
// the best available implementation. On success the engine owns m.
func CreateExecutionEngine(m Module) (ExecutionEngine, error) {
	if m == nil || llvmCreateExecutionEngineForModule == nil {
		return nil, ErrNotLoaded
	}
	var ee, msg unsafe.Pointer
	if llvmCreateExecutionEngineForModule(&ee, unsafe.Pointer(m), &msg) != 0 || ee == nil {
		return nil, newMessageError("LLVMCreateExecutionEngineForModule", msg)
	}
	return ExecutionEngine(ee), nil
}

// CreateJITCompiler builds a JIT-compiling execution engine for m at the
// given optimization level (0-3). On success the engine owns m.
func CreateJITCompiler(m Module, optLevel uint32) (ExecutionEngine, error) {
	if m == nil || llvmCreateJITCompilerForModule == nil {
		return nil, ErrNotLoaded
	}
	var ee, msg unsafe.Pointer
	if llvmCreateJITCompilerForModule(&ee, unsafe.Pointer(m), optLevel, &msg) != 0 || ee == nil {
		return nil, newMessageError("LLVMCreateJITCompilerForModule", msg)
	}
	return ExecutionEngine(ee), nil
}

// DisposeExecutionEngine destroys ee together with every module it owns.
// Safe to call with nil.
func DisposeExecutionEngine(ee ExecutionEngine) {
	if ee == nil || llvmDisposeExecutionEngine == nil {
		return
	}
	llvmDisposeExecutionEngine(unsafe.Pointer(ee))
}

// FunctionAddress compiles (if needed) and returns the native address of the
// named function. Zero means the symbol was not found.
func FunctionAddress(ee ExecutionEngine, name string) uint64 {
	if ee == nil || llvmGetFunctionAddress == nil || CheckName(name) != nil {
		return 0
	}
	return llvmGetFunctionAddress(unsafe.Pointer(ee), name)
}

// GlobalValueAddress returns the native address of the named global.
// Zero means the symbol was not found.
func GlobalValueAddress(ee ExecutionEngine, name string) uint64 {
	if ee == nil || llvmGetGlobalValueAddress == nil || CheckName(name) != nil {
		return 0
	}
	return llvmGetGlobalValueAddress(unsafe.Pointer(ee), name)
}
