//go:build (darwin || freebsd || linux) && (amd64 || arm64)

// Package llvmc provides bindings to the LLVM C API, resolved from libLLVM at
// runtime with purego.
//
// Every LLVM object is exposed as a distinct opaque pointer type. None of
// these types carries ownership: the functions here are a thin, unchecked
// layer and the registry package is responsible for lifetimes. Functions
// follow LLVM's own failure convention and return a nil pointer when LLVM
// does, or when the library is not loaded.
package llvmc

import (
	"errors"
	"strings"
	"sync"
	"unsafe"

	"github.com/UnionCompilerDesign/safe-llvm/internal/bindings"
)

// Opaque LLVM object pointers.
type (
	// Context is an LLVMContextRef. Owns every module, type and value created in it.
	Context unsafe.Pointer
	// Module is an LLVMModuleRef.
	Module unsafe.Pointer
	// Type is an LLVMTypeRef.
	Type unsafe.Pointer
	// Value is an LLVMValueRef (functions, instructions, constants, parameters).
	Value unsafe.Pointer
	// BasicBlock is an LLVMBasicBlockRef.
	BasicBlock unsafe.Pointer
	// Builder is an LLVMBuilderRef.
	Builder unsafe.Pointer
	// ExecutionEngine is an LLVMExecutionEngineRef. Owns the modules bound to it.
	ExecutionEngine unsafe.Pointer
)

// ErrEmbeddedNUL is returned for names that cannot cross into C because they
// contain a NUL byte.
var ErrEmbeddedNUL = errors.New("llvmc: name contains NUL byte")

// ErrNotLoaded is returned when the bindings are used before Load succeeded.
var ErrNotLoaded = bindings.ErrNotLoaded

var (
	loadOnce sync.Once
	loadErr  error
)

// Load loads libLLVM and binds every required symbol. It is safe to call
// multiple times; the first result is returned on every call.
func Load() error {
	loadOnce.Do(func() {
		if err := bindings.Load(); err != nil {
			loadErr = err
			return
		}
		loadErr = registerBindings()
	})
	return loadErr
}

type binding struct {
	fptr any
	name string
}

func registerBindings() error {
	var errs []error
	for _, group := range [][]binding{
		coreBindings(),
		typeBindings(),
		valueBindings(),
		blockBindings(),
		builderBindings(),
		analysisBindings(),
		executionBindings(),
		diagnosticBindings(),
	} {
		for _, b := range group {
			if err := bindings.Bind(b.fptr, b.name); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// CheckName reports whether name can be passed to LLVM as a C string.
func CheckName(name string) error {
	if strings.IndexByte(name, 0) >= 0 {
		return ErrEmbeddedNUL
	}
	return nil
}

// goString copies a NUL-terminated C string.
func goString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// takeMessage copies an LLVM-allocated message and frees it.
func takeMessage(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	s := goString(p)
	if llvmDisposeMessage != nil {
		llvmDisposeMessage(p)
	}
	return s
}

func llvmBool(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// pointerArray lays out typed pointers as a contiguous C array. Callers pass
// arrayBase(arr) to LLVM and keep arr alive until the call returns.
func pointerArray[P ~unsafe.Pointer](ps []P) []unsafe.Pointer {
	arr := make([]unsafe.Pointer, len(ps))
	for i, p := range ps {
		arr[i] = unsafe.Pointer(p)
	}
	return arr
}

// arrayBase returns the address of the first element, or nil for an empty
// array; LLVM accepts NULL with a zero count.
func arrayBase(arr []unsafe.Pointer) unsafe.Pointer {
	if len(arr) == 0 {
		return nil
	}
	return unsafe.Pointer(&arr[0])
}
