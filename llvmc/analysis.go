//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import "unsafe"

// LLVMReturnStatusAction: report failures through the return value only.
const returnStatusAction = 2

var (
	llvmVerifyModule   func(m unsafe.Pointer, action int32, outMsg *unsafe.Pointer) int32
	llvmVerifyFunction func(fn unsafe.Pointer, action int32) int32
)

func analysisBindings() []binding {
	return []binding{
		{&llvmVerifyModule, "LLVMVerifyModule"},
		{&llvmVerifyFunction, "LLVMVerifyFunction"},
	}
}

// VerifyModule checks m for structural errors. On failure the returned
// *MessageError carries LLVM's description of every problem found.
func VerifyModule(m Module) error {
	if m == nil || llvmVerifyModule == nil {
		return ErrNotLoaded
	}
	var msg unsafe.Pointer
	broken := llvmVerifyModule(unsafe.Pointer(m), returnStatusAction, &msg)
	if broken == 0 {
		// LLVM allocates an empty message even on success.
		takeMessage(msg)
		return nil
	}
	return newMessageError("LLVMVerifyModule", msg)
}

// VerifyFunction reports whether fn is well formed.
func VerifyFunction(fn Value) bool {
	if fn == nil || llvmVerifyFunction == nil {
		return false
	}
	return llvmVerifyFunction(unsafe.Pointer(fn), returnStatusAction) == 0
}
