//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import "unsafe"

var (
	llvmAddFunction          func(m unsafe.Pointer, name string, fnTy unsafe.Pointer) unsafe.Pointer
	llvmGetNamedFunction     func(m unsafe.Pointer, name string) unsafe.Pointer
	llvmCountParams          func(fn unsafe.Pointer) uint32
	llvmGetParam             func(fn unsafe.Pointer, index uint32) unsafe.Pointer
	llvmGlobalGetValueType   func(global unsafe.Pointer) unsafe.Pointer
	llvmGetGlobalParent      func(global unsafe.Pointer) unsafe.Pointer
	llvmConstInt             func(ty unsafe.Pointer, n uint64, signExtend int32) unsafe.Pointer
	llvmConstReal            func(ty unsafe.Pointer, n float64) unsafe.Pointer
	llvmTypeOf               func(v unsafe.Pointer) unsafe.Pointer
	llvmSetValueName2        func(v unsafe.Pointer, name string, length uintptr)
	llvmGetValueName2        func(v unsafe.Pointer, length *uintptr) unsafe.Pointer
	llvmIsATerminatorInst    func(v unsafe.Pointer) unsafe.Pointer
	llvmGetInstructionParent func(inst unsafe.Pointer) unsafe.Pointer
)

func valueBindings() []binding {
	return []binding{
		{&llvmAddFunction, "LLVMAddFunction"},
		{&llvmGetNamedFunction, "LLVMGetNamedFunction"},
		{&llvmCountParams, "LLVMCountParams"},
		{&llvmGetParam, "LLVMGetParam"},
		{&llvmGlobalGetValueType, "LLVMGlobalGetValueType"},
		{&llvmGetGlobalParent, "LLVMGetGlobalParent"},
		{&llvmConstInt, "LLVMConstInt"},
		{&llvmConstReal, "LLVMConstReal"},
		{&llvmTypeOf, "LLVMTypeOf"},
		{&llvmSetValueName2, "LLVMSetValueName2"},
		{&llvmGetValueName2, "LLVMGetValueName2"},
		{&llvmIsATerminatorInst, "LLVMIsATerminatorInst"},
		{&llvmGetInstructionParent, "LLVMGetInstructionParent"},
	}
}

// AddFunction declares a function named name of type fnTy in m.
func AddFunction(m Module, name string, fnTy Type) Value {
	if m == nil || fnTy == nil || llvmAddFunction == nil || CheckName(name) != nil {
		return nil
	}
	return Value(llvmAddFunction(unsafe.Pointer(m), name, unsafe.Pointer(fnTy)))
}

// NamedFunction looks up a function of m by name.
func NamedFunction(m Module, name string) Value {
	if m == nil || llvmGetNamedFunction == nil || CheckName(name) != nil {
		return nil
	}
	return Value(llvmGetNamedFunction(unsafe.Pointer(m), name))
}

// CountParams returns the number of parameters of fn.
func CountParams(fn Value) int {
	if fn == nil || llvmCountParams == nil {
		return 0
	}
	return int(llvmCountParams(unsafe.Pointer(fn)))
}

// Param returns parameter index of fn. Out of range indices return nil.
func Param(fn Value, index int) Value {
	if fn == nil || llvmGetParam == nil || index < 0 || index >= CountParams(fn) {
		return nil
	}
	return Value(llvmGetParam(unsafe.Pointer(fn), uint32(index)))
}

// GlobalValueType returns the value type of a global; for functions this is
// the function type.
func GlobalValueType(global Value) Type {
	if global == nil || llvmGlobalGetValueType == nil {
		return nil
	}
	return Type(llvmGlobalGetValueType(unsafe.Pointer(global)))
}

// GlobalParent returns the module a global (e.g. a function) belongs to.
func GlobalParent(global Value) Module {
	if global == nil || llvmGetGlobalParent == nil {
		return nil
	}
	return Module(llvmGetGlobalParent(unsafe.Pointer(global)))
}

// ConstInt returns an integer constant of type ty.
func ConstInt(ty Type, n uint64, signExtend bool) Value {
	if ty == nil || llvmConstInt == nil {
		return nil
	}
	return Value(llvmConstInt(unsafe.Pointer(ty), n, llvmBool(signExtend)))
}

// ConstReal returns a floating point constant of type ty.
func ConstReal(ty Type, n float64) Value {
	if ty == nil || llvmConstReal == nil {
		return nil
	}
	return Value(llvmConstReal(unsafe.Pointer(ty), n))
}

// TypeOf returns the type of v.
func TypeOf(v Value) Type {
	if v == nil || llvmTypeOf == nil {
		return nil
	}
	return Type(llvmTypeOf(unsafe.Pointer(v)))
}

// SetValueName renames v.
func SetValueName(v Value, name string) {
	if v == nil || llvmSetValueName2 == nil || CheckName(name) != nil {
		return
	}
	llvmSetValueName2(unsafe.Pointer(v), name, uintptr(len(name)))
}

// ValueName returns the name of v.
func ValueName(v Value) string {
	if v == nil || llvmGetValueName2 == nil {
		return ""
	}
	var n uintptr
	p := llvmGetValueName2(unsafe.Pointer(v), &n)
	if p == nil || n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// IsTerminator reports whether v is a terminator instruction.
func IsTerminator(v Value) bool {
	if v == nil || llvmIsATerminatorInst == nil {
		return false
	}
	return llvmIsATerminatorInst(unsafe.Pointer(v)) != nil
}

// InstructionParent returns the block containing inst.
func InstructionParent(inst Value) BasicBlock {
	if inst == nil || llvmGetInstructionParent == nil {
		return nil
	}
	return BasicBlock(llvmGetInstructionParent(unsafe.Pointer(inst)))
}
