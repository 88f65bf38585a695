//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import (
	"runtime"
	"unsafe"
)

// TypeKind mirrors LLVMTypeKind.
type TypeKind int32

// Type kinds.
const (
	VoidTypeKind TypeKind = iota
	HalfTypeKind
	FloatTypeKind
	DoubleTypeKind
	X86FP80TypeKind
	FP128TypeKind
	PPCFP128TypeKind
	LabelTypeKind
	IntegerTypeKind
	FunctionTypeKind
	StructTypeKind
	ArrayTypeKind
	PointerTypeKind
	VectorTypeKind
	MetadataTypeKind
)

var (
	llvmVoidTypeInContext    func(ctx unsafe.Pointer) unsafe.Pointer
	llvmInt1TypeInContext    func(ctx unsafe.Pointer) unsafe.Pointer
	llvmInt8TypeInContext    func(ctx unsafe.Pointer) unsafe.Pointer
	llvmInt16TypeInContext   func(ctx unsafe.Pointer) unsafe.Pointer
	llvmInt32TypeInContext   func(ctx unsafe.Pointer) unsafe.Pointer
	llvmInt64TypeInContext   func(ctx unsafe.Pointer) unsafe.Pointer
	llvmIntTypeInContext     func(ctx unsafe.Pointer, bits uint32) unsafe.Pointer
	llvmFloatTypeInContext   func(ctx unsafe.Pointer) unsafe.Pointer
	llvmDoubleTypeInContext  func(ctx unsafe.Pointer) unsafe.Pointer
	llvmPointerTypeInContext func(ctx unsafe.Pointer, addrSpace uint32) unsafe.Pointer
	llvmFunctionType         func(ret unsafe.Pointer, params unsafe.Pointer, count uint32, isVarArg int32) unsafe.Pointer
	llvmArrayType            func(elem unsafe.Pointer, count uint32) unsafe.Pointer
	llvmStructTypeInContext  func(ctx unsafe.Pointer, elems unsafe.Pointer, count uint32, packed int32) unsafe.Pointer
	llvmGetTypeKind          func(ty unsafe.Pointer) int32
	llvmGetIntTypeWidth      func(ty unsafe.Pointer) uint32
	llvmCountParamTypes      func(fnTy unsafe.Pointer) uint32
	llvmGetReturnType        func(fnTy unsafe.Pointer) unsafe.Pointer
)

func typeBindings() []binding {
	return []binding{
		{&llvmVoidTypeInContext, "LLVMVoidTypeInContext"},
		{&llvmInt1TypeInContext, "LLVMInt1TypeInContext"},
		{&llvmInt8TypeInContext, "LLVMInt8TypeInContext"},
		{&llvmInt16TypeInContext, "LLVMInt16TypeInContext"},
		{&llvmInt32TypeInContext, "LLVMInt32TypeInContext"},
		{&llvmInt64TypeInContext, "LLVMInt64TypeInContext"},
		{&llvmIntTypeInContext, "LLVMIntTypeInContext"},
		{&llvmFloatTypeInContext, "LLVMFloatTypeInContext"},
		{&llvmDoubleTypeInContext, "LLVMDoubleTypeInContext"},
		{&llvmPointerTypeInContext, "LLVMPointerTypeInContext"},
		{&llvmFunctionType, "LLVMFunctionType"},
		{&llvmArrayType, "LLVMArrayType"},
		{&llvmStructTypeInContext, "LLVMStructTypeInContext"},
		{&llvmGetTypeKind, "LLVMGetTypeKind"},
		{&llvmGetIntTypeWidth, "LLVMGetIntTypeWidth"},
		{&llvmCountParamTypes, "LLVMCountParamTypes"},
		{&llvmGetReturnType, "LLVMGetReturnType"},
	}
}

func contextType(fn func(unsafe.Pointer) unsafe.Pointer, ctx Context) Type {
	if ctx == nil || fn == nil {
		return nil
	}
	return Type(fn(unsafe.Pointer(ctx)))
}

// VoidType returns the void type of ctx.
func VoidType(ctx Context) Type { return contextType(llvmVoidTypeInContext, ctx) }

// Int1Type returns i1.
func Int1Type(ctx Context) Type { return contextType(llvmInt1TypeInContext, ctx) }

// Int8Type returns i8.
func Int8Type(ctx Context) Type { return contextType(llvmInt8TypeInContext, ctx) }

// Int16Type returns i16.
func Int16Type(ctx Context) Type { return contextType(llvmInt16TypeInContext, ctx) }

// Int32Type returns i32.
func Int32Type(ctx Context) Type { return contextType(llvmInt32TypeInContext, ctx) }

// Int64Type returns i64.
func Int64Type(ctx Context) Type { return contextType(llvmInt64TypeInContext, ctx) }

// FloatType returns the 32-bit IEEE type.
func FloatType(ctx Context) Type { return contextType(llvmFloatTypeInContext, ctx) }

// DoubleType returns the 64-bit IEEE type.
func DoubleType(ctx Context) Type { return contextType(llvmDoubleTypeInContext, ctx) }

// IntType returns an integer type of arbitrary width.
func IntType(ctx Context, bits uint32) Type {
	if ctx == nil || llvmIntTypeInContext == nil || bits == 0 {
		return nil
	}
	return Type(llvmIntTypeInContext(unsafe.Pointer(ctx), bits))
}

// PointerType returns the opaque pointer type in the given address space.
func PointerType(ctx Context, addrSpace uint32) Type {
	if ctx == nil || llvmPointerTypeInContext == nil {
		return nil
	}
	return Type(llvmPointerTypeInContext(unsafe.Pointer(ctx), addrSpace))
}

// FunctionType returns the type of functions taking params and returning ret.
func FunctionType(ret Type, params []Type, variadic bool) Type {
	if ret == nil || llvmFunctionType == nil {
		return nil
	}
	arr := pointerArray(params)
	ty := llvmFunctionType(unsafe.Pointer(ret), arrayBase(arr), uint32(len(arr)), llvmBool(variadic))
	runtime.KeepAlive(arr)
	return Type(ty)
}

// ArrayType returns [count x elem].
func ArrayType(elem Type, count uint32) Type {
	if elem == nil || llvmArrayType == nil {
		return nil
	}
	return Type(llvmArrayType(unsafe.Pointer(elem), count))
}

// StructType returns an anonymous struct type with the given fields.
func StructType(ctx Context, fields []Type, packed bool) Type {
	if ctx == nil || llvmStructTypeInContext == nil {
		return nil
	}
	arr := pointerArray(fields)
	ty := llvmStructTypeInContext(unsafe.Pointer(ctx), arrayBase(arr), uint32(len(arr)), llvmBool(packed))
	runtime.KeepAlive(arr)
	return Type(ty)
}

// GetTypeKind returns the kind of ty.
func GetTypeKind(ty Type) TypeKind {
	if ty == nil || llvmGetTypeKind == nil {
		return VoidTypeKind
	}
	return TypeKind(llvmGetTypeKind(unsafe.Pointer(ty)))
}

// IntTypeWidth returns the bit width of an integer type.
func IntTypeWidth(ty Type) uint32 {
	if ty == nil || llvmGetIntTypeWidth == nil {
		return 0
	}
	return llvmGetIntTypeWidth(unsafe.Pointer(ty))
}

// CountParamTypes returns the number of parameters of a function type.
func CountParamTypes(fnTy Type) int {
	if fnTy == nil || llvmCountParamTypes == nil {
		return 0
	}
	return int(llvmCountParamTypes(unsafe.Pointer(fnTy)))
}

// ReturnType returns the return type of a function type.
func ReturnType(fnTy Type) Type {
	if fnTy == nil || llvmGetReturnType == nil {
		return nil
	}
	return Type(llvmGetReturnType(unsafe.Pointer(fnTy)))
}
