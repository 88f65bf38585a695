//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

func contextType(r *registry.Registry, op string, ctx Context, f func(llvmc.Context) llvmc.Type) (Type, error) {
	l := begin(r, op)
	defer l.release()

	c := pin(l, ctx)
	var ty llvmc.Type
	if l.ok() {
		ty = f(c)
	}
	return keep(l, ty)
}

// VoidType returns the void type of ctx.
func VoidType(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "VoidType", ctx, llvmc.VoidType)
}

// IntType returns the integer type of the given bit width.
func IntType(r *registry.Registry, ctx Context, bits uint32) (Type, error) {
	return contextType(r, "IntType", ctx, func(c llvmc.Context) llvmc.Type {
		return llvmc.IntType(c, bits)
	})
}

// Int1Type returns the boolean type i1.
func Int1Type(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "Int1Type", ctx, llvmc.Int1Type)
}

// Int8Type returns i8.
func Int8Type(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "Int8Type", ctx, llvmc.Int8Type)
}

// Int16Type returns i16.
func Int16Type(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "Int16Type", ctx, llvmc.Int16Type)
}

// Int32Type returns i32, the representation of enum types.
func Int32Type(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "Int32Type", ctx, llvmc.Int32Type)
}

// Int64Type returns i64.
func Int64Type(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "Int64Type", ctx, llvmc.Int64Type)
}

// FloatType returns the 32-bit IEEE float type.
func FloatType(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "FloatType", ctx, llvmc.FloatType)
}

// DoubleType returns the 64-bit IEEE float type.
func DoubleType(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "DoubleType", ctx, llvmc.DoubleType)
}

// PointerType returns the opaque pointer type in address space 0.
func PointerType(r *registry.Registry, ctx Context) (Type, error) {
	return contextType(r, "PointerType", ctx, func(c llvmc.Context) llvmc.Type {
		return llvmc.PointerType(c, 0)
	})
}

func pinAll[P handle.Pointer](l *lease, hs []registry.Handle[P]) []P {
	out := make([]P, 0, len(hs))
	for _, h := range hs {
		out = append(out, pin(l, h))
	}
	return out
}

// FunctionType returns the type of functions taking params and returning ret.
func FunctionType(r *registry.Registry, ret Type, params []Type, variadic bool) (Type, error) {
	l := begin(r, "FunctionType")
	defer l.release()

	rt := pin(l, ret)
	ps := pinAll(l, params)
	var ty llvmc.Type
	if l.ok() {
		ty = llvmc.FunctionType(rt, ps, variadic)
	}
	return keep(l, ty)
}

// ArrayType returns the type [count x elem].
func ArrayType(r *registry.Registry, elem Type, count uint32) (Type, error) {
	l := begin(r, "ArrayType")
	defer l.release()

	et := pin(l, elem)
	var ty llvmc.Type
	if l.ok() {
		ty = llvmc.ArrayType(et, count)
	}
	return keep(l, ty)
}

// StructType returns a literal struct type with the given fields.
func StructType(r *registry.Registry, ctx Context, fields []Type, packed bool) (Type, error) {
	l := begin(r, "StructType")
	defer l.release()

	c := pin(l, ctx)
	fs := pinAll(l, fields)
	var ty llvmc.Type
	if l.ok() {
		ty = llvmc.StructType(c, fs, packed)
	}
	return keep(l, ty)
}

// TypeOf returns the type of v.
func TypeOf(r *registry.Registry, v Value) (Type, error) {
	l := begin(r, "TypeOf")
	defer l.release()

	val := pin(l, v)
	var ty llvmc.Type
	if l.ok() {
		ty = llvmc.TypeOf(val)
	}
	return keep(l, ty)
}
