//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// Opcode selects a binary instruction.
type Opcode = llvmc.Opcode

const (
	Add  = llvmc.OpAdd
	Sub  = llvmc.OpSub
	Mul  = llvmc.OpMul
	UDiv = llvmc.OpUDiv
	SDiv = llvmc.OpSDiv
	URem = llvmc.OpURem
	SRem = llvmc.OpSRem
	Shl  = llvmc.OpShl
	LShr = llvmc.OpLShr
	AShr = llvmc.OpAShr
	And  = llvmc.OpAnd
	Or   = llvmc.OpOr
	Xor  = llvmc.OpXor
	FAdd = llvmc.OpFAdd
	FSub = llvmc.OpFSub
	FMul = llvmc.OpFMul
	FDiv = llvmc.OpFDiv
	FRem = llvmc.OpFRem
)

// IntPredicate and RealPredicate select comparisons for ICmp and FCmp.
type (
	IntPredicate  = llvmc.IntPredicate
	RealPredicate = llvmc.RealPredicate
)

func emit(r *registry.Registry, op string, b Builder, operands []Value, name string, f func(llvmc.Builder, []llvmc.Value) llvmc.Value) (Value, error) {
	l := begin(r, op)
	defer l.release()

	l.checkName(name)
	vs := pinAll(l, operands)
	var v llvmc.Value
	exclusive(l, b, func(bp llvmc.Builder) {
		v = f(bp, vs)
	})
	return keep(l, v)
}

// BinaryOp emits lhs <op> rhs.
func BinaryOp(r *registry.Registry, b Builder, op Opcode, lhs, rhs Value, name string) (Value, error) {
	return emit(r, "BinaryOp", b, []Value{lhs, rhs}, name, func(bp llvmc.Builder, vs []llvmc.Value) llvmc.Value {
		return llvmc.BuildBinOp(bp, op, vs[0], vs[1], name)
	})
}

// Neg emits integer negation of v. Use FNeg for floating point.
func Neg(r *registry.Registry, b Builder, v Value, name string) (Value, error) {
	return emit(r, "Neg", b, []Value{v}, name, func(bp llvmc.Builder, vs []llvmc.Value) llvmc.Value {
		return llvmc.BuildNeg(bp, vs[0], name)
	})
}

// FNeg emits a floating point negation of v.
func FNeg(r *registry.Registry, b Builder, v Value, name string) (Value, error) {
	return emit(r, "FNeg", b, []Value{v}, name, func(bp llvmc.Builder, vs []llvmc.Value) llvmc.Value {
		return llvmc.BuildFNeg(bp, vs[0], name)
	})
}

// Not emits the bitwise complement of v.
func Not(r *registry.Registry, b Builder, v Value, name string) (Value, error) {
	return emit(r, "Not", b, []Value{v}, name, func(bp llvmc.Builder, vs []llvmc.Value) llvmc.Value {
		return llvmc.BuildNot(bp, vs[0], name)
	})
}

// ICmp emits an integer comparison yielding i1.
func ICmp(r *registry.Registry, b Builder, pred IntPredicate, lhs, rhs Value, name string) (Value, error) {
	return emit(r, "ICmp", b, []Value{lhs, rhs}, name, func(bp llvmc.Builder, vs []llvmc.Value) llvmc.Value {
		return llvmc.BuildICmp(bp, pred, vs[0], vs[1], name)
	})
}

// FCmp emits a floating point comparison yielding i1.
func FCmp(r *registry.Registry, b Builder, pred RealPredicate, lhs, rhs Value, name string) (Value, error) {
	return emit(r, "FCmp", b, []Value{lhs, rhs}, name, func(bp llvmc.Builder, vs []llvmc.Value) llvmc.Value {
		return llvmc.BuildFCmp(bp, pred, vs[0], vs[1], name)
	})
}

// Call emits a call to fn, whose function type is fnType, with args. Calls
// to void functions must pass an empty name.
func Call(r *registry.Registry, b Builder, fnType Type, fn Value, args []Value, name string) (Value, error) {
	l := begin(r, "Call")
	defer l.release()

	l.checkName(name)
	ft := pin(l, fnType)
	f := pin(l, fn)
	as := pinAll(l, args)
	var v llvmc.Value
	exclusive(l, b, func(bp llvmc.Builder) {
		v = llvmc.BuildCall(bp, ft, f, as, name)
	})
	return keep(l, v)
}
