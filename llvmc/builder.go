//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import (
	"runtime"
	"unsafe"
)

// Opcode mirrors the binary-operator subset of LLVMOpcode.
type Opcode int32

// Binary opcodes accepted by BuildBinOp.
const (
	OpAdd  Opcode = 8
	OpFAdd Opcode = 9
	OpSub  Opcode = 10
	OpFSub Opcode = 11
	OpMul  Opcode = 12
	OpFMul Opcode = 13
	OpUDiv Opcode = 14
	OpSDiv Opcode = 15
	OpFDiv Opcode = 16
	OpURem Opcode = 17
	OpSRem Opcode = 18
	OpFRem Opcode = 19
	OpShl  Opcode = 20
	OpLShr Opcode = 21
	OpAShr Opcode = 22
	OpAnd  Opcode = 23
	OpOr   Opcode = 24
	OpXor  Opcode = 25
)

// IntPredicate mirrors LLVMIntPredicate.
type IntPredicate int32

// Integer comparison predicates.
const (
	IntEQ IntPredicate = iota + 32
	IntNE
	IntUGT
	IntUGE
	IntULT
	IntULE
	IntSGT
	IntSGE
	IntSLT
	IntSLE
)

// RealPredicate mirrors LLVMRealPredicate.
type RealPredicate int32

// Floating point comparison predicates.
const (
	RealPredicateFalse RealPredicate = iota
	RealOEQ
	RealOGT
	RealOGE
	RealOLT
	RealOLE
	RealONE
	RealORD
	RealUNO
	RealUEQ
	RealUGT
	RealUGE
	RealULT
	RealULE
	RealUNE
	RealPredicateTrue
)

var (
	llvmCreateBuilderInContext func(ctx unsafe.Pointer) unsafe.Pointer
	llvmPositionBuilderAtEnd   func(b, bb unsafe.Pointer)
	llvmGetInsertBlock         func(b unsafe.Pointer) unsafe.Pointer

	llvmBuildRetVoid func(b unsafe.Pointer) unsafe.Pointer
	llvmBuildRet     func(b, v unsafe.Pointer) unsafe.Pointer
	llvmBuildBr      func(b, dest unsafe.Pointer) unsafe.Pointer
	llvmBuildCondBr  func(b, cond, then, els unsafe.Pointer) unsafe.Pointer

	llvmBuildAlloca func(b, ty unsafe.Pointer, name string) unsafe.Pointer
	llvmBuildStore  func(b, v, ptr unsafe.Pointer) unsafe.Pointer
	llvmBuildLoad2  func(b, ty, ptr unsafe.Pointer, name string) unsafe.Pointer
	llvmBuildCall2  func(b, fnTy, fn, args unsafe.Pointer, count uint32, name string) unsafe.Pointer

	llvmBuildBinOp func(b unsafe.Pointer, op int32, lhs, rhs unsafe.Pointer, name string) unsafe.Pointer
	llvmBuildNeg   func(b, v unsafe.Pointer, name string) unsafe.Pointer
	llvmBuildFNeg  func(b, v unsafe.Pointer, name string) unsafe.Pointer
	llvmBuildNot   func(b, v unsafe.Pointer, name string) unsafe.Pointer
	llvmBuildICmp  func(b unsafe.Pointer, pred int32, lhs, rhs unsafe.Pointer, name string) unsafe.Pointer
	llvmBuildFCmp  func(b unsafe.Pointer, pred int32, lhs, rhs unsafe.Pointer, name string) unsafe.Pointer
)

func builderBindings() []binding {
	return []binding{
		{&llvmCreateBuilderInContext, "LLVMCreateBuilderInContext"},
		{&llvmPositionBuilderAtEnd, "LLVMPositionBuilderAtEnd"},
		{&llvmGetInsertBlock, "LLVMGetInsertBlock"},
		{&llvmBuildRetVoid, "LLVMBuildRetVoid"},
		{&llvmBuildRet, "LLVMBuildRet"},
		{&llvmBuildBr, "LLVMBuildBr"},
		{&llvmBuildCondBr, "LLVMBuildCondBr"},
		{&llvmBuildAlloca, "LLVMBuildAlloca"},
		{&llvmBuildStore, "LLVMBuildStore"},
		{&llvmBuildLoad2, "LLVMBuildLoad2"},
		{&llvmBuildCall2, "LLVMBuildCall2"},
		{&llvmBuildBinOp, "LLVMBuildBinOp"},
		{&llvmBuildNeg, "LLVMBuildNeg"},
		{&llvmBuildFNeg, "LLVMBuildFNeg"},
		{&llvmBuildNot, "LLVMBuildNot"},
		{&llvmBuildICmp, "LLVMBuildICmp"},
		{&llvmBuildFCmp, "LLVMBuildFCmp"},
	}
}

// CreateBuilder creates an instruction builder for ctx.
func CreateBuilder(ctx Context) Builder {
	if ctx == nil || llvmCreateBuilderInContext == nil {
		return nil
	}
	return Builder(llvmCreateBuilderInContext(unsafe.Pointer(ctx)))
}

// PositionBuilderAtEnd moves the insertion point of b to the end of bb.
func PositionBuilderAtEnd(b Builder, bb BasicBlock) {
	if b == nil || bb == nil || llvmPositionBuilderAtEnd == nil {
		return
	}
	llvmPositionBuilderAtEnd(unsafe.Pointer(b), unsafe.Pointer(bb))
}

// InsertBlock returns the block b currently appends to, or nil if unpositioned.
func InsertBlock(b Builder) BasicBlock {
	if b == nil || llvmGetInsertBlock == nil {
		return nil
	}
	return BasicBlock(llvmGetInsertBlock(unsafe.Pointer(b)))
}

// BuildRetVoid emits "ret void".
func BuildRetVoid(b Builder) Value {
	if b == nil || llvmBuildRetVoid == nil {
		return nil
	}
	return Value(llvmBuildRetVoid(unsafe.Pointer(b)))
}

// BuildRet emits "ret v".
func BuildRet(b Builder, v Value) Value {
	if b == nil || v == nil || llvmBuildRet == nil {
		return nil
	}
	return Value(llvmBuildRet(unsafe.Pointer(b), unsafe.Pointer(v)))
}

// BuildBr emits an unconditional branch to dest.
func BuildBr(b Builder, dest BasicBlock) Value {
	if b == nil || dest == nil || llvmBuildBr == nil {
		return nil
	}
	return Value(llvmBuildBr(unsafe.Pointer(b), unsafe.Pointer(dest)))
}

// BuildCondBr emits a two-way branch on the i1 value cond.
func BuildCondBr(b Builder, cond Value, then, els BasicBlock) Value {
	if b == nil || cond == nil || then == nil || els == nil || llvmBuildCondBr == nil {
		return nil
	}
	return Value(llvmBuildCondBr(unsafe.Pointer(b), unsafe.Pointer(cond), unsafe.Pointer(then), unsafe.Pointer(els)))
}

// BuildAlloca reserves a stack slot of type ty.
func BuildAlloca(b Builder, ty Type, name string) Value {
	if b == nil || ty == nil || llvmBuildAlloca == nil || CheckName(name) != nil {
		return nil
	}
	return Value(llvmBuildAlloca(unsafe.Pointer(b), unsafe.Pointer(ty), name))
}

// BuildStore stores v through ptr.
func BuildStore(b Builder, v, ptr Value) Value {
	if b == nil || v == nil || ptr == nil || llvmBuildStore == nil {
		return nil
	}
	return Value(llvmBuildStore(unsafe.Pointer(b), unsafe.Pointer(v), unsafe.Pointer(ptr)))
}

// BuildLoad loads a value of type ty through ptr.
func BuildLoad(b Builder, ty Type, ptr Value, name string) Value {
	if b == nil || ty == nil || ptr == nil || llvmBuildLoad2 == nil || CheckName(name) != nil {
		return nil
	}
	return Value(llvmBuildLoad2(unsafe.Pointer(b), unsafe.Pointer(ty), unsafe.Pointer(ptr), name))
}

// BuildCall calls fn, whose type is fnTy, with args.
func BuildCall(b Builder, fnTy Type, fn Value, args []Value, name string) Value {
	if b == nil || fnTy == nil || fn == nil || llvmBuildCall2 == nil || CheckName(name) != nil {
		return nil
	}
	arr := pointerArray(args)
	v := llvmBuildCall2(unsafe.Pointer(b), unsafe.Pointer(fnTy), unsafe.Pointer(fn), arrayBase(arr), uint32(len(arr)), name)
	runtime.KeepAlive(arr)
	return Value(v)
}

// BuildBinOp emits a binary arithmetic or bitwise instruction.
func BuildBinOp(b Builder, op Opcode, lhs, rhs Value, name string) Value {
	if b == nil || lhs == nil || rhs == nil || llvmBuildBinOp == nil || CheckName(name) != nil {
		return nil
	}
	return Value(llvmBuildBinOp(unsafe.Pointer(b), int32(op), unsafe.Pointer(lhs), unsafe.Pointer(rhs), name))
}

func buildUnary(fn func(b, v unsafe.Pointer, name string) unsafe.Pointer, b Builder, v Value, name string) Value {
	if b == nil || v == nil || fn == nil || CheckName(name) != nil {
		return nil
	}
	return Value(fn(unsafe.Pointer(b), unsafe.Pointer(v), name))
}

// BuildNeg emits integer negation.
func BuildNeg(b Builder, v Value, name string) Value { return buildUnary(llvmBuildNeg, b, v, name) }

// BuildFNeg emits floating point negation.
func BuildFNeg(b Builder, v Value, name string) Value { return buildUnary(llvmBuildFNeg, b, v, name) }

// BuildNot emits bitwise complement.
func BuildNot(b Builder, v Value, name string) Value { return buildUnary(llvmBuildNot, b, v, name) }

// BuildICmp emits an integer comparison producing i1.
func BuildICmp(b Builder, pred IntPredicate, lhs, rhs Value, name string) Value {
	if b == nil || lhs == nil || rhs == nil || llvmBuildICmp == nil || CheckName(name) != nil {
		return nil
	}
	return Value(llvmBuildICmp(unsafe.Pointer(b), int32(pred), unsafe.Pointer(lhs), unsafe.Pointer(rhs), name))
}

// BuildFCmp emits a floating point comparison producing i1.
func BuildFCmp(b Builder, pred RealPredicate, lhs, rhs Value, name string) Value {
	if b == nil || lhs == nil || rhs == nil || llvmBuildFCmp == nil || CheckName(name) != nil {
		return nil
	}
	return Value(llvmBuildFCmp(unsafe.Pointer(b), int32(pred), unsafe.Pointer(lhs), unsafe.Pointer(rhs), name))
}
