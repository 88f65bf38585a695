//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import "unsafe"

var (
	llvmAppendBasicBlockInContext func(ctx, fn unsafe.Pointer, name string) unsafe.Pointer
	llvmInsertBasicBlockInContext func(ctx, before unsafe.Pointer, name string) unsafe.Pointer
	llvmDeleteBasicBlock          func(bb unsafe.Pointer)
	llvmGetNextBasicBlock         func(bb unsafe.Pointer) unsafe.Pointer
	llvmGetPreviousBasicBlock     func(bb unsafe.Pointer) unsafe.Pointer
	llvmGetBasicBlockParent       func(bb unsafe.Pointer) unsafe.Pointer
	llvmGetBasicBlockTerminator   func(bb unsafe.Pointer) unsafe.Pointer
	llvmGetBasicBlockName         func(bb unsafe.Pointer) unsafe.Pointer
	llvmGetEntryBasicBlock        func(fn unsafe.Pointer) unsafe.Pointer
	llvmCountBasicBlocks          func(fn unsafe.Pointer) uint32
)

func blockBindings() []binding {
	return []binding{
		{&llvmAppendBasicBlockInContext, "LLVMAppendBasicBlockInContext"},
		{&llvmInsertBasicBlockInContext, "LLVMInsertBasicBlockInContext"},
		{&llvmDeleteBasicBlock, "LLVMDeleteBasicBlock"},
		{&llvmGetNextBasicBlock, "LLVMGetNextBasicBlock"},
		{&llvmGetPreviousBasicBlock, "LLVMGetPreviousBasicBlock"},
		{&llvmGetBasicBlockParent, "LLVMGetBasicBlockParent"},
		{&llvmGetBasicBlockTerminator, "LLVMGetBasicBlockTerminator"},
		{&llvmGetBasicBlockName, "LLVMGetBasicBlockName"},
		{&llvmGetEntryBasicBlock, "LLVMGetEntryBasicBlock"},
		{&llvmCountBasicBlocks, "LLVMCountBasicBlocks"},
	}
}

// AppendBasicBlock appends a new block named name to the end of fn.
func AppendBasicBlock(ctx Context, fn Value, name string) BasicBlock {
	if ctx == nil || fn == nil || llvmAppendBasicBlockInContext == nil || CheckName(name) != nil {
		return nil
	}
	return BasicBlock(llvmAppendBasicBlockInContext(unsafe.Pointer(ctx), unsafe.Pointer(fn), name))
}

// InsertBasicBlock inserts a new block immediately before the given block.
func InsertBasicBlock(ctx Context, before BasicBlock, name string) BasicBlock {
	if ctx == nil || before == nil || llvmInsertBasicBlockInContext == nil || CheckName(name) != nil {
		return nil
	}
	return BasicBlock(llvmInsertBasicBlockInContext(unsafe.Pointer(ctx), unsafe.Pointer(before), name))
}

// DeleteBasicBlock removes bb from its function and frees it.
func DeleteBasicBlock(bb BasicBlock) {
	if bb == nil || llvmDeleteBasicBlock == nil {
		return
	}
	llvmDeleteBasicBlock(unsafe.Pointer(bb))
}

func blockStep(fn func(unsafe.Pointer) unsafe.Pointer, bb BasicBlock) BasicBlock {
	if bb == nil || fn == nil {
		return nil
	}
	return BasicBlock(fn(unsafe.Pointer(bb)))
}

// NextBasicBlock returns the block after bb in its function, or nil.
func NextBasicBlock(bb BasicBlock) BasicBlock {
	return blockStep(llvmGetNextBasicBlock, bb)
}

// PreviousBasicBlock returns the block before bb in its function, or nil.
func PreviousBasicBlock(bb BasicBlock) BasicBlock {
	return blockStep(llvmGetPreviousBasicBlock, bb)
}

// BasicBlockParent returns the function containing bb.
func BasicBlockParent(bb BasicBlock) Value {
	if bb == nil || llvmGetBasicBlockParent == nil {
		return nil
	}
	return Value(llvmGetBasicBlockParent(unsafe.Pointer(bb)))
}

// BasicBlockTerminator returns the terminator of bb, or nil if it has none yet.
func BasicBlockTerminator(bb BasicBlock) Value {
	if bb == nil || llvmGetBasicBlockTerminator == nil {
		return nil
	}
	return Value(llvmGetBasicBlockTerminator(unsafe.Pointer(bb)))
}

// BasicBlockName returns the name of bb.
func BasicBlockName(bb BasicBlock) string {
	if bb == nil || llvmGetBasicBlockName == nil {
		return ""
	}
	return goString(llvmGetBasicBlockName(unsafe.Pointer(bb)))
}

// EntryBasicBlock returns the first block of fn.
func EntryBasicBlock(fn Value) BasicBlock {
	if fn == nil || llvmGetEntryBasicBlock == nil || CountBasicBlocks(fn) == 0 {
		return nil
	}
	return BasicBlock(llvmGetEntryBasicBlock(unsafe.Pointer(fn)))
}

// CountBasicBlocks returns the number of blocks in fn.
func CountBasicBlocks(fn Value) int {
	if fn == nil || llvmCountBasicBlocks == nil {
		return 0
	}
	return int(llvmCountBasicBlocks(unsafe.Pointer(fn)))
}
