//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"unsafe"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// CreateBasicBlock appends a block named name to fn. The block is entered in
// the registry's reverse index so it can be found again from LLVM.
func CreateBasicBlock(r *registry.Registry, ctx Context, fn Value, name string) (Block, error) {
	l := begin(r, "CreateBasicBlock")
	defer l.release()

	l.checkName(name)
	c := pin(l, ctx)
	guardFunction(l, fn.Tag(), pin(l, fn))
	var bb llvmc.BasicBlock
	exclusive(l, fn, func(f llvmc.Value) {
		bb = llvmc.AppendBasicBlock(c, f, name)
	})
	return keep(l, bb)
}

// InsertBefore creates a block named name immediately before target.
func InsertBefore(r *registry.Registry, ctx Context, target Block, name string) (Block, error) {
	l := begin(r, "InsertBefore")
	defer l.release()

	l.checkName(name)
	c := pin(l, ctx)
	if t := pin(l, target); l.ok() {
		guardFunction(l, target.Tag(), llvmc.BasicBlockParent(t))
	}
	var bb llvmc.BasicBlock
	exclusive(l, target, func(t llvmc.BasicBlock) {
		bb = llvmc.InsertBasicBlock(c, t, name)
	})
	return keep(l, bb)
}

// PositionBuilder moves the insertion point of b to the end of block.
func PositionBuilder(r *registry.Registry, b Builder, block Block) error {
	l := begin(r, "PositionBuilder")
	defer l.release()

	bb := pin(l, block)
	exclusive(l, b, func(bp llvmc.Builder) {
		llvmc.PositionBuilderAtEnd(bp, bb)
	})
	return l.err
}

// blockHandle translates a block pointer LLVM returned into its handle.
func blockHandle(l *lease, from handle.Tag, bb llvmc.BasicBlock, missing error) (Block, error) {
	if l.err != nil {
		return Block{}, l.err
	}
	if bb == nil {
		l.fail(from, missing)
		return Block{}, l.err
	}
	tag, ok := l.r.BlockTag(unsafe.Pointer(bb))
	if !ok {
		l.fail(from, ErrBlockNotIndexed)
		return Block{}, l.err
	}
	h, ok := registry.Lookup[llvmc.BasicBlock](l.r, tag)
	if !ok {
		l.fail(tag, ErrStale)
		return Block{}, l.err
	}
	return h, nil
}

// CurrentBlock returns the block b is positioned in.
func CurrentBlock(r *registry.Registry, b Builder) (Block, error) {
	l := begin(r, "CurrentBlock")
	defer l.release()

	var bb llvmc.BasicBlock
	if bp := pin(l, b); l.ok() {
		bb = llvmc.InsertBlock(bp)
	}
	return blockHandle(l, b.Tag(), bb, ErrNoInsertBlock)
}

// NextBlock returns the block after block in its function.
func NextBlock(r *registry.Registry, block Block) (Block, error) {
	return step(r, "NextBlock", block, llvmc.NextBasicBlock)
}

// PreviousBlock returns the block before block in its function.
func PreviousBlock(r *registry.Registry, block Block) (Block, error) {
	return step(r, "PreviousBlock", block, llvmc.PreviousBasicBlock)
}

func step(r *registry.Registry, op string, block Block, f func(llvmc.BasicBlock) llvmc.BasicBlock) (Block, error) {
	l := begin(r, op)
	defer l.release()

	var bb llvmc.BasicBlock
	if cur := pin(l, block); l.ok() {
		bb = f(cur)
	}
	return blockHandle(l, block.Tag(), bb, ErrNoBlock)
}

// EntryBlock returns the first block of fn.
func EntryBlock(r *registry.Registry, fn Value) (Block, error) {
	l := begin(r, "EntryBlock")
	defer l.release()

	var bb llvmc.BasicBlock
	if f := pin(l, fn); l.ok() {
		bb = llvmc.EntryBasicBlock(f)
	}
	return blockHandle(l, fn.Tag(), bb, ErrNoBlock)
}

// BlockParent returns the function containing block, as a new handle.
func BlockParent(r *registry.Registry, block Block) (Value, error) {
	l := begin(r, "BlockParent")
	defer l.release()

	var fn llvmc.Value
	if bb := pin(l, block); l.ok() {
		fn = llvmc.BasicBlockParent(bb)
	}
	return keep(l, fn)
}

// DeleteBasicBlock removes block from its function and retires its tag. The
// reverse-index entry goes in the same step, so a block LLVM later allocates
// at the same address is never mistaken for this one.
func DeleteBasicBlock(r *registry.Registry, block Block) error {
	l := begin(r, "DeleteBasicBlock")
	defer l.release()

	if bb := pin(l, block); l.ok() {
		guardFunction(l, block.Tag(), llvmc.BasicBlockParent(bb))
	}
	if !l.ok() {
		return l.err
	}
	if !r.RemoveBlock(block.Tag(), func(ptr unsafe.Pointer) {
		llvmc.DeleteBasicBlock(llvmc.BasicBlock(ptr))
	}) {
		l.fail(block.Tag(), ErrStale)
	}
	return l.err
}
