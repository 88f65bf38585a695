//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package registry

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
)

// StoreBlock registers a freshly created basic block in the block table and
// the reverse index, under one lock.
func (r *Registry) StoreBlock(ptr unsafe.Pointer) (handle.Tag, bool) {
	cell, ok := r.newCell(handle.BasicBlock, ptr)
	if !ok {
		return handle.Tag{}, false
	}

	r.blockMu.Lock()
	defer r.blockMu.Unlock()

	tag := r.AllocateTag(handle.BasicBlock)
	r.tables[handle.BasicBlock].Store(tag.ID, cell)
	r.blocks[uintptr(ptr)] = tag
	r.log.Debug("stored block", zap.Stringer("tag", tag))
	return tag, true
}

// BlockTag translates a raw block pointer returned by LLVM back into its tag.
// It reports false for blocks that were never registered, such as blocks
// LLVM created on its own.
func (r *Registry) BlockTag(ptr unsafe.Pointer) (handle.Tag, bool) {
	if ptr == nil {
		return handle.Tag{}, false
	}
	r.blockMu.Lock()
	defer r.blockMu.Unlock()
	tag, ok := r.blocks[uintptr(ptr)]
	return tag, ok
}

// RemoveBlock runs del on the block's pointer under the cell's write lock and,
// under the same index lock, drops the reverse-index entry and tombstones the
// tag. A later block that LLVM happens to allocate at the same address can
// therefore never resolve to the stale tag. It reports false if tag is absent.
func (r *Registry) RemoveBlock(tag handle.Tag, del func(ptr unsafe.Pointer)) bool {
	if tag.Category != handle.BasicBlock {
		return false
	}

	r.blockMu.Lock()
	defer r.blockMu.Unlock()

	cell, ok := r.tables[handle.BasicBlock].Delete(tag.ID)
	if !ok {
		return false
	}
	var raw unsafe.Pointer
	cell.Retire(handle.BasicBlock, func(ptr unsafe.Pointer) {
		raw = ptr
		del(ptr)
	})
	if r.blocks[uintptr(raw)] == tag {
		delete(r.blocks, uintptr(raw))
	}
	r.log.Debug("removed block", zap.Stringer("tag", tag))
	cell.Release()
	return true
}

// unindexLocked drops every reverse-index entry pointing at tag, for
// disposals that never see the raw pointer. The caller holds blockMu.
func (r *Registry) unindexLocked(tag handle.Tag) {
	for ptr, t := range r.blocks {
		if t == tag {
			delete(r.blocks, ptr)
		}
	}
}
