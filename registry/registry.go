//go:build (darwin || freebsd || linux) && (amd64 || arm64)

// Package registry stores foreign LLVM pointers behind opaque tags.
//
// A Registry keeps one table per handle.Category, each mapping tag ids to a
// shared *handle.Cell, plus three side tables: a reverse index from raw
// basic-block pointers to tags, enum metadata keyed by type tag, and the set
// of modules sealed by an execution engine.
//
// Lookups never take a registry-wide lock. A successful Get returns a
// retained cell; the caller releases it when done. Only the cell's own lock
// is held while a callback runs.
//
// Tags come from one process-wide counter, so a tag issued by one registry
// is never present in another.
//
// Lock order: the block-index lock is always taken before any cell lock.
// Registry methods are never called from inside a cell callback, except
// Sealed and SealedAddr, which take no lock.
package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/internal/handles"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
)

var (
	// ErrClosed is returned by operations on a closed registry.
	ErrClosed = errors.New("registry: closed")
	// ErrNotFound is returned when a tag is not present in the registry.
	ErrNotFound = errors.New("registry: tag not found")
	// ErrWrongCategory is returned when a tag of one category is used where another is required.
	ErrWrongCategory = errors.New("registry: wrong category")
	// ErrSealed is returned by BindModule for a module that is already bound.
	ErrSealed = errors.New("registry: module already bound")
)

// tags issues the ids of every registry in the process.
var tags handle.Allocator

// Releaser releases the native resource behind an owning cell. It is called
// exactly once per Context and ExecutionEngine, and never for alias
// categories.
type Releaser interface {
	Release(c handle.Category, ptr unsafe.Pointer)
}

// ReleaserFunc adapts a function to the Releaser interface.
type ReleaserFunc func(c handle.Category, ptr unsafe.Pointer)

// Release calls f(c, ptr).
func (f ReleaserFunc) Release(c handle.Category, ptr unsafe.Pointer) {
	f(c, ptr)
}

// llvmReleaser destroys contexts and execution engines through LLVM.
type llvmReleaser struct{}

func (llvmReleaser) Release(c handle.Category, ptr unsafe.Pointer) {
	switch c {
	case handle.Context:
		llvmc.ContextDispose(llvmc.Context(ptr))
	case handle.ExecutionEngine:
		llvmc.DisposeExecutionEngine(llvmc.ExecutionEngine(ptr))
	}
}

// Options configures a Registry.
type Options struct {
	// Logger receives debug records for stores, misses and disposals.
	// Defaults to Logger().
	Logger *zap.Logger

	// Releaser destroys owning objects. Defaults to the LLVM releaser.
	Releaser Releaser
}

// Option is a functional option for configuring a registry.
type Option func(*Options)

// WithLogger sets the registry's logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithReleaser replaces the function that destroys owning objects.
func WithReleaser(r Releaser) Option {
	return func(o *Options) {
		o.Releaser = r
	}
}

// Registry is the categorized collection of live foreign objects.
// Thread-safe.
type Registry struct {
	issued atomic.Uint64
	tables [handle.NumCategories]handles.Table[*handle.Cell]

	blockMu sync.Mutex
	blocks  map[uintptr]handle.Tag

	enumMu sync.RWMutex
	enums  map[handle.Tag]*EnumInfo

	sealed       sync.Map // map[handle.Tag]uintptr
	sealedByAddr sync.Map // map[uintptr]handle.Tag

	releaser Releaser
	log      *zap.Logger
	closed   atomic.Bool
}

// New creates an empty registry.
func New(options ...Option) *Registry {
	opts := &Options{}
	for _, opt := range options {
		opt(opts)
	}
	if opts.Logger == nil {
		opts.Logger = Logger()
	}
	if opts.Releaser == nil {
		opts.Releaser = llvmReleaser{}
	}
	return &Registry{
		blocks:   make(map[uintptr]handle.Tag),
		enums:    make(map[handle.Tag]*EnumInfo),
		releaser: opts.Releaser,
		log:      opts.Logger,
	}
}

// AllocateTag reserves a fresh tag without storing anything under it.
// Tags are unique across all categories and all registries.
func (r *Registry) AllocateTag(c handle.Category) handle.Tag {
	r.issued.Add(1)
	return tags.Next(c)
}

// Store wraps ptr in a cell of category c and returns its new tag.
// It reports false iff ptr is nil (or c is invalid, or r is closed).
func (r *Registry) Store(c handle.Category, ptr unsafe.Pointer) (handle.Tag, bool) {
	cell, ok := r.newCell(c, ptr)
	if !ok {
		return handle.Tag{}, false
	}
	tag := r.AllocateTag(c)
	r.tables[c].Store(tag.ID, cell)
	r.log.Debug("stored handle", zap.Stringer("tag", tag))
	return tag, true
}

func (r *Registry) newCell(c handle.Category, ptr unsafe.Pointer) (*handle.Cell, bool) {
	if r.closed.Load() {
		r.log.Debug("store on closed registry", zap.Stringer("category", c))
		return nil, false
	}
	var release handle.ReleaseFunc
	if c.Owning() {
		release = func(p unsafe.Pointer) {
			r.log.Debug("releasing owning handle", zap.Stringer("category", c))
			r.releaser.Release(c, p)
		}
	}
	cell, err := handle.NewCell(c, ptr, release)
	if err != nil {
		r.log.Debug("store rejected", zap.Stringer("category", c), zap.Error(err))
		return nil, false
	}
	return cell, true
}

// Get returns the cell stored under tag with an extra reference the caller
// must Release. It reports false if tag is absent: already disposed, never
// issued, or issued by another registry.
func (r *Registry) Get(tag handle.Tag) (*handle.Cell, bool) {
	if !tag.Category.Valid() {
		return nil, false
	}
	cell, ok := r.tables[tag.Category].Load(tag.ID)
	if !ok || !cell.Retain() {
		return nil, false
	}
	return cell, true
}

// Contains reports whether tag is live in r.
func (r *Registry) Contains(tag handle.Tag) bool {
	cell, ok := r.Get(tag)
	if ok {
		cell.Release()
	}
	return ok
}

// Read runs f on the pointer stored under tag while holding the cell's read
// lock. It reports false if tag is absent. Like handle.Cell.Read it panics
// if want differs from the stored category or the cell is poisoned.
func (r *Registry) Read(tag handle.Tag, want handle.Category, f func(ptr unsafe.Pointer)) bool {
	cell, ok := r.Get(tag)
	if !ok {
		return false
	}
	defer cell.Release()
	cell.Read(want, f)
	return true
}

// Write is Read with the cell's exclusive lock.
func (r *Registry) Write(tag handle.Tag, want handle.Category, f func(ptr unsafe.Pointer)) bool {
	cell, ok := r.Get(tag)
	if !ok {
		return false
	}
	defer cell.Release()
	cell.Write(want, f)
	return true
}

// Dispose removes tag and drops the registry's reference to its cell. The
// native object is released once every outstanding Get has been released,
// and only for owning categories. It reports false if tag was absent.
func (r *Registry) Dispose(tag handle.Tag) bool {
	if !tag.Category.Valid() {
		return false
	}
	if tag.Category == handle.BasicBlock {
		r.blockMu.Lock()
		defer r.blockMu.Unlock()
	}
	cell, ok := r.tables[tag.Category].Delete(tag.ID)
	if !ok {
		return false
	}
	switch tag.Category {
	case handle.BasicBlock:
		r.unindexLocked(tag)
	case handle.Module:
		r.unseal(tag)
	case handle.Type:
		r.enumMu.Lock()
		delete(r.enums, tag)
		r.enumMu.Unlock()
	}
	r.log.Debug("disposed handle", zap.Stringer("tag", tag))
	cell.Release()
	return true
}

// Len returns the number of live tags of category c.
func (r *Registry) Len(c handle.Category) int {
	if !c.Valid() {
		return 0
	}
	return r.tables[c].Count()
}

// Seal marks a module as bound to an execution engine. Structural changes to
// a sealed module are refused by the construction layer. It reports false if
// module is absent or already sealed.
func (r *Registry) Seal(module handle.Tag) bool {
	return r.BindModule(module, nil) == nil
}

// BindModule seals the module stored under tag and, still under the module's
// exclusive lock, passes its pointer to bind. Of concurrent binders exactly
// one runs bind; the others get ErrSealed.
//
// A bind that returns an error must have destroyed the module, as LLVM does
// when it fails to build an engine. The tag is then removed and the cell
// tombstoned before the lock is released, so later lookups are absent and a
// holder of an earlier Get panics with handle.ErrDisposed on its next access.
func (r *Registry) BindModule(tag handle.Tag, bind func(ptr unsafe.Pointer) error) error {
	if tag.Category != handle.Module {
		return ErrWrongCategory
	}
	cell, ok := r.Get(tag)
	if !ok {
		return ErrNotFound
	}
	defer cell.Release()

	var (
		err     error
		removed bool
	)
	consumed := cell.RetireIf(handle.Module, func(ptr unsafe.Pointer) bool {
		addr := uintptr(ptr)
		if _, loaded := r.sealed.LoadOrStore(tag, addr); loaded {
			err = ErrSealed
			return false
		}
		r.sealedByAddr.Store(addr, tag)
		if bind == nil {
			return false
		}
		if err = bind(ptr); err == nil {
			return false
		}
		_, removed = r.tables[handle.Module].Delete(tag.ID)
		r.unseal(tag)
		return true
	})
	switch {
	case consumed:
		r.log.Debug("module consumed by failed bind", zap.Stringer("tag", tag), zap.Error(err))
		if removed {
			cell.Release()
		}
	case err == nil && !r.Contains(tag):
		// Disposed while binding; Dispose may have unsealed before we sealed.
		r.unseal(tag)
	}
	return err
}

// Sealed reports whether a module has been bound to an execution engine.
func (r *Registry) Sealed(module handle.Tag) bool {
	_, ok := r.sealed.Load(module)
	return ok
}

// SealedAddr is Sealed keyed by the raw module pointer, for callers that
// only reach the module through LLVM (a function's parent, say).
func (r *Registry) SealedAddr(ptr unsafe.Pointer) bool {
	_, ok := r.sealedByAddr.Load(uintptr(ptr))
	return ok
}

func (r *Registry) unseal(module handle.Tag) {
	if addr, ok := r.sealed.LoadAndDelete(module); ok {
		r.sealedByAddr.CompareAndDelete(addr, module)
	}
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	return r.closed.Load()
}

// closeOrder releases engines before the modules they own and contexts last,
// since everything else lives inside a context.
var closeOrder = []handle.Category{
	handle.ExecutionEngine,
	handle.Builder,
	handle.Value,
	handle.BasicBlock,
	handle.Type,
	handle.Module,
	handle.Context,
}

// Close disposes every tag and rejects further stores. Owning objects still
// referenced by outstanding Gets are released when those references drop.
func (r *Registry) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, c := range closeOrder {
		r.tables[c].Range(func(id uint64, _ *handle.Cell) bool {
			r.Dispose(handle.Tag{Category: c, ID: id})
			return true
		})
	}
	r.sealed.Range(func(k, _ any) bool {
		r.unseal(k.(handle.Tag))
		return true
	})
	r.log.Debug("registry closed", zap.Uint64("tags_issued", r.issued.Load()))
	return nil
}
