//go:build (darwin || freebsd || linux) && (amd64 || arm64)

// Package jit compiles a module with LLVM's execution engine and calls its
// functions from Go.
//
// An Engine moves through Unconfigured, TargetConfigured, EngineBound and
// Running. Constructing one consumes a module: LLVM's engine takes ownership
// of it, the registry seals it, and the construction layer refuses further
// structural changes. A module can be bound at most once, even by concurrent
// calls to New. If LLVM fails to build the engine it has already destroyed
// the module, so a failed New leaves the module tag absent.
//
// Closing an engine destroys its module. The module tag is dropped with it,
// but value and block tags created in that module stay in the registry and
// must not be used afterwards, just as nothing created in a context may be
// used once the context is gone.
package jit

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// State is the lifecycle stage of an Engine.
type State int32

const (
	// Unconfigured: the target has not been initialized yet.
	Unconfigured State = iota
	// TargetConfigured: the target is ready but no engine exists.
	TargetConfigured
	// EngineBound: the engine owns its module and nothing has run.
	EngineBound
	// Running: at least one function has been called.
	Running
	// Closed: the engine and its module have been disposed.
	Closed
)

// String returns the lowercase, hyphenated name of s.
func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case TargetConfigured:
		return "target-configured"
	case EngineBound:
		return "engine-bound"
	case Running:
		return "running"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures an Engine.
type Options struct {
	// Target is configured before the engine is created. Defaults to the host.
	Target Target

	// OptLevel, when set, selects the MCJIT compiler at that optimization
	// level (0-3) instead of letting LLVM pick an engine.
	OptLevel *uint32

	// Logger defaults to Logger().
	Logger *zap.Logger
}

// Option is a functional option for configuring an engine.
type Option func(*Options)

// WithTarget sets the target the engine is configured for.
func WithTarget(t Target) Option {
	return func(o *Options) {
		o.Target = t
	}
}

// WithOptLevel selects the MCJIT compiler at the given optimization level.
func WithOptLevel(level uint32) Option {
	return func(o *Options) {
		o.OptLevel = &level
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Engine is a module bound to an LLVM execution engine. Thread-safe.
type Engine struct {
	r      *registry.Registry
	ee     registry.Handle[llvmc.ExecutionEngine]
	module registry.Handle[llvmc.Module]
	target Target
	log    *zap.Logger
	state  atomic.Int32
}

// New configures the target and builds an execution engine for module. On
// failure LLVM's diagnostic is returned as a *llvmc.MessageError, and module
// has been consumed: its tag is no longer present in r.
//
// A module that is already bound yields ErrModuleBound.
func New(r *registry.Registry, module registry.Handle[llvmc.Module], options ...Option) (*Engine, error) {
	opts := &Options{Target: NativeTarget()}
	for _, opt := range options {
		opt(opts)
	}
	if opts.Logger == nil {
		opts.Logger = Logger()
	}

	e := &Engine{r: r, module: module, target: opts.Target, log: opts.Logger}
	e.state.Store(int32(Unconfigured))

	if err := llvmc.Load(); err != nil {
		return nil, err
	}
	if err := opts.Target.Configure(); err != nil {
		e.log.Warn("target configuration failed", zap.Stringer("target", opts.Target), zap.Error(err))
		return nil, err
	}
	e.state.Store(int32(TargetConfigured))

	var ee llvmc.ExecutionEngine
	err := r.BindModule(module.Tag(), func(ptr unsafe.Pointer) (err error) {
		if opts.OptLevel != nil {
			ee, err = llvmc.CreateJITCompiler(llvmc.Module(ptr), *opts.OptLevel)
		} else {
			ee, err = llvmc.CreateExecutionEngine(llvmc.Module(ptr))
		}
		return err
	})
	switch {
	case errors.Is(err, registry.ErrSealed):
		return nil, fmt.Errorf("%w: %s", ErrModuleBound, module)
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, registry.ErrWrongCategory):
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	case err != nil:
		e.log.Warn("engine creation failed; module consumed", zap.Stringer("module", module), zap.Error(err))
		return nil, err
	}

	h, ok := registry.Put(r, ee)
	if !ok {
		// The engine owns the module, so disposing it frees both.
		llvmc.DisposeExecutionEngine(ee)
		registry.Drop(r, module)
		return nil, registry.ErrClosed
	}
	e.ee = h
	e.state.Store(int32(EngineBound))
	e.log.Debug("engine created",
		zap.Stringer("engine", h),
		zap.Stringer("module", module),
		zap.Stringer("target", opts.Target),
	)
	return e, nil
}

// State returns the engine's lifecycle stage.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Tag returns the engine's registry tag.
func (e *Engine) Tag() handle.Tag {
	return e.ee.Tag()
}

// Target returns the target the engine was configured for.
func (e *Engine) Target() Target {
	return e.target
}

// withEngine runs f on the engine pointer while holding a reference and
// the read lock, so Close cannot dispose the engine under a running call.
func (e *Engine) withEngine(f func(llvmc.ExecutionEngine)) error {
	if e.State() == Closed || !registry.With(e.r, e.ee, f) {
		return ErrEngineClosed
	}
	return nil
}

func checkName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return llvmc.CheckName(name)
}

// Address returns the native address of the named function, compiling the
// module first if needed.
func (e *Engine) Address(name string) (uintptr, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	var addr uint64
	if err := e.withEngine(func(ee llvmc.ExecutionEngine) {
		addr = llvmc.FunctionAddress(ee, name)
	}); err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, &SymbolError{Name: name}
	}
	return uintptr(addr), nil
}

// GlobalAddress returns the native address of the named global value, which
// may be a function or a global variable.
func (e *Engine) GlobalAddress(name string) (uintptr, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	var addr uint64
	if err := e.withEngine(func(ee llvmc.ExecutionEngine) {
		addr = llvmc.GlobalValueAddress(ee, name)
	}); err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, &SymbolError{Name: name}
	}
	return uintptr(addr), nil
}

// Call resolves name and calls it through sig with args. The result is nil
// for a Void result, otherwise a value of the Go type for sig.Result
// (uintptr for Pointer).
//
// The engine cannot check sig against the compiled function. Calling a
// function through a signature it does not have is undefined behaviour.
func (e *Engine) Call(name string, sig Signature, args ...any) (any, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	in, err := sig.args(args)
	if err != nil {
		return nil, err
	}

	var (
		result any
		addr   uint64
	)
	if err := e.withEngine(func(ee llvmc.ExecutionEngine) {
		addr = llvmc.FunctionAddress(ee, name)
		if addr != 0 {
			e.state.CompareAndSwap(int32(EngineBound), int32(Running))
			result = invoke(uintptr(addr), sig, in)
		}
	}); err != nil {
		return nil, err
	}
	if addr == 0 {
		e.log.Warn("symbol not found", zap.Stringer("engine", e.ee), zap.String("name", name))
		return nil, &SymbolError{Name: name}
	}
	return result, nil
}

// Run calls a function taking no arguments and returning void.
func (e *Engine) Run(name string) error {
	_, err := e.Call(name, Signature{})
	return err
}

// CallInt64 calls a function whose parameters and result are all i64.
func (e *Engine) CallInt64(name string, args ...int64) (int64, error) {
	sig := Signature{Params: make([]Kind, len(args)), Result: Int64}
	in := make([]any, len(args))
	for i, a := range args {
		sig.Params[i] = Int64
		in[i] = a
	}
	out, err := e.Call(name, sig, in...)
	if err != nil {
		return 0, err
	}
	return out.(int64), nil
}

// Close disposes the engine and, with it, the module it owns. It is safe to
// call more than once. Calls already running finish first.
func (e *Engine) Close() error {
	for {
		s := e.State()
		if s == Closed {
			return nil
		}
		if e.state.CompareAndSwap(int32(s), int32(Closed)) {
			break
		}
	}
	registry.Drop(e.r, e.ee)
	registry.Drop(e.r, e.module)
	e.log.Debug("engine closed", zap.Stringer("engine", e.ee))
	return nil
}
