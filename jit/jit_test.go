//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package jit

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"unsafe"

	"go.uber.org/zap/zaptest"

	"github.com/UnionCompilerDesign/safe-llvm/internal/platform"
	"github.com/UnionCompilerDesign/safe-llvm/ir"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

var llvmAvailable bool

func TestMain(m *testing.M) {
	if err := llvmc.Load(); err == nil {
		llvmAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoLLVM(t *testing.T) {
	t.Helper()
	if !llvmAvailable {
		t.Skip("LLVM not available")
	}
	if _, err := NativeTarget().Resolve(); err != nil {
		t.Skip(err)
	}
}

func TestSignatureValidate(t *testing.T) {
	tests := []struct {
		name    string
		sig     Signature
		wantErr bool
	}{
		{"void()", Signature{}, false},
		{"int64(int64)", Signature{Params: []Kind{Int64}, Result: Int64}, false},
		{"mixed", Signature{Params: []Kind{Bool, Int8, Uint32, Float32, Float64, Pointer}, Result: Float64}, false},
		{"max params", Signature{Params: make([]Kind, MaxParams)}, true}, // zero Kind is Void
		{"void param", Signature{Params: []Kind{Int64, Void}}, true},
		{"unknown param", Signature{Params: []Kind{Kind(99)}}, true},
		{"unknown result", Signature{Result: Kind(99)}, true},
		{"too many", Signature{Params: repeat(Int64, MaxParams+1)}, true},
		{"exactly max", Signature{Params: repeat(Int64, MaxParams), Result: Int64}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			var se *SignatureError
			if err != nil && !errors.As(err, &se) {
				t.Errorf("error %T is not *SignatureError", err)
			}
		})
	}
}

func repeat(k Kind, n int) []Kind {
	out := make([]Kind, n)
	for i := range out {
		out[i] = k
	}
	return out
}

func TestSignatureString(t *testing.T) {
	sig := Signature{Params: []Kind{Int64, Pointer}, Result: Float32}
	if got := sig.String(); got != "float32(int64, pointer)" {
		t.Errorf("String() = %q", got)
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("Kind(99).String() = %q", got)
	}
}

func TestFuncType(t *testing.T) {
	sig := Signature{Params: []Kind{Int64, Float64, Pointer}, Result: Int32}
	if got := sig.funcType().String(); got != "func(int64, float64, uintptr) int32" {
		t.Errorf("funcType = %s", got)
	}
	if got := (Signature{}).funcType().String(); got != "func()" {
		t.Errorf("void funcType = %s", got)
	}
}

func TestArgumentConversion(t *testing.T) {
	var x int64
	ptr := unsafe.Pointer(&x)

	tests := []struct {
		name    string
		kind    Kind
		arg     any
		want    any
		wantErr bool
	}{
		{"int to int64", Int64, 58, int64(58), false},
		{"int64 exact", Int64, int64(-3), int64(-3), false},
		{"int to int8", Int8, 100, int8(100), false},
		{"int8 overflow", Int8, 300, nil, true},
		{"negative to uint", Uint32, -1, nil, true},
		{"uint64 to int64 overflow", Int64, uint64(1 << 63), nil, true},
		{"uint to uint16", Uint16, uint(65535), uint16(65535), false},
		{"float64 to float32", Float32, 1.5, float32(1.5), false},
		{"int to float", Float64, 1, nil, true},
		{"bool", Bool, true, true, false},
		{"int to bool", Bool, 1, nil, true},
		{"unsafe pointer", Pointer, ptr, uintptr(ptr), false},
		{"uintptr", Pointer, uintptr(42), uintptr(42), false},
		{"string", Int64, "58", nil, true},
		{"nil", Int64, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv, err := convertArg(tt.kind, tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("convertArg = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && rv.Interface() != tt.want {
				t.Errorf("got %#v, want %#v", rv.Interface(), tt.want)
			}
		})
	}
}

func TestArgumentCount(t *testing.T) {
	sig := Signature{Params: []Kind{Int64, Int64}, Result: Int64}
	_, err := sig.args([]any{int64(1)})
	var se *SignatureError
	if !errors.As(err, &se) || se.Index != -1 {
		t.Errorf("args with one value = %v", err)
	}
	_, err = sig.args([]any{int64(1), "two"})
	if !errors.As(err, &se) || se.Index != 1 {
		t.Errorf("args with bad second value = %v", err)
	}
	if !strings.Contains(err.Error(), "parameter 1") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestTargetResolve(t *testing.T) {
	host, ok := hostBackends[platform.GOARCH()]
	if !ok {
		t.Skip("no backend for this GOARCH")
	}
	for _, tgt := range []Target{{}, NativeTarget(), {Backend: host}} {
		got, err := tgt.Resolve()
		if err != nil || got != host {
			t.Errorf("%v.Resolve() = %v, %v; want %v", tgt, got, err, host)
		}
	}
	for _, b := range Backends {
		if got, err := (Target{Backend: b}).Resolve(); err != nil || got != b {
			t.Errorf("Resolve(%s) = %v, %v", b, got, err)
		}
	}
	if _, err := (Target{Backend: "Z80"}).Resolve(); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Resolve(Z80) = %v, want ErrUnknownBackend", err)
	}
	if err := (Target{Backend: "Z80"}).Configure(); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Configure(Z80) = %v, want ErrUnknownBackend", err)
	}
}

func TestStateString(t *testing.T) {
	want := []string{"unconfigured", "target-configured", "engine-bound", "running", "closed"}
	for i, w := range want {
		if got := State(i).String(); got != w {
			t.Errorf("State(%d) = %q, want %q", i, got, w)
		}
	}
}

func TestSymbolErrorIs(t *testing.T) {
	err := error(&SymbolError{Name: "f"})
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Error("SymbolError should match ErrSymbolNotFound")
	}
	if errors.Is(err, ErrEngineClosed) {
		t.Error("SymbolError must not match ErrEngineClosed")
	}
}

// builder assembles a module of small test functions.
type builder struct {
	t   *testing.T
	r   *registry.Registry
	ctx ir.Context
	mod ir.Module
	b   ir.Builder
}

func newBuilder(t *testing.T) *builder {
	t.Helper()
	skipIfNoLLVM(t)

	r := registry.New(registry.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(func() { r.Close() })
	ctx, err := ir.CreateContext(r)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := ir.CreateModule(r, ctx, "jit")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ir.CreateBuilder(r, ctx)
	if err != nil {
		t.Fatal(err)
	}
	return &builder{t: t, r: r, ctx: ctx, mod: mod, b: b}
}

func (b *builder) check(err error) {
	b.t.Helper()
	if err != nil {
		b.t.Fatal(err)
	}
}

// function declares name and positions the builder in its entry block.
func (b *builder) function(name string, ret ir.Type, params ...ir.Type) ir.Value {
	b.t.Helper()
	fnTy, err := ir.FunctionType(b.r, ret, params, false)
	b.check(err)
	fn, err := ir.AddFunction(b.r, b.mod, name, fnTy)
	b.check(err)
	entry, err := ir.CreateBasicBlock(b.r, b.ctx, fn, "entry")
	b.check(err)
	b.check(ir.PositionBuilder(b.r, b.b, entry))
	return fn
}

// identity emits i64 id(i64 x) { return x }.
func (b *builder) identity() {
	b.t.Helper()
	i64, err := ir.Int64Type(b.r, b.ctx)
	b.check(err)
	fn := b.function("id", i64, i64)
	x, err := ir.GetParam(b.r, fn, 0)
	b.check(err)
	_, err = ir.CreateRet(b.r, b.b, x)
	b.check(err)
}

// binary emits ty name(ty a, ty b) { return a <op> b }.
func (b *builder) binary(name string, ty ir.Type, op ir.Opcode) {
	b.t.Helper()
	fn := b.function(name, ty, ty, ty)
	x, err := ir.GetParam(b.r, fn, 0)
	b.check(err)
	y, err := ir.GetParam(b.r, fn, 1)
	b.check(err)
	v, err := ir.BinaryOp(b.r, b.b, op, x, y, "v")
	b.check(err)
	_, err = ir.CreateRet(b.r, b.b, v)
	b.check(err)
}

func (b *builder) engine(opts ...Option) *Engine {
	b.t.Helper()
	b.check(ir.VerifyModule(b.r, b.mod))
	opts = append([]Option{WithLogger(zaptest.NewLogger(b.t))}, opts...)
	e, err := New(b.r, b.mod, opts...)
	b.check(err)
	b.t.Cleanup(func() { e.Close() })
	return e
}

func TestIdentity(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	e := b.engine()

	if e.State() != EngineBound {
		t.Errorf("State() = %s, want engine-bound", e.State())
	}
	got, err := e.CallInt64("id", 58)
	if err != nil {
		t.Fatal(err)
	}
	if got != 58 {
		t.Errorf("id(58) = %d", got)
	}
	if e.State() != Running {
		t.Errorf("State() = %s, want running", e.State())
	}
}

func TestJITCompilerOptLevel(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	e := b.engine(WithOptLevel(2))

	got, err := e.CallInt64("id", -7)
	if err != nil || got != -7 {
		t.Errorf("id(-7) = %d, %v", got, err)
	}
}

func TestCallMixedKinds(t *testing.T) {
	b := newBuilder(t)
	i32, err := ir.Int32Type(b.r, b.ctx)
	b.check(err)
	dbl, err := ir.DoubleType(b.r, b.ctx)
	b.check(err)
	b.binary("add32", i32, ir.Add)
	b.binary("fadd", dbl, ir.FAdd)
	voidTy, err := ir.VoidType(b.r, b.ctx)
	b.check(err)
	b.function("nop", voidTy)
	_, err = ir.CreateRetVoid(b.r, b.b)
	b.check(err)
	e := b.engine()

	got, err := e.Call("add32", Signature{Params: []Kind{Int32, Int32}, Result: Int32}, 40, 2)
	if err != nil || got != int32(42) {
		t.Errorf("add32(40, 2) = %v, %v", got, err)
	}
	got, err = e.Call("fadd", Signature{Params: []Kind{Float64, Float64}, Result: Float64}, 1.25, 2.5)
	if err != nil || got != 3.75 {
		t.Errorf("fadd(1.25, 2.5) = %v, %v", got, err)
	}
	if err := e.Run("nop"); err != nil {
		t.Errorf("Run(nop) = %v", err)
	}

	_, err = e.Call("add32", Signature{Params: []Kind{Int32, Void}, Result: Int32}, 1, 2)
	var se *SignatureError
	if !errors.As(err, &se) {
		t.Errorf("bad signature = %v, want *SignatureError", err)
	}
}

func TestSymbolNotFoundThenClosed(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	e := b.engine()

	_, err := e.CallInt64("missing", 1)
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("missing symbol = %v, want ErrSymbolNotFound", err)
	}
	if _, err := e.Address("missing"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("Address(missing) = %v", err)
	}
	// The engine is still usable after a miss.
	if addr, err := e.Address("id"); err != nil || addr == 0 {
		t.Errorf("Address(id) = %#x, %v", addr, err)
	}

	if _, err := e.Address(""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Address(\"\") = %v", err)
	}
	if _, err := e.Address("i\x00d"); !errors.Is(err, llvmc.ErrEmbeddedNUL) {
		t.Errorf("Address with NUL = %v", err)
	}

	engineTag := e.Tag()
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if e.State() != Closed {
		t.Errorf("State() = %s", e.State())
	}
	if b.r.Contains(engineTag) || b.r.Contains(b.mod.Tag()) {
		t.Error("Close left the engine or module tag live")
	}
	_, err = e.CallInt64("id", 1)
	if !errors.Is(err, ErrEngineClosed) || errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("call after Close = %v, want ErrEngineClosed only", err)
	}
}

func TestBoundModuleIsSealed(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	b.engine()

	i64, err := ir.Int64Type(b.r, b.ctx)
	b.check(err)
	fnTy, err := ir.FunctionType(b.r, i64, nil, false)
	b.check(err)
	if _, err := ir.AddFunction(b.r, b.mod, "late", fnTy); !errors.Is(err, ir.ErrModuleSealed) {
		t.Errorf("AddFunction after bind = %v, want ErrModuleSealed", err)
	}
	if _, err := New(b.r, b.mod); !errors.Is(err, ErrModuleBound) {
		t.Errorf("second New = %v, want ErrModuleBound", err)
	}
}

func TestConfigureIdempotent(t *testing.T) {
	skipIfNoLLVM(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- NativeTarget().Configure()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	// Two engines in one process, each configuring the same backend.
	for i := 0; i < 2; i++ {
		b := newBuilder(t)
		b.identity()
		e := b.engine(WithTarget(NativeTarget()))
		if got, err := e.CallInt64("id", int64(i)); err != nil || got != int64(i) {
			t.Errorf("engine %d: id(%d) = %d, %v", i, i, got, err)
		}
	}
}

func TestConcurrentCalls(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	e := b.engine()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				n := int64(w*100 + i)
				got, err := e.CallInt64("id", n)
				if err != nil || got != n {
					t.Errorf("id(%d) = %d, %v", n, got, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestConcurrentNewBindsOnce(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	b.check(ir.VerifyModule(b.r, b.mod))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		engines []*Engine
		bound   int
	)
	start := make(chan struct{})
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			e, err := New(b.r, b.mod, WithLogger(zaptest.NewLogger(t)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				engines = append(engines, e)
			case errors.Is(err, ErrModuleBound):
				bound++
			default:
				t.Errorf("New = %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	for _, e := range engines {
		t.Cleanup(func() { e.Close() })
	}
	if len(engines) != 1 || bound != workers-1 {
		t.Fatalf("module bound into %d engines, %d refused; want 1 and %d", len(engines), bound, workers-1)
	}
	if got, err := engines[0].CallInt64("id", 58); err != nil || got != 58 {
		t.Errorf("id(58) = %d, %v", got, err)
	}
}

func TestFailedNewConsumesModule(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	b.check(ir.SetTargetTriple(b.r, b.mod, "bpf-unknown-none"))

	_, err := New(b.r, b.mod, WithOptLevel(0), WithLogger(zaptest.NewLogger(t)))
	if err == nil {
		t.Fatal("New succeeded for a triple with no registered target")
	}
	if errors.Is(err, ErrModuleBound) || errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("New = %v, want LLVM's engine error", err)
	}
	if b.r.Contains(b.mod.Tag()) {
		t.Error("module tag still live after LLVM destroyed the module")
	}
	if _, err := ir.PrintModule(b.r, b.mod); !errors.Is(err, ir.ErrStale) {
		t.Errorf("PrintModule on consumed module = %v, want ErrStale", err)
	}
	if _, err := New(b.r, b.mod); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("New on consumed module = %v, want ErrModuleNotFound", err)
	}

	// The context survives the failure.
	mod, err := ir.CreateModule(b.r, b.ctx, "again")
	b.check(err)
	b.mod = mod
	b.identity()
	e := b.engine()
	if got, err := e.CallInt64("id", 3); err != nil || got != 3 {
		t.Errorf("id(3) = %d, %v", got, err)
	}
}

func TestGlobalAddress(t *testing.T) {
	b := newBuilder(t)
	b.identity()
	e := b.engine()

	want, err := e.Address("id")
	b.check(err)
	got, err := e.GlobalAddress("id")
	if err != nil || got != want {
		t.Errorf("GlobalAddress(id) = %#x, %v; want %#x", got, err, want)
	}
	if _, err := e.GlobalAddress("missing"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("GlobalAddress(missing) = %v", err)
	}
	e.Close()
	if _, err := e.GlobalAddress("id"); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("GlobalAddress after Close = %v", err)
	}
}
