//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
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
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(registry.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(func() { r.Close() })
	return r
}

// fixture is a context, a module and a builder.
type fixture struct {
	r   *registry.Registry
	ctx Context
	mod Module
	b   Builder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	skipIfNoLLVM(t)

	r := newRegistry(t)
	ctx, err := CreateContext(r)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := CreateModule(r, ctx, "m")
	if err != nil {
		t.Fatal(err)
	}
	b, err := CreateBuilder(r, ctx)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{r: r, ctx: ctx, mod: mod, b: b}
}

// function declares name with the given signature and returns it with an
// entry block the builder is positioned in.
func (f *fixture) function(t *testing.T, name string, ret Type, params ...Type) (Value, Block) {
	t.Helper()
	fnTy, err := FunctionType(f.r, ret, params, false)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := AddFunction(f.r, f.mod, name, fnTy)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := CreateBasicBlock(f.r, f.ctx, fn, "entry")
	if err != nil {
		t.Fatal(err)
	}
	if err := PositionBuilder(f.r, f.b, entry); err != nil {
		t.Fatal(err)
	}
	return fn, entry
}

func (f *fixture) voidType(t *testing.T) Type {
	t.Helper()
	ty, err := VoidType(f.r, f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	return ty
}

func (f *fixture) i64(t *testing.T) Type {
	t.Helper()
	ty, err := Int64Type(f.r, f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	return ty
}

func TestAbsentError(t *testing.T) {
	err := error(&AbsentError{Op: "CreateBr", Tag: handle.Tag{Category: handle.Builder, ID: 3}, Reason: ErrBlockTerminated})
	if !errors.Is(err, ErrAbsent) {
		t.Error("AbsentError should match ErrAbsent")
	}
	if !errors.Is(err, ErrBlockTerminated) {
		t.Error("AbsentError should unwrap to its reason")
	}
	if got := err.Error(); got != "ir: CreateBr: builder#3: ir: block already has a terminator" {
		t.Errorf("Error() = %q", got)
	}
}

func TestStaleHandleIsAbsent(t *testing.T) {
	r := registry.New(
		registry.WithLogger(zaptest.NewLogger(t)),
		registry.WithReleaser(registry.ReleaserFunc(func(handle.Category, unsafe.Pointer) {})),
	)
	ctx, _ := registry.Put(r, llvmc.Context(unsafe.Pointer(new(int64))))
	registry.Drop(r, ctx)

	_, err := CreateModule(r, ctx, "m")
	if !errors.Is(err, ErrAbsent) || !errors.Is(err, ErrStale) {
		t.Errorf("CreateModule on stale context: err = %v", err)
	}
	if r.Len(handle.Module) != 0 {
		t.Error("a failed operation allocated a tag")
	}
}

func TestEmbeddedNULRejected(t *testing.T) {
	r := newRegistry(t)
	var ctx Context
	_, err := CreateModule(r, ctx, "bad\x00name")
	if !errors.Is(err, ErrAbsent) || !errors.Is(err, llvmc.ErrEmbeddedNUL) {
		t.Errorf("err = %v, want embedded NUL absence", err)
	}
}

func TestFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	r := newRegistry(t)
	var b Builder
	if _, err := CreateRetVoid(r, b); err == nil {
		t.Fatal("expected failure for zero builder")
	}
	entries := logs.FilterMessage("construction failed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d failures, want 1", len(entries))
	}
	if op := entries[0].ContextMap()["op"]; op != "CreateRetVoid" {
		t.Errorf("op = %v", op)
	}
}

func TestWriteModuleRejectsBadName(t *testing.T) {
	r := newRegistry(t)
	for _, name := range []string{"", "../escape.ll", "sub/dir.ll"} {
		if _, err := WriteModule(r, Module{}, name, WithDir(t.TempDir())); !errors.Is(err, ErrBadFileName) {
			t.Errorf("WriteModule(%q) = %v, want ErrBadFileName", name, err)
		}
	}
}

func TestDefaultWriteOptions(t *testing.T) {
	t.Setenv(EnvOutputDir, "")
	if got := DefaultWriteOptions().Dir; got != DefaultOutputDir {
		t.Errorf("Dir = %q, want %q", got, DefaultOutputDir)
	}
	t.Setenv(EnvOutputDir, "/tmp/irout")
	if got := DefaultWriteOptions().Dir; got != "/tmp/irout" {
		t.Errorf("Dir = %q with env override", got)
	}
}

// Build a void main with a single return and verify it.
func TestVoidMainVerifies(t *testing.T) {
	f := newFixture(t)
	f.function(t, "main", f.voidType(t))

	if _, err := CreateRetVoid(f.r, f.b); err != nil {
		t.Fatal(err)
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Fatalf("VerifyModule: %v", err)
	}
	text, err := PrintModule(f.r, f.mod)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "define void @main()") {
		t.Errorf("module text missing main:\n%s", text)
	}
}

func TestCurrentBlockRoundTrip(t *testing.T) {
	f := newFixture(t)
	_, entry := f.function(t, "main", f.voidType(t))

	got, err := CurrentBlock(f.r, f.b)
	if err != nil {
		t.Fatal(err)
	}
	if got != entry {
		t.Errorf("CurrentBlock = %s, want %s", got, entry)
	}
}

func TestCurrentBlockUnpositioned(t *testing.T) {
	f := newFixture(t)
	if _, err := CurrentBlock(f.r, f.b); !errors.Is(err, ErrNoInsertBlock) {
		t.Errorf("err = %v, want ErrNoInsertBlock", err)
	}
}

func TestSecondTerminatorRejected(t *testing.T) {
	f := newFixture(t)
	f.function(t, "main", f.voidType(t))

	if _, err := CreateRetVoid(f.r, f.b); err != nil {
		t.Fatal(err)
	}
	_, err := CreateRetVoid(f.r, f.b)
	if !errors.Is(err, ErrBlockTerminated) || !errors.Is(err, ErrAbsent) {
		t.Errorf("second terminator: err = %v", err)
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Errorf("module should still verify: %v", err)
	}
}

func TestMissingTerminatorFailsVerification(t *testing.T) {
	f := newFixture(t)
	f.function(t, "main", f.voidType(t))

	err := VerifyModule(f.r, f.mod)
	var me *llvmc.MessageError
	if !errors.As(err, &me) {
		t.Fatalf("VerifyModule = %v, want *llvmc.MessageError", err)
	}
	if me.Message == "" {
		t.Error("diagnostic message dropped")
	}
}

func TestBlockAdjacency(t *testing.T) {
	f := newFixture(t)
	fn, entry := f.function(t, "main", f.voidType(t))

	exit, err := CreateBasicBlock(f.r, f.ctx, fn, "exit")
	if err != nil {
		t.Fatal(err)
	}
	middle, err := InsertBefore(f.r, f.ctx, exit, "middle")
	if err != nil {
		t.Fatal(err)
	}

	if got, err := NextBlock(f.r, entry); err != nil || got != middle {
		t.Errorf("NextBlock(entry) = %v, %v; want %v", got, err, middle)
	}
	if got, err := PreviousBlock(f.r, exit); err != nil || got != middle {
		t.Errorf("PreviousBlock(exit) = %v, %v; want %v", got, err, middle)
	}
	if got, err := EntryBlock(f.r, fn); err != nil || got != entry {
		t.Errorf("EntryBlock = %v, %v; want %v", got, err, entry)
	}
	if _, err := NextBlock(f.r, exit); !errors.Is(err, ErrNoBlock) {
		t.Errorf("NextBlock(last) = %v, want ErrNoBlock", err)
	}
	if _, err := PreviousBlock(f.r, entry); !errors.Is(err, ErrNoBlock) {
		t.Errorf("PreviousBlock(first) = %v, want ErrNoBlock", err)
	}
}

func TestBlockCreatedOutsideRegistry(t *testing.T) {
	f := newFixture(t)
	fn, entry := f.function(t, "main", f.voidType(t))

	var c llvmc.Context
	registry.With(f.r, f.ctx, func(p llvmc.Context) { c = p })
	registry.With(f.r, fn, func(p llvmc.Value) {
		llvmc.AppendBasicBlock(c, p, "raw")
	})

	if _, err := NextBlock(f.r, entry); !errors.Is(err, ErrBlockNotIndexed) {
		t.Errorf("err = %v, want ErrBlockNotIndexed", err)
	}
}

func TestDeleteBasicBlock(t *testing.T) {
	f := newFixture(t)
	fn, entry := f.function(t, "main", f.voidType(t))

	dead, err := CreateBasicBlock(f.r, f.ctx, fn, "dead")
	if err != nil {
		t.Fatal(err)
	}
	if err := DeleteBasicBlock(f.r, dead); err != nil {
		t.Fatal(err)
	}
	if f.r.Contains(dead.Tag()) {
		t.Error("deleted block tag still live")
	}
	if _, err := NextBlock(f.r, entry); !errors.Is(err, ErrNoBlock) {
		t.Errorf("NextBlock after delete = %v, want ErrNoBlock", err)
	}
	if err := DeleteBasicBlock(f.r, dead); !errors.Is(err, ErrStale) {
		t.Errorf("second delete = %v, want ErrStale", err)
	}
	if _, err := CreateRetVoid(f.r, f.b); err != nil {
		t.Fatal(err)
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Error(err)
	}
}

func TestEnumVariants(t *testing.T) {
	f := newFixture(t)
	color, err := CreateEnum(f.r, f.ctx, "Color", []string{"Red", "Green", "Blue"})
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := GetVariant(f.r, color, "Red"); !ok || v != 0 {
		t.Errorf("Red = %d, %v; want 0", v, ok)
	}
	if v, ok := GetVariant(f.r, color, "Blue"); !ok || v != 2 {
		t.Errorf("Blue = %d, %v; want 2", v, ok)
	}
	if _, ok := GetVariant(f.r, color, "Purple"); ok {
		t.Error("Purple should be absent")
	}

	if _, err := VariantValue(f.r, color, "Green"); err != nil {
		t.Error(err)
	}
	if _, err := VariantValue(f.r, color, "Purple"); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("VariantValue(Purple) = %v", err)
	}
	if _, err := VariantValue(f.r, f.i64(t), "Red"); !errors.Is(err, ErrNotEnum) {
		t.Errorf("VariantValue on plain type = %v", err)
	}
}

func TestEnumDuplicateVariant(t *testing.T) {
	f := newFixture(t)
	before := f.r.Len(handle.Type)
	if _, err := CreateEnum(f.r, f.ctx, "Dup", []string{"A", "A"}); !errors.Is(err, registry.ErrDuplicateVariant) {
		t.Errorf("err = %v, want ErrDuplicateVariant", err)
	}
	if f.r.Len(handle.Type) != before {
		t.Error("failed CreateEnum leaked a type tag")
	}
}

// i64 f(i64 n) { x := n; x = x + 1; return x }
func TestVariables(t *testing.T) {
	f := newFixture(t)
	i64 := f.i64(t)
	fn, _ := f.function(t, "incr", i64, i64)

	n, err := GetParam(f.r, fn, 0)
	if err != nil {
		t.Fatal(err)
	}
	x, err := InitVar(f.r, f.b, i64, "x", &n)
	if err != nil {
		t.Fatal(err)
	}
	cur, err := GetVar(f.r, f.b, i64, x, "cur")
	if err != nil {
		t.Fatal(err)
	}
	one, err := ConstInt(f.r, i64, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := BinaryOp(f.r, f.b, Add, cur, one, "sum")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ReassignVar(f.r, f.b, x, sum); err != nil {
		t.Fatal(err)
	}
	out, err := GetVar(f.r, f.b, i64, x, "out")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRet(f.r, f.b, out); err != nil {
		t.Fatal(err)
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Fatal(err)
	}

	if _, err := GetParam(f.r, fn, 1); !errors.Is(err, ErrParamIndex) {
		t.Errorf("GetParam(1) = %v, want ErrParamIndex", err)
	}
}

// i64 max(i64 a, i64 b) with a conditional branch.
func TestConditionalBranch(t *testing.T) {
	f := newFixture(t)
	i64 := f.i64(t)
	fn, _ := f.function(t, "max", i64, i64, i64)

	a, _ := GetParam(f.r, fn, 0)
	b, _ := GetParam(f.r, fn, 1)
	then, err := CreateBasicBlock(f.r, f.ctx, fn, "then")
	if err != nil {
		t.Fatal(err)
	}
	els, err := CreateBasicBlock(f.r, f.ctx, fn, "else")
	if err != nil {
		t.Fatal(err)
	}

	gt, err := ICmp(f.r, f.b, llvmc.IntSGT, a, b, "gt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateCondBr(f.r, f.b, gt, then, els); err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		block Block
		v     Value
	}{{then, a}, {els, b}} {
		if err := PositionBuilder(f.r, f.b, tc.block); err != nil {
			t.Fatal(err)
		}
		if _, err := CreateRet(f.r, f.b, tc.v); err != nil {
			t.Fatal(err)
		}
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Fatal(err)
	}
}

func TestCallAndUnaryOps(t *testing.T) {
	f := newFixture(t)
	i64 := f.i64(t)

	calleeTy, err := FunctionType(f.r, i64, []Type{i64}, false)
	if err != nil {
		t.Fatal(err)
	}
	callee, _ := f.function(t, "neg", i64, i64)
	p, _ := GetParam(f.r, callee, 0)
	neg, err := Neg(f.r, f.b, p, "neg")
	if err != nil {
		t.Fatal(err)
	}
	inv, err := Not(f.r, f.b, neg, "inv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRet(f.r, f.b, inv); err != nil {
		t.Fatal(err)
	}

	caller, _ := f.function(t, "caller", i64)
	seven, _ := ConstInt(f.r, i64, 7, false)
	res, err := Call(f.r, f.b, calleeTy, callee, []Value{seven}, "res")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRet(f.r, f.b, res); err != nil {
		t.Fatal(err)
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Fatal(err)
	}

	got, err := GetFunction(f.r, f.mod, "caller")
	if err != nil {
		t.Fatal(err)
	}
	name, _ := Name(f.r, got)
	if name != "caller" || got == caller {
		t.Errorf("GetFunction = %v (%q); want a new handle named caller", got, name)
	}
	if _, err := GetFunction(f.r, f.mod, "missing"); !errors.Is(err, ErrNoFunction) {
		t.Errorf("GetFunction(missing) = %v", err)
	}
}

func TestFloatCompare(t *testing.T) {
	f := newFixture(t)
	dbl, err := DoubleType(f.r, f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	i1, err := Int1Type(f.r, f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	f.function(t, "lt", i1, dbl, dbl)

	x, _ := ConstReal(f.r, dbl, 1.5)
	y, _ := ConstReal(f.r, dbl, 2.5)
	sum, err := BinaryOp(f.r, f.b, FAdd, x, y, "sum")
	if err != nil {
		t.Fatal(err)
	}
	lt, err := FCmp(f.r, f.b, llvmc.RealOLT, x, sum, "lt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRet(f.r, f.b, lt); err != nil {
		t.Fatal(err)
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Fatal(err)
	}
}

func TestAggregateTypes(t *testing.T) {
	f := newFixture(t)
	i8, _ := Int8Type(f.r, f.ctx)
	i32, _ := Int32Type(f.r, f.ctx)
	ptr, err := PointerType(f.r, f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	arr, err := ArrayType(f.r, i8, 16)
	if err != nil {
		t.Fatal(err)
	}
	st, err := StructType(f.r, f.ctx, []Type{i32, ptr, arr}, false)
	if err != nil {
		t.Fatal(err)
	}
	f.function(t, "mk", f.voidType(t))
	if _, err := InitVar(f.r, f.b, st, "s", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRetVoid(f.r, f.b); err != nil {
		t.Fatal(err)
	}
	if err := VerifyModule(f.r, f.mod); err != nil {
		t.Fatal(err)
	}
	text, _ := PrintModule(f.r, f.mod)
	if !strings.Contains(text, "{ i32, ptr, [16 x i8] }") {
		t.Errorf("struct type missing from:\n%s", text)
	}
}

func TestSealedModuleRefusesChanges(t *testing.T) {
	f := newFixture(t)
	fn, _ := f.function(t, "main", f.voidType(t))
	fnTy, _ := FunctionType(f.r, f.voidType(t), nil, false)

	if !f.r.Seal(f.mod.Tag()) {
		t.Fatal("Seal failed")
	}
	if _, err := AddFunction(f.r, f.mod, "late", fnTy); !errors.Is(err, ErrModuleSealed) {
		t.Errorf("AddFunction on sealed module = %v", err)
	}
	if _, err := CreateBasicBlock(f.r, f.ctx, fn, "late"); !errors.Is(err, ErrModuleSealed) {
		t.Errorf("CreateBasicBlock on sealed module = %v", err)
	}
}

func TestTargetTriple(t *testing.T) {
	f := newFixture(t)
	if err := SetTargetTriple(f.r, f.mod, ""); err != nil {
		t.Fatal(err)
	}
	got, err := TargetTriple(f.r, f.mod)
	if err != nil {
		t.Fatal(err)
	}
	if got == "" || got != llvmc.DefaultTargetTriple() {
		t.Errorf("TargetTriple = %q, want host default", got)
	}
}

func TestWriteModuleCreatesDirectory(t *testing.T) {
	f := newFixture(t)
	f.function(t, "main", f.voidType(t))
	CreateRetVoid(f.r, f.b)

	dir := filepath.Join(t.TempDir(), "nested", "out")
	path, err := WriteModule(f.r, f.mod, "m.ll", WithDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "m.ll") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "define void @main()") {
		t.Errorf("file contents:\n%s", data)
	}
}

func TestDroppedAliasesLeaveContextUsable(t *testing.T) {
	f := newFixture(t)
	i64 := f.i64(t)
	fn, _ := f.function(t, "answer", i64)
	c, err := ConstInt(f.r, i64, 42, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRet(f.r, f.b, c); err != nil {
		t.Fatal(err)
	}

	// None of these own their object, so dropping them must not free
	// anything the context still uses.
	for _, tag := range []handle.Tag{fn.Tag(), c.Tag(), i64.Tag(), f.b.Tag(), f.mod.Tag()} {
		if !f.r.Dispose(tag) {
			t.Fatalf("Dispose(%s) reported absent", tag)
		}
	}

	mod, err := CreateModule(f.r, f.ctx, "after")
	if err != nil {
		t.Fatal(err)
	}
	b, err := CreateBuilder(f.r, f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	i64 = f.i64(t)
	fnTy, err := FunctionType(f.r, i64, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	fn, err = AddFunction(f.r, mod, "answer", fnTy)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := CreateBasicBlock(f.r, f.ctx, fn, "entry")
	if err != nil {
		t.Fatal(err)
	}
	if err := PositionBuilder(f.r, b, entry); err != nil {
		t.Fatal(err)
	}
	if c, err = ConstInt(f.r, i64, 7, false); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRet(f.r, b, c); err != nil {
		t.Fatal(err)
	}
	if err := VerifyModule(f.r, mod); err != nil {
		t.Errorf("module built after dropping aliases: %v", err)
	}
}

func TestVerifyFunction(t *testing.T) {
	f := newFixture(t)
	fn, _ := f.function(t, "main", f.voidType(t))

	if err := VerifyFunction(f.r, fn); !errors.Is(err, ErrBrokenFunction) {
		t.Errorf("unterminated body: err = %v, want ErrBrokenFunction", err)
	}
	if _, err := CreateRetVoid(f.r, f.b); err != nil {
		t.Fatal(err)
	}
	if err := VerifyFunction(f.r, fn); err != nil {
		t.Errorf("VerifyFunction: %v", err)
	}
	f.r.Dispose(fn.Tag())
	if err := VerifyFunction(f.r, fn); !errors.Is(err, ErrStale) {
		t.Errorf("stale function: err = %v, want ErrStale", err)
	}
}

func TestAddFunctionRacesSeal(t *testing.T) {
	f := newFixture(t)
	fnTy, err := FunctionType(f.r, f.voidType(t), nil, false)
	if err != nil {
		t.Fatal(err)
	}

	sealed := make(chan struct{})
	go func() {
		defer close(sealed)
		f.r.Seal(f.mod.Tag())
	}()
	added := 0
	for {
		_, err := AddFunction(f.r, f.mod, "f", fnTy)
		if errors.Is(err, ErrModuleSealed) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		added++
	}
	<-sealed

	// Once refused, the module stays refused and holds exactly the
	// functions added before the seal.
	if _, err := AddFunction(f.r, f.mod, "g", fnTy); !errors.Is(err, ErrModuleSealed) {
		t.Errorf("AddFunction after seal = %v", err)
	}
	text, err := PrintModule(f.r, f.mod)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(text, "declare void @f"); n != added {
		t.Errorf("module declares %d functions, %d were accepted", n, added)
	}
}
