//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package safellvm

import (
	"errors"
	"os"
	"testing"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/ir"
	"github.com/UnionCompilerDesign/safe-llvm/jit"
)

var llvmAvailable bool

func TestMain(m *testing.M) {
	if err := Init(); err == nil {
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

func TestInit(t *testing.T) {
	skipIfNoLLVM(t)
	if err := Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if !IsLoaded() {
		t.Error("IsLoaded returned false after Init")
	}
	if LibraryPath() == "" {
		t.Error("LibraryPath is empty")
	}
}

func TestVersion(t *testing.T) {
	skipIfNoLLVM(t)
	major, minor, patch := Version()
	t.Logf("LLVM %d.%d.%d", major, minor, patch)
	if major != 0 && major < 15 {
		t.Errorf("LLVM %d is older than the supported range", major)
	}
}

func TestErrorHelpers(t *testing.T) {
	absent := &ir.AbsentError{Op: "CreateBr", Reason: ir.ErrStale}
	if !IsAbsent(absent) {
		t.Error("IsAbsent(AbsentError) = false")
	}
	if IsAbsent(errors.New("other")) {
		t.Error("IsAbsent(other) = true")
	}

	me := &MessageError{Op: "LLVMVerifyModule", Message: "broken"}
	if got := Diagnostic(me); got != "broken" {
		t.Errorf("Diagnostic = %q", got)
	}
	if got := Diagnostic(errors.New("x")); got != "" {
		t.Errorf("Diagnostic(plain) = %q", got)
	}
}

func TestPoisoned(t *testing.T) {
	cell, err := handle.NewCell(handle.Value, unsafe.Pointer(new(int64)), nil)
	if err != nil {
		t.Fatal(err)
	}
	func() {
		defer func() { recover() }()
		cell.Write(handle.Value, func(unsafe.Pointer) { panic("boom") })
	}()

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		cell.Read(handle.Value, func(unsafe.Pointer) {})
	}()
	pe, ok := Poisoned(recovered)
	if !ok || pe.Cause != "boom" {
		t.Errorf("Poisoned(%v) = %v, %v", recovered, pe, ok)
	}
	if _, ok := Poisoned("plain panic"); ok {
		t.Error("Poisoned(string) = true")
	}
}

func TestDiagnosticRouting(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	dispatchDiagnostic(SeverityWarning, "unused value")
	if n := logs.FilterMessage("llvm diagnostic").FilterField(zap.String("message", "unused value")).Len(); n != 1 {
		t.Errorf("warning logged %d times, want 1", n)
	}

	var got []string
	SetDiagnosticCallback(func(s Severity, msg string) {
		got = append(got, s.String()+": "+msg)
	})
	defer SetDiagnosticCallback(nil)

	dispatchDiagnostic(SeverityError, "bad")
	if len(got) != 1 || got[0] != "error: bad" {
		t.Errorf("callback got %v", got)
	}
	if logs.FilterField(zap.String("message", "bad")).Len() != 0 {
		t.Error("diagnostic logged although a callback is set")
	}
}

func TestSetLoggerFansOut(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	r := NewRegistry()
	defer r.Close()
	if _, err := ir.CreateRetVoid(r, ir.Builder{}); err == nil {
		t.Fatal("expected failure")
	}
	if logs.FilterLoggerName("ir").Len() == 0 {
		t.Error("ir failure not logged through the root logger")
	}
	if _, ok := r.Store(CategoryValue, unsafe.Pointer(new(int64))); !ok {
		t.Fatal("Store failed")
	}
	if logs.FilterMessage("stored handle").Len() == 0 {
		t.Error("registry did not log through NewRegistry's logger")
	}
}

// Build i64 id(i64), compile it and call it end to end.
func TestEndToEnd(t *testing.T) {
	skipIfNoLLVM(t)
	if _, err := jit.NativeTarget().Resolve(); err != nil {
		t.Skip(err)
	}

	r := NewRegistry()
	defer r.Close()

	ctx, err := ir.CreateContext(r)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := ir.CreateModule(r, ctx, "m")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ir.CreateBuilder(r, ctx)
	if err != nil {
		t.Fatal(err)
	}
	i64, err := ir.Int64Type(r, ctx)
	if err != nil {
		t.Fatal(err)
	}
	fnTy, err := ir.FunctionType(r, i64, []ir.Type{i64}, false)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := ir.AddFunction(r, mod, "id", fnTy)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := ir.CreateBasicBlock(r, ctx, fn, "entry")
	if err != nil {
		t.Fatal(err)
	}
	if err := ir.PositionBuilder(r, b, entry); err != nil {
		t.Fatal(err)
	}
	x, err := ir.GetParam(r, fn, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ir.CreateRet(r, b, x); err != nil {
		t.Fatal(err)
	}

	e, err := jit.New(r, mod)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	got, err := e.Call("id", Signature{Params: []jit.Kind{jit.Int64}, Result: jit.Int64}, int64(58))
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(58) {
		t.Errorf("id(58) = %v", got)
	}
	if r.Len(CategoryExecutionEngine) != 1 {
		t.Errorf("engines registered = %d", r.Len(CategoryExecutionEngine))
	}
}
