//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package jit

import (
	"fmt"
	"sync"

	"github.com/UnionCompilerDesign/safe-llvm/internal/platform"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
)

// Backend names an LLVM code generator as it is spelled in LLVM's tree.
type Backend string

// Supported backends. Native is the host's backend.
const (
	Native      Backend = "Native"
	AArch64     Backend = "AArch64"
	AMDGPU      Backend = "AMDGPU"
	ARM         Backend = "ARM"
	BPF         Backend = "BPF"
	Mips        Backend = "Mips"
	PowerPC     Backend = "PowerPC"
	RISCV       Backend = "RISCV"
	Sparc       Backend = "Sparc"
	SystemZ     Backend = "SystemZ"
	WebAssembly Backend = "WebAssembly"
	X86         Backend = "X86"
)

// Backends lists every backend except Native.
var Backends = []Backend{AArch64, AMDGPU, ARM, BPF, Mips, PowerPC, RISCV, Sparc, SystemZ, WebAssembly, X86}

// hostBackends maps GOARCH to the backend that generates code for it.
var hostBackends = map[string]Backend{
	"amd64":   X86,
	"386":     X86,
	"arm64":   AArch64,
	"arm":     ARM,
	"riscv64": RISCV,
	"ppc64":   PowerPC,
	"ppc64le": PowerPC,
	"s390x":   SystemZ,
	"mips":    Mips,
	"mipsle":  Mips,
	"mips64":  Mips,
	"wasm":    WebAssembly,
}

// Target selects the backend an engine is configured for. The zero Target
// is the host.
type Target struct {
	Backend Backend
}

// NativeTarget returns the host target.
func NativeTarget() Target {
	return Target{Backend: Native}
}

// Resolve returns the concrete backend, mapping Native to the host's.
func (t Target) Resolve() (Backend, error) {
	b := t.Backend
	if b == "" || b == Native {
		host, ok := hostBackends[platform.GOARCH()]
		if !ok {
			return "", fmt.Errorf("%w: no backend for GOARCH %s", ErrUnknownBackend, platform.GOARCH())
		}
		return host, nil
	}
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, string(b))
}

// String returns the backend name.
func (t Target) String() string {
	if t.Backend == "" {
		return string(Native)
	}
	return string(t.Backend)
}

type configState struct {
	once sync.Once
	err  error
}

// configured memoises one initialization per backend for the process.
var configured sync.Map // map[Backend]*configState

// Configure runs the backend's initializers. It is idempotent and safe to
// call from many goroutines: the first call does the work and every call
// returns its result.
func (t Target) Configure() error {
	b, err := t.Resolve()
	if err != nil {
		return err
	}
	v, _ := configured.LoadOrStore(b, &configState{})
	st := v.(*configState)
	st.once.Do(func() {
		st.err = llvmc.InitializeTarget(string(b))
		if st.err == nil {
			llvmc.LinkInMCJIT()
		}
	})
	return st.err
}
