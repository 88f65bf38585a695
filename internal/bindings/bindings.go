//go:build (darwin || freebsd || linux) && (amd64 || arm64)

// Package bindings handles locating and loading the LLVM shared library and
// resolving its C API symbols using purego.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/UnionCompilerDesign/safe-llvm/internal/platform"
)

// EnvLibrary names the environment variable holding an explicit libLLVM path.
// When set, it is tried before any search path.
const EnvLibrary = "SAFELLVM_LIBLLVM"

// Versions lists the supported LLVM major versions, newest first.
// Opaque pointers (LLVMPointerTypeInContext) need LLVM 15 or later.
var Versions = []int{20, 19, 18, 17, 16, 15}

// ErrNotLoaded is returned when LLVM functions are called before Load().
var ErrNotLoaded = errors.New("safellvm: LLVM library not loaded; call safellvm.Init() first")

// ErrLibraryNotFound is returned when libLLVM cannot be found.
var ErrLibraryNotFound = errors.New("safellvm: LLVM library not found")

// ErrSymbolNotFound is returned when a required LLVM-C symbol is missing.
var ErrSymbolNotFound = errors.New("safellvm: LLVM symbol not found")

var (
	libLLVM  uintptr
	libPath  string
	loaded   bool
	loadOnce sync.Once
	loadErr  error

	llvmGetVersion func(major, minor, patch *uint32)
)

// IsLoaded returns true if libLLVM has been successfully loaded.
func IsLoaded() bool {
	return loaded
}

// Load loads libLLVM. It is safe to call multiple times; subsequent calls
// return the result of the first attempt.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			loaded = true
		}
	})
	return loadErr
}

func doLoad() error {
	if !platform.Is64Bit {
		return fmt.Errorf("%w: 64-bit platform required", ErrLibraryNotFound)
	}

	if p := os.Getenv(EnvLibrary); p != "" {
		lib, err := tryOpen(p)
		if err != nil {
			return fmt.Errorf("loading %s=%s: %w", EnvLibrary, p, err)
		}
		libLLVM, libPath = lib, p
	} else {
		lib, path, err := loadLibrary("LLVM", Versions)
		if err != nil {
			return fmt.Errorf("loading libLLVM: %w", err)
		}
		libLLVM, libPath = lib, path
	}

	// LLVMGetVersion exists from LLVM 16 onwards.
	Optional(&llvmGetVersion, "LLVMGetVersion")
	return nil
}

// loadLibrary attempts to load a library by trying versioned names.
func loadLibrary(name string, versions []int) (uintptr, string, error) {
	for _, ver := range versions {
		for _, searchPath := range searchPathsFor(ver) {
			for _, libName := range platform.LibraryNames(name, ver) {
				fullPath := filepath.Join(searchPath, libName)
				if lib, err := tryOpen(fullPath); err == nil {
					return lib, fullPath, nil
				}
			}
		}
	}

	// Try just the library name (let the system find it)
	for _, ver := range versions {
		for _, libName := range platform.LibraryNames(name, ver) {
			if lib, err := tryOpen(libName); err == nil {
				return lib, libName, nil
			}
		}
	}

	libName := platform.FormatLibraryName(name, 0)
	if lib, err := tryOpen(libName); err == nil {
		return lib, libName, nil
	}

	return 0, "", fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// tryOpen attempts to open a library with RTLD_NOW | RTLD_GLOBAL.
// RTLD_GLOBAL keeps JIT-compiled code able to resolve libLLVM's own symbols.
func tryOpen(path string) (uintptr, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, err
	}
	return lib, nil
}

// FindLibrary searches for a library and returns its full path.
// This is useful for diagnostics.
func FindLibrary(name string, versions []int) (string, error) {
	for _, ver := range versions {
		for _, searchPath := range searchPathsFor(ver) {
			for _, libName := range platform.LibraryNames(name, ver) {
				fullPath := filepath.Join(searchPath, libName)
				if _, err := os.Stat(fullPath); err == nil {
					return fullPath, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// LibrarySearchPaths returns platform-specific library search paths that do
// not depend on a particular LLVM version.
func LibrarySearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "linux", "freebsd":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/lib64",
			"/usr/local/lib",
			"/usr/lib",
		)

	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths,
			"/opt/homebrew/opt/llvm/lib", // Apple Silicon
			"/usr/local/opt/llvm/lib",    // Intel
			"/opt/homebrew/lib",
			"/usr/local/lib",
		)
	}

	return paths
}

// searchPathsFor adds the per-version install prefixes used by Debian/Ubuntu
// (/usr/lib/llvm-18/lib), Fedora (/usr/lib64/llvm18/lib) and Homebrew
// (llvm@18) in front of the generic search paths.
func searchPathsFor(version int) []string {
	var paths []string
	switch runtime.GOOS {
	case "linux", "freebsd":
		paths = append(paths,
			fmt.Sprintf("/usr/lib/llvm-%d/lib", version),
			fmt.Sprintf("/usr/lib64/llvm%d/lib", version),
			fmt.Sprintf("/usr/local/llvm%d/lib", version),
		)
	case "darwin":
		paths = append(paths,
			fmt.Sprintf("/opt/homebrew/opt/llvm@%d/lib", version),
			fmt.Sprintf("/usr/local/opt/llvm@%d/lib", version),
		)
	}
	return append(paths, LibrarySearchPaths()...)
}

// Bind resolves a required symbol and registers it into fptr, which must be a
// pointer to a function variable. It never panics on a missing symbol.
func Bind(fptr any, name string) error {
	if libLLVM == 0 {
		return ErrNotLoaded
	}
	if _, err := purego.Dlsym(libLLVM, name); err != nil {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	purego.RegisterLibFunc(fptr, libLLVM, name)
	return nil
}

// Optional binds a symbol that only some LLVM versions export.
// It reports whether the symbol was found.
func Optional(fptr any, name string) bool {
	return Bind(fptr, name) == nil
}

// Symbol returns the raw address of an exported libLLVM symbol.
func Symbol(name string) (uintptr, error) {
	if libLLVM == 0 {
		return 0, ErrNotLoaded
	}
	addr, err := purego.Dlsym(libLLVM, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	return addr, nil
}

// Version returns the LLVM version of the loaded library.
// Returns zeros if the library is not loaded or predates LLVMGetVersion.
func Version() (major, minor, patch uint32) {
	if !loaded || llvmGetVersion == nil {
		return 0, 0, 0
	}
	llvmGetVersion(&major, &minor, &patch)
	return major, minor, patch
}

// Lib returns the libLLVM library handle.
func Lib() uintptr {
	return libLLVM
}

// Path returns the path libLLVM was loaded from.
func Path() string {
	return libPath
}
