//go:build (darwin || freebsd || linux) && (amd64 || arm64)

// Package platform provides platform detection and shared-library naming for
// safe-llvm. It knows how each operating system names a versioned libLLVM.
package platform

import (
	"fmt"
	"runtime"
	"unsafe"
)

// Is64Bit indicates whether the platform is 64-bit.
// Native calls go through purego, which only supports 64-bit platforms.
const Is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// LibraryExtension is the file extension for shared libraries on this platform.
var LibraryExtension string

// LibraryPrefix is the prefix for shared library names on this platform.
var LibraryPrefix string

func init() {
	LibraryPrefix, LibraryExtension = affixes(runtime.GOOS)
}

func affixes(goos string) (prefix, ext string) {
	switch goos {
	case "darwin":
		return "lib", ".dylib"
	case "windows":
		return "", ".dll"
	default: // linux, freebsd, etc.
		return "lib", ".so"
	}
}

// FormatLibraryName returns the conventional file name of a shared library.
// If version is 0, returns the unversioned library name.
//
// Examples:
//   - Linux:   FormatLibraryName("LLVM", 18) -> "libLLVM-18.so"
//   - macOS:   FormatLibraryName("LLVM", 18) -> "libLLVM.18.dylib"
//   - Windows: FormatLibraryName("LLVM-C", 0) -> "LLVM-C.dll"
func FormatLibraryName(name string, version int) string {
	return formatLibraryName(runtime.GOOS, name, version)
}

func formatLibraryName(goos, name string, version int) string {
	prefix, ext := affixes(goos)
	if version <= 0 {
		return prefix + name + ext
	}
	switch goos {
	case "darwin":
		return fmt.Sprintf("%s%s.%d%s", prefix, name, version, ext)
	case "windows":
		return fmt.Sprintf("%s%s-%d%s", prefix, name, version, ext)
	default:
		return fmt.Sprintf("%s%s-%d%s", prefix, name, version, ext)
	}
}

// LibraryNames returns every file name a given major version of a library is
// known to ship under on this platform, most specific first.
//
// LLVM changed its soname scheme in release 18 (libLLVM-17.so became
// libLLVM.so.18.1), and distributions keep compatibility symlinks for both,
// so all spellings are tried.
func LibraryNames(name string, version int) []string {
	return libraryNames(runtime.GOOS, name, version)
}

func libraryNames(goos, name string, version int) []string {
	prefix, ext := affixes(goos)
	if version <= 0 {
		return []string{formatLibraryName(goos, name, 0)}
	}
	switch goos {
	case "darwin":
		return []string{
			formatLibraryName(goos, name, version),
			formatLibraryName(goos, name, 0),
		}
	case "windows":
		return []string{
			formatLibraryName(goos, name, version),
			formatLibraryName(goos, name+"-C", 0),
		}
	default:
		return []string{
			fmt.Sprintf("%s%s%s.%d.1", prefix, name, ext, version),
			formatLibraryName(goos, name, version),
			fmt.Sprintf("%s%s-%d%s.1", prefix, name, version, ext),
			fmt.Sprintf("%s%s%s.%d", prefix, name, ext, version),
		}
	}
}

// GOOS returns the current operating system.
func GOOS() string {
	return runtime.GOOS
}

// GOARCH returns the current architecture.
func GOARCH() string {
	return runtime.GOARCH
}
