//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// DefaultOutputDir is where WriteModule puts files unless SAFELLVM_OUTPUT_DIR
// or WithDir says otherwise.
const DefaultOutputDir = "output"

// EnvOutputDir overrides DefaultOutputDir.
const EnvOutputDir = "SAFELLVM_OUTPUT_DIR"

// ErrBadFileName is returned by WriteModule for names that are empty or
// that would leave the output directory.
var ErrBadFileName = errors.New("ir: bad output file name")

// WriteOptions configures WriteModule.
type WriteOptions struct {
	// Dir is the output directory. It is created if absent.
	Dir string
}

// WriteOption is a functional option for WriteModule.
type WriteOption func(*WriteOptions)

// WithDir sets the output directory.
func WithDir(dir string) WriteOption {
	return func(o *WriteOptions) {
		o.Dir = dir
	}
}

// DefaultWriteOptions returns the options WriteModule starts from.
func DefaultWriteOptions() WriteOptions {
	dir := os.Getenv(EnvOutputDir)
	if dir == "" {
		dir = DefaultOutputDir
	}
	return WriteOptions{Dir: dir}
}

// VerifyModule checks m. A broken module yields a *llvmc.MessageError
// carrying LLVM's description of the problems.
func VerifyModule(r *registry.Registry, m Module) error {
	l := begin(r, "VerifyModule")
	defer l.release()

	mod := pin(l, m)
	if !l.ok() {
		return l.err
	}
	if err := llvmc.VerifyModule(mod); err != nil {
		Logger().Debug("module failed verification", zap.Stringer("module", m), zap.Error(err))
		return err
	}
	return nil
}

// VerifyFunction checks a single function, for callers that want to catch a
// broken body before the whole module is verified.
func VerifyFunction(r *registry.Registry, fn Value) error {
	l := begin(r, "VerifyFunction")
	defer l.release()

	f := pin(l, fn)
	if !l.ok() {
		return l.err
	}
	if !llvmc.VerifyFunction(f) {
		Logger().Debug("function failed verification", zap.Stringer("function", fn))
		return fmt.Errorf("%w: %s", ErrBrokenFunction, fn)
	}
	return nil
}

// PrintModule renders m as textual IR.
func PrintModule(r *registry.Registry, m Module) (string, error) {
	l := begin(r, "PrintModule")
	defer l.release()

	mod := pin(l, m)
	if !l.ok() {
		return "", l.err
	}
	return llvmc.PrintModuleToString(mod), nil
}

// WriteModule writes m as textual IR to file inside the output directory,
// creating the directory if needed, and returns the path written.
func WriteModule(r *registry.Registry, m Module, file string, opts ...WriteOption) (string, error) {
	o := DefaultWriteOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if file == "" || file != filepath.Base(file) {
		return "", fmt.Errorf("%w: %q", ErrBadFileName, file)
	}

	l := begin(r, "WriteModule")
	defer l.release()

	mod := pin(l, m)
	if !l.ok() {
		return "", l.err
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return "", fmt.Errorf("ir: create output directory: %w", err)
	}
	path := filepath.Join(o.Dir, file)
	if err := llvmc.PrintModuleToFile(mod, path); err != nil {
		Logger().Warn("failed to write module", zap.String("path", path), zap.Error(err))
		return "", err
	}
	Logger().Debug("wrote module", zap.Stringer("module", m), zap.String("path", path))
	return path, nil
}
