// Package dynlib opens device adapter module images and resolves their
// exported entry points. Three image kinds are supported: WebAssembly
// modules run by wazero, Go plugins, and modules linked into the binary.
package dynlib

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
)

// BuiltinScheme prefixes the path of a module linked into the binary.
const BuiltinScheme = "builtin:"

// Handle is one opened module image.
type Handle interface {
	// Path is the file the image was opened from.
	Path() string
	// Lookup returns the exported symbol, adapted to the entry-point
	// signatures of package mmdevice.
	Lookup(name string) (any, error)
	// Unload releases the image. Native SDKs may keep process-global state
	// past this call, so a later reload is not guaranteed to start clean and
	// hardware resources are not guaranteed to be freed.
	Unload(ctx context.Context) error
}

// Open loads the module image at path. The backend is chosen from the path:
// BuiltinScheme, a ".wasm" file, or a Go plugin (".so").
func Open(ctx context.Context, path string) (Handle, error) {
	switch {
	case strings.HasPrefix(path, BuiltinScheme):
		return openBuiltin(strings.TrimPrefix(path, BuiltinScheme))
	case strings.EqualFold(filepath.Ext(path), ".wasm"):
		return openWasm(ctx, path)
	default:
		return openPlugin(path)
	}
}

func loadError(path string, cause error) error {
	return errorcodes.Wrap(errorcodes.ErrLoad, cause, "open %s", path)
}

func symbolNotFound(path, name string) error {
	return errorcodes.New(errorcodes.ErrSymbolNotFound, "%s in %s", name, path)
}
