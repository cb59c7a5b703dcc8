package dynlib

import (
	"context"
	"errors"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

var errNotRegistered = errors.New("builtin module not registered")

type builtinHandle struct {
	name string
	syms mmdevice.Symbols
}

func openBuiltin(name string) (Handle, error) {
	syms, ok := mmdevice.LookupModule(name)
	if !ok {
		return nil, loadError(BuiltinScheme+name, errNotRegistered)
	}

	return &builtinHandle{name: name, syms: syms}, nil
}

func (h *builtinHandle) Path() string {
	return BuiltinScheme + h.name
}

func (h *builtinHandle) Lookup(name string) (any, error) {
	sym, ok := h.syms[name]
	if !ok || sym == nil {
		return nil, symbolNotFound(h.Path(), name)
	}

	return sym, nil
}

// Unload is a no-op: the code stays linked into the binary.
func (h *builtinHandle) Unload(context.Context) error {
	return nil
}
