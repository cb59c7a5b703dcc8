//go:build linux || darwin || freebsd

package dynlib

import (
	"context"
	"plugin"
)

// PluginsSupported reports whether Go plugin images can be opened.
const PluginsSupported = true

type pluginHandle struct {
	path string
	p    *plugin.Plugin
}

func openPlugin(path string) (Handle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, loadError(path, err)
	}

	return &pluginHandle{path: path, p: p}, nil
}

func (h *pluginHandle) Path() string {
	return h.path
}

func (h *pluginHandle) Lookup(name string) (any, error) {
	sym, err := h.p.Lookup(name)
	if err != nil {
		return nil, symbolNotFound(h.path, name)
	}

	return sym, nil
}

// Unload is a no-op: the Go runtime cannot close a plugin once opened.
func (h *pluginHandle) Unload(context.Context) error {
	return nil
}
