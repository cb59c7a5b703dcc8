//go:build !linux && !darwin && !freebsd

package dynlib

import "errors"

// PluginsSupported reports whether Go plugin images can be opened.
const PluginsSupported = false

var errPluginsUnsupported = errors.New("go plugins are not supported on this platform")

func openPlugin(path string) (Handle, error) {
	return nil, loadError(path, errPluginsUnsupported)
}
