//go:build wasm

package wasmguest

import "unsafe"

//go:wasmimport env log_debug
func logDebug(ptr, size uint32)

//go:wasmimport env log_info
func logInfo(ptr, size uint32)

//go:wasmimport env log_error
func logError(ptr, size uint32)

func hostLog(fn func(ptr, size uint32), msg string) {
	if msg == "" {
		return
	}
	//nolint:gosec // linear memory addresses are 32 bits wide on wasm.
	fn(uint32(uintptr(unsafe.Pointer(unsafe.StringData(msg)))), uint32(len(msg)))
}

// LogDebug sends a debug message to the host log.
func LogDebug(msg string) { hostLog(logDebug, msg) }

// LogInfo sends a message to the host log.
func LogInfo(msg string) { hostLog(logInfo, msg) }

// LogError sends an error message to the host log.
func LogError(msg string) { hostLog(logError, msg) }
