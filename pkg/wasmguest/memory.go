// Package wasmguest is the guest side of the WebAssembly adapter ABI. A
// guest built for wasip1 registers its devices in a Module and exports thin
// wrappers around the Module methods; the host drives them through wazero.
//
// Every buffer the host reads or writes is obtained through Alloc, so guest
// memory is only ever addressed through the live allocation table.
package wasmguest

import (
	"sync"
	"unsafe"
)

var (
	memMu sync.Mutex
	live  = map[uint32][]byte{}
)

// Alloc allocates n bytes and returns their address in linear memory. The
// buffer stays reachable until Free.
func Alloc(n uint32) uint32 {
	buf := make([]byte, max(n, 1))
	//nolint:gosec // linear memory addresses are 32 bits wide on wasm.
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))

	memMu.Lock()
	live[ptr] = buf[:n]
	memMu.Unlock()

	return ptr
}

// Free releases a buffer returned by Alloc. Unknown pointers are ignored.
func Free(ptr uint32) {
	memMu.Lock()
	delete(live, ptr)
	memMu.Unlock()
}

// Live reports the number of buffers not yet freed.
func Live() int {
	memMu.Lock()
	defer memMu.Unlock()

	return len(live)
}

// Bytes returns the n bytes at ptr. ptr may point inside an allocation; the
// range must lie within it.
func Bytes(ptr, n uint32) ([]byte, bool) {
	memMu.Lock()
	defer memMu.Unlock()

	if buf, ok := live[ptr]; ok {
		if n > uint32(len(buf)) {
			return nil, false
		}

		return buf[:n:n], true
	}

	for base, buf := range live {
		if ptr < base || ptr-base >= uint32(len(buf)) {
			continue
		}
		off := ptr - base
		if n > uint32(len(buf))-off {
			return nil, false
		}

		return buf[off : off+n : off+n], true
	}

	return nil, false
}
