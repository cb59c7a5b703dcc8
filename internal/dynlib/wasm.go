package dynlib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Guest memory management exports.
const (
	wasmAlloc = "Alloc"
	wasmFree  = "Free"
)

var (
	errNoAlloc       = errors.New("module does not export Alloc")
	errNoResult      = errors.New("call returned no results")
	errMemoryBounds  = errors.New("memory access out of bounds")
	errForeignDevice = errors.New("device was not created by this module")
)

// wasmHandle runs one WebAssembly adapter in its own wazero runtime, so that
// Unload really discards all guest state. Calls are not synchronized here:
// the adapter layer holds the module lock around every entry point.
type wasmHandle struct {
	//nolint:containedctx // Context is stored in the struct intentionally to allow reuse across guest calls.
	ctx   context.Context
	path  string
	rt    wazero.Runtime
	mod   api.Module
	alloc api.Function
	free  api.Function

	// devices maps live guest handles to their proxies for the core_* host
	// functions.
	mu      sync.Mutex
	devices map[uint32]mmdevice.Device
}

func openWasm(ctx context.Context, path string) (Handle, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, loadError(path, err)
	}

	rt := wazero.NewRuntime(ctx)
	h := &wasmHandle{
		ctx:     ctx,
		path:    path,
		rt:      rt,
		devices: make(map[uint32]mmdevice.Device),
	}
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, loadError(path, err)
	}
	if err := registerHostFunctions(ctx, rt, h); err != nil {
		_ = rt.Close(ctx)
		return nil, loadError(path, err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, loadError(path, err)
	}

	// Reactor modules export _initialize; command modules' _start is never run.
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")

	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, loadError(path, err)
	}

	log.Debug().
		Str("event", "wasm_module_instantiated").
		Str("path", path).
		Int("exports", len(compiled.ExportedFunctions())).
		Msg("instantiated wasm module")

	h.mod = mod
	h.alloc = mod.ExportedFunction(wasmAlloc)
	h.free = mod.ExportedFunction(wasmFree)

	return h, nil
}

func (h *wasmHandle) Path() string {
	return h.path
}

func (h *wasmHandle) Unload(ctx context.Context) error {
	return h.rt.Close(ctx)
}

// Lookup adapts a guest export to the Go signature of the entry point.
func (h *wasmHandle) Lookup(name string) (any, error) {
	fn := h.mod.ExportedFunction(name)
	if fn == nil {
		return nil, symbolNotFound(h.path, name)
	}

	switch name {
	case mmdevice.SymInitializeModuleData:
		return mmdevice.InitializeModuleDataFunc(func() {
			if _, err := h.call(fn); err != nil {
				h.logTrap(name, err)
			}
		}), nil

	case mmdevice.SymGetModuleVersion, mmdevice.SymGetDeviceInterfaceVersion:
		return func() int32 {
			v, err := h.callI32(fn)
			if err != nil {
				h.logTrap(name, err)
				return -1
			}

			return v
		}, nil

	case mmdevice.SymGetNumberOfDevices:
		return mmdevice.GetNumberOfDevicesFunc(func() uint32 {
			v, err := h.callI32(fn)
			if err != nil || v < 0 {
				h.logTrap(name, err)
				return 0
			}

			return uint32(v)
		}), nil

	case mmdevice.SymGetDeviceName:
		return mmdevice.GetDeviceNameFunc(func(index uint32, buf []byte) bool {
			ok, err := h.callOut(fn, buf, api.EncodeU32(index))
			if err != nil {
				h.logTrap(name, err)
			}

			return ok
		}), nil

	case mmdevice.SymGetDeviceDescription:
		return mmdevice.GetDeviceDescriptionFunc(func(devName string, buf []byte) bool {
			var ok bool
			err := h.withString(devName, func(ptr, n uint32) error {
				var err error
				ok, err = h.callOut(fn, buf, api.EncodeU32(ptr), api.EncodeU32(n))
				return err
			})
			if err != nil {
				h.logTrap(name, err)
			}

			return ok
		}), nil

	case mmdevice.SymGetDeviceType:
		return mmdevice.GetDeviceTypeFunc(func(devName string, typ *int32) bool {
			ok, err := h.getDeviceType(fn, devName, typ)
			if err != nil {
				h.logTrap(name, err)
			}

			return ok
		}), nil

	case mmdevice.SymCreateDevice:
		return mmdevice.CreateDeviceFunc(func(devName string) mmdevice.Device {
			dev, err := h.createDevice(fn, devName)
			if err != nil {
				h.logTrap(name, err)
				return nil
			}

			return dev
		}), nil

	case mmdevice.SymDeleteDevice:
		return mmdevice.DeleteDeviceFunc(func(dev mmdevice.Device) {
			id, ok := wasmDeviceID(dev, h)
			if !ok {
				h.logTrap(name, errForeignDevice)
				return
			}
			h.mu.Lock()
			delete(h.devices, id)
			h.mu.Unlock()
			if _, err := h.call(fn, api.EncodeU32(id)); err != nil {
				h.logTrap(name, err)
			}
		}), nil
	}

	return nil, symbolNotFound(h.path, name)
}

func (h *wasmHandle) getDeviceType(fn api.Function, devName string, typ *int32) (bool, error) {
	out, err := h.allocBuffer(4)
	if err != nil {
		return false, err
	}
	defer h.freeBuffer(out)

	var ok bool
	err = h.withString(devName, func(ptr, n uint32) error {
		v, err := h.callI32(fn, api.EncodeU32(ptr), api.EncodeU32(n), api.EncodeU32(out))
		ok = v != 0
		return err
	})
	if err != nil || !ok {
		return false, err
	}

	raw, inBounds := h.mod.Memory().ReadUint32Le(out)
	if !inBounds {
		return false, errMemoryBounds
	}
	*typ = int32(raw)

	return true, nil
}

func (h *wasmHandle) createDevice(fn api.Function, devName string) (mmdevice.Device, error) {
	var id int32
	err := h.withString(devName, func(ptr, n uint32) error {
		var err error
		id, err = h.callI32(fn, api.EncodeU32(ptr), api.EncodeU32(n))
		return err
	})
	if err != nil || id <= 0 {
		return nil, err
	}

	dev := newWasmDevice(h, uint32(id))
	h.mu.Lock()
	h.devices[uint32(id)] = dev
	h.mu.Unlock()

	return dev, nil
}

// call invokes a guest export.
func (h *wasmHandle) call(fn api.Function, params ...uint64) ([]uint64, error) {
	results, err := fn.Call(h.ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", fn.Definition().Name(), err)
	}

	return results, nil
}

// callI32 invokes a guest export returning one i32.
func (h *wasmHandle) callI32(fn api.Function, params ...uint64) (int32, error) {
	results, err := h.call(fn, params...)
	if err != nil {
		return 0, err
	}
	if len(results) < 1 {
		return 0, errNoResult
	}

	return api.DecodeI32(results[0]), nil
}

// callOut invokes an export that fills a guest buffer of len(buf) bytes
// whose address and size are appended to params, and copies the buffer back.
// The guest's bytes are copied verbatim: terminator checks are the caller's.
func (h *wasmHandle) callOut(fn api.Function, buf []byte, params ...uint64) (bool, error) {
	ptr, err := h.allocBuffer(uint32(len(buf)))
	if err != nil {
		return false, err
	}
	defer h.freeBuffer(ptr)

	params = append(params, api.EncodeU32(ptr), api.EncodeU32(uint32(len(buf))))
	v, err := h.callI32(fn, params...)
	if err != nil || v == 0 {
		return false, err
	}

	data, ok := h.mod.Memory().Read(ptr, uint32(len(buf)))
	if !ok {
		return false, errMemoryBounds
	}
	copy(buf, data)

	return true, nil
}

// withString copies s into guest memory for the duration of fn.
func (h *wasmHandle) withString(s string, fn func(ptr, n uint32) error) error {
	if len(s) == 0 {
		return fn(0, 0)
	}

	ptr, err := h.writeBuffer([]byte(s))
	if err != nil {
		return err
	}
	defer h.freeBuffer(ptr)

	return fn(ptr, uint32(len(s)))
}

// allocBuffer reserves size bytes of guest memory via the Alloc export.
func (h *wasmHandle) allocBuffer(size uint32) (uint32, error) {
	if h.alloc == nil {
		return 0, errNoAlloc
	}

	results, err := h.alloc.Call(h.ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("alloc failed: %w", err)
	}
	if len(results) < 1 {
		return 0, errors.New("alloc returned no results")
	}

	return api.DecodeU32(results[0]), nil
}

// writeBuffer allocates guest memory and copies data into it.
func (h *wasmHandle) writeBuffer(data []byte) (uint32, error) {
	ptr, err := h.allocBuffer(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if !h.mod.Memory().Write(ptr, data) {
		h.freeBuffer(ptr)
		return 0, errMemoryBounds
	}

	return ptr, nil
}

func (h *wasmHandle) freeBuffer(ptr uint32) {
	if h.free == nil {
		return
	}
	if _, err := h.free.Call(h.ctx, uint64(ptr)); err != nil {
		h.logTrap(wasmFree, err)
	}
}

func (h *wasmHandle) logTrap(export string, err error) {
	if err == nil {
		return
	}
	log.Error().
		Err(err).
		Str("event", "wasm_call_failed").
		Str("path", h.path).
		Str("export", export).
		Msg("wasm guest call failed")
}
