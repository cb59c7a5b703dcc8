package dynlib

import (
	"context"
	"fmt"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// hostModule is the import module name guest adapters link against.
const hostModule = "env"

// registerHostFunctions instantiates the env module for h.
//
// log_debug, log_info and log_error take a (ptr, len) message. The core_*
// functions are the device callbacks: their first parameter is the guest
// handle of the calling device, and they answer through the mmdevice.Core
// the host gave that device. Each returns a result code.
//
//	core_log(id, msg, msgLen, debugOnly)
//	core_get_property(id, label, labelLen, name, nameLen, out, size)
//	core_set_property(id, label, labelLen, name, nameLen, value, valueLen)
//	core_device_of_type(id, type, index, out, size)
//	core_parent_hub(id) -> hub handle, 0 if none
func registerHostFunctions(ctx context.Context, rt wazero.Runtime, h *wasmHandle) error {
	builder := rt.NewHostModuleBuilder(hostModule)

	builder.NewFunctionBuilder().
		WithFunc(guestLogger(zerolog.DebugLevel)).
		Export("log_debug")

	builder.NewFunctionBuilder().
		WithFunc(guestLogger(zerolog.InfoLevel)).
		Export("log_info")

	builder.NewFunctionBuilder().
		WithFunc(guestLogger(zerolog.ErrorLevel)).
		Export("log_error")

	builder.NewFunctionBuilder().WithFunc(h.coreLog).Export("core_log")
	builder.NewFunctionBuilder().WithFunc(h.coreGetProperty).Export("core_get_property")
	builder.NewFunctionBuilder().WithFunc(h.coreSetProperty).Export("core_set_property")
	builder.NewFunctionBuilder().WithFunc(h.coreDeviceOfType).Export("core_device_of_type")
	builder.NewFunctionBuilder().WithFunc(h.coreParentHub).Export("core_parent_hub")

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate host functions module: %w", err)
	}

	return nil
}

func guestLogger(level zerolog.Level) func(context.Context, api.Module, uint32, uint32) {
	return func(_ context.Context, mod api.Module, ptr, size uint32) {
		data, err := readMemory(mod, ptr, size)
		if err != nil {
			log.Error().Err(err).Msg("failed to read guest log message")
			return
		}

		log.WithLevel(level).
			Str("source", "wasm").
			Str("module", mod.Name()).
			Msg(string(data))
	}
}

// caller resolves the device behind a guest handle together with the core
// it reports to.
func (h *wasmHandle) caller(id uint32) (mmdevice.Device, mmdevice.Core, bool) {
	h.mu.Lock()
	dev, ok := h.devices[id]
	h.mu.Unlock()
	if !ok {
		return nil, nil, false
	}

	core := dev.(wasmBacked).wasmBase().core

	return dev, core, core != nil
}

func (h *wasmHandle) coreLog(_ context.Context, mod api.Module, id, ptr, size, debugOnly uint32) int32 {
	dev, core, ok := h.caller(id)
	if !ok {
		return int32(mmdevice.ErrNoCallbackRegistered)
	}
	msg, err := readString(mod, ptr, size)
	if err != nil {
		h.logTrap("core_log", err)
		return int32(mmdevice.ErrInvalidInputParam)
	}

	return int32(core.LogMessage(dev, msg, debugOnly != 0))
}

func (h *wasmHandle) coreGetProperty(_ context.Context, mod api.Module,
	id, labelPtr, labelLen, namePtr, nameLen, out, size uint32,
) int32 {
	dev, core, ok := h.caller(id)
	if !ok {
		return int32(mmdevice.ErrNoCallbackRegistered)
	}
	label, err := readString(mod, labelPtr, labelLen)
	if err != nil {
		h.logTrap("core_get_property", err)
		return int32(mmdevice.ErrInvalidInputParam)
	}
	name, err := readString(mod, namePtr, nameLen)
	if err != nil {
		h.logTrap("core_get_property", err)
		return int32(mmdevice.ErrInvalidInputParam)
	}

	value, code := core.GetDeviceProperty(dev, label, name)
	if code.Failed() {
		return int32(code)
	}

	return int32(writeString(mod, out, size, value))
}

func (h *wasmHandle) coreSetProperty(_ context.Context, mod api.Module,
	id, labelPtr, labelLen, namePtr, nameLen, valuePtr, valueLen uint32,
) int32 {
	dev, core, ok := h.caller(id)
	if !ok {
		return int32(mmdevice.ErrNoCallbackRegistered)
	}

	var args [3]string
	for i, s := range [][2]uint32{{labelPtr, labelLen}, {namePtr, nameLen}, {valuePtr, valueLen}} {
		v, err := readString(mod, s[0], s[1])
		if err != nil {
			h.logTrap("core_set_property", err)
			return int32(mmdevice.ErrInvalidInputParam)
		}
		args[i] = v
	}

	return int32(core.SetDeviceProperty(dev, args[0], args[1], args[2]))
}

func (h *wasmHandle) coreDeviceOfType(_ context.Context, mod api.Module, id uint32, typ, index int32, out, size uint32) int32 {
	dev, core, ok := h.caller(id)
	if !ok {
		return int32(mmdevice.ErrNoCallbackRegistered)
	}
	label := core.GetLoadedDeviceOfType(dev, mmdevice.DeviceType(typ), int(index))

	return int32(writeString(mod, out, size, label))
}

// coreParentHub returns the guest handle of the caller's hub. A hub living
// outside this module has no handle the guest could use, so it reads as none.
func (h *wasmHandle) coreParentHub(_ context.Context, _ api.Module, id uint32) int32 {
	dev, core, ok := h.caller(id)
	if !ok {
		return 0
	}
	hub := core.GetParentHub(dev)
	if hub == nil {
		return 0
	}
	hid, ok := wasmDeviceID(hub, h)
	if !ok {
		return 0
	}

	return int32(hid)
}

// readMemory copies bytes out of guest memory.
func readMemory(mod api.Module, ptr, size uint32) ([]byte, error) {
	if mod == nil {
		return nil, fmt.Errorf("nil module")
	}

	memory := mod.Memory()
	if memory == nil {
		return nil, fmt.Errorf("no memory exported")
	}

	data, ok := memory.Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("failed to read memory at %d[%d]", ptr, size)
	}

	return append([]byte(nil), data...), nil
}

// readString reads a (ptr, len) string argument; a zero length is "".
func readString(mod api.Module, ptr, size uint32) (string, error) {
	if size == 0 {
		return "", nil
	}
	data, err := readMemory(mod, ptr, size)

	return string(data), err
}

// writeString stores s NUL-terminated into the guest buffer out of size bytes.
func writeString(mod api.Module, out, size uint32, s string) mmdevice.Code {
	if uint32(len(s)) >= size {
		return mmdevice.ErrBufferOverflow
	}
	if mod.Memory() == nil || !mod.Memory().Write(out, append([]byte(s), 0)) {
		return mmdevice.ErrInvalidInputParam
	}

	return mmdevice.OK
}
