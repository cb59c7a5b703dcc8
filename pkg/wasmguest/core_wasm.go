//go:build wasm

package wasmguest

import (
	"unsafe"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

//go:wasmimport env core_log
func hostCoreLog(id, msg, msgLen, debugOnly uint32) int32

//go:wasmimport env core_get_property
func hostCoreGetProperty(id, label, labelLen, name, nameLen, out, size uint32) int32

//go:wasmimport env core_set_property
func hostCoreSetProperty(id, label, labelLen, name, nameLen, value, valueLen uint32) int32

//go:wasmimport env core_device_of_type
func hostCoreDeviceOfType(id uint32, typ, index int32, out, size uint32) int32

//go:wasmimport env core_parent_hub
func hostCoreParentHub(id uint32) int32

func stringArg(s string) (uint32, uint32) {
	if s == "" {
		return 0, 0
	}
	//nolint:gosec // linear memory addresses are 32 bits wide on wasm.
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s))
}

func coreLog(id uint32, msg string, debugOnly bool) mmdevice.Code {
	ptr, n := stringArg(msg)
	return mmdevice.Code(hostCoreLog(id, ptr, n, uint32(Flag(debugOnly))))
}

func coreGetProperty(id uint32, label, name string, out, size uint32) mmdevice.Code {
	lp, ln := stringArg(label)
	np, nn := stringArg(name)

	return mmdevice.Code(hostCoreGetProperty(id, lp, ln, np, nn, out, size))
}

func coreSetProperty(id uint32, label, name, value string) mmdevice.Code {
	lp, ln := stringArg(label)
	np, nn := stringArg(name)
	vp, vn := stringArg(value)

	return mmdevice.Code(hostCoreSetProperty(id, lp, ln, np, nn, vp, vn))
}

func coreDeviceOfType(id uint32, t mmdevice.DeviceType, index int, out, size uint32) mmdevice.Code {
	return mmdevice.Code(hostCoreDeviceOfType(id, int32(t), int32(index), out, size))
}

func coreParentHub(id uint32) uint32 {
	return uint32(hostCoreParentHub(id))
}
