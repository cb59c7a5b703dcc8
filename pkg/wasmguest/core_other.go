//go:build !wasm

package wasmguest

import "github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"

// Outside wasm there is no host to call back into.

func coreLog(uint32, string, bool) mmdevice.Code { return mmdevice.ErrNoCallbackRegistered }

func coreGetProperty(uint32, string, string, uint32, uint32) mmdevice.Code {
	return mmdevice.ErrNoCallbackRegistered
}

func coreSetProperty(uint32, string, string, string) mmdevice.Code {
	return mmdevice.ErrNoCallbackRegistered
}

func coreDeviceOfType(uint32, mmdevice.DeviceType, int, uint32, uint32) mmdevice.Code {
	return mmdevice.ErrNoCallbackRegistered
}

func coreParentHub(uint32) uint32 { return 0 }
