package wasmguest

import (
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// hostCore is the mmdevice.Core every guest device is given. Calls name
// the caller to the host by its handle.
type hostCore struct{ m *Module }

var _ mmdevice.Core = hostCore{}

func (c hostCore) LogMessage(caller mmdevice.Device, msg string, debugOnly bool) mmdevice.Code {
	id, ok := c.m.handleOf(caller)
	if !ok {
		return mmdevice.ErrNoCallbackRegistered
	}

	return coreLog(id, msg, debugOnly)
}

func (c hostCore) GetDeviceProperty(caller mmdevice.Device, label, name string) (string, mmdevice.Code) {
	id, ok := c.m.handleOf(caller)
	if !ok {
		return "", mmdevice.ErrNoCallbackRegistered
	}

	return readString(func(out, size uint32) mmdevice.Code {
		return coreGetProperty(id, label, name, out, size)
	})
}

func (c hostCore) SetDeviceProperty(caller mmdevice.Device, label, name, value string) mmdevice.Code {
	id, ok := c.m.handleOf(caller)
	if !ok {
		return mmdevice.ErrNoCallbackRegistered
	}

	return coreSetProperty(id, label, name, value)
}

func (c hostCore) GetLoadedDeviceOfType(caller mmdevice.Device, t mmdevice.DeviceType, index int) string {
	id, ok := c.m.handleOf(caller)
	if !ok {
		return ""
	}
	label, _ := readString(func(out, size uint32) mmdevice.Code {
		return coreDeviceOfType(id, t, index, out, size)
	})

	return label
}

// GetParentHub only finds hubs living in the same module.
func (c hostCore) GetParentHub(caller mmdevice.Device) mmdevice.Hub {
	id, ok := c.m.handleOf(caller)
	if !ok {
		return nil
	}
	dev, ok := c.m.Device(coreParentHub(id))
	if !ok {
		return nil
	}
	hub, _ := dev.(mmdevice.Hub)

	return hub
}

// readString lets fill write a NUL-terminated string into a fresh buffer.
func readString(fill func(out, size uint32) mmdevice.Code) (string, mmdevice.Code) {
	out := Alloc(mmdevice.MaxStrLength)
	defer Free(out)

	if code := fill(out, mmdevice.MaxStrLength); code.Failed() {
		return "", code
	}
	buf, ok := Bytes(out, mmdevice.MaxStrLength)
	if !ok {
		return "", mmdevice.ErrInvalidInputParam
	}
	s, terminated := mmdevice.CString(buf)
	if !terminated {
		return "", mmdevice.ErrBufferOverflow
	}

	return s, mmdevice.OK
}
