package registry

import (
	"errors"

	"github.com/micro-manager/micro-manager-sub007/internal/device"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
)

// callback is the mmdevice.Core handed to every loaded device.
//
// Devices call back while a native call of theirs is in progress, so the
// caller's module lock is already held. Calls that target a device of the
// same module go straight to the raw device; anything else goes through the
// target's instance, which takes the target module's lock.
type callback struct {
	r *Registry
}

var _ mmdevice.Core = (*callback)(nil)

// caller resolves the instance a callback comes from.
func (c *callback) caller(dev mmdevice.Device) (device.Instance, bool) {
	inst, err := c.r.GetDeviceByRaw(dev)
	return inst, err == nil
}

func (c *callback) LogMessage(caller mmdevice.Device, msg string, debugOnly bool) mmdevice.Code {
	label := "<unregistered>"
	if inst, ok := c.caller(caller); ok {
		label = inst.Label()
	}

	ev := log.Info()
	if debugOnly {
		ev = log.Debug()
	}
	ev.Str("source", "device").Str("label", label).Msg(msg)

	return mmdevice.OK
}

// target resolves label for a callback from caller and reports whether the
// call may go to the raw device directly.
func (c *callback) target(caller mmdevice.Device, label string) (device.Instance, bool, mmdevice.Code) {
	from, ok := c.caller(caller)
	if !ok {
		return nil, false, mmdevice.ErrNoCallbackRegistered
	}
	to, err := c.r.GetDevice(label)
	if err != nil {
		return nil, false, mmdevice.ErrUnknownLabel
	}
	if to.Raw() == caller {
		return nil, false, mmdevice.ErrSelfReference
	}

	return to, to.Module() == from.Module(), mmdevice.OK
}

func (c *callback) GetDeviceProperty(caller mmdevice.Device, label, name string) (string, mmdevice.Code) {
	to, direct, code := c.target(caller, label)
	if code.Failed() {
		return "", code
	}
	if direct {
		return to.Raw().GetProperty(name)
	}

	v, err := to.GetProperty(name)

	return v, codeOf(err)
}

func (c *callback) SetDeviceProperty(caller mmdevice.Device, label, name, value string) mmdevice.Code {
	to, direct, code := c.target(caller, label)
	if code.Failed() {
		return code
	}
	if direct {
		return to.Raw().SetProperty(name, value)
	}

	return codeOf(to.SetProperty(name, value))
}

func (c *callback) GetLoadedDeviceOfType(_ mmdevice.Device, t mmdevice.DeviceType, index int) string {
	labels := c.r.GetDeviceList(t)
	if index < 0 || index >= len(labels) {
		return ""
	}

	return labels[index]
}

func (c *callback) GetParentHub(caller mmdevice.Device) mmdevice.Hub {
	from, ok := c.caller(caller)
	if !ok {
		return nil
	}

	hub, err := c.r.parentOf(from, caller.GetParentID())
	if err != nil || hub == nil {
		return nil
	}
	raw, _ := hub.Raw().(mmdevice.Hub)

	return raw
}

// codeOf maps a host error back to a device result code.
func codeOf(err error) mmdevice.Code {
	if err == nil {
		return mmdevice.OK
	}

	var de *errorcodes.DeviceError
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, errorcodes.ErrUnknownLabel) {
		return mmdevice.ErrUnknownLabel
	}

	return mmdevice.Err
}
