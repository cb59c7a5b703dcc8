package wasmguest

import (
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// Module holds the catalog and the live devices of a guest adapter. Its
// methods take and return the raw i32 values of the wasm exports of the
// same name; device methods take the handle returned by CreateDevice
// first.
type Module struct {
	Catalog mmdevice.Catalog

	create  func(name string) mmdevice.Device
	devices map[int32]mmdevice.Device
	next    int32

	// installed holds the handles handed out for each hub's peripherals.
	installed map[int32][]int32
}

// NewModule returns a module whose CreateDevice calls create.
func NewModule(create func(name string) mmdevice.Device) *Module {
	return &Module{
		create:    create,
		devices:   make(map[int32]mmdevice.Device),
		installed: make(map[int32][]int32),
	}
}

// GetModuleVersion returns the module interface version the guest was
// built against.
func (m *Module) GetModuleVersion() int32 { return mmdevice.ModuleInterfaceVersion }

// GetDeviceInterfaceVersion returns the device interface version the
// guest was built against.
func (m *Module) GetDeviceInterfaceVersion() int32 { return mmdevice.DeviceInterfaceVersion }

func (m *Module) GetNumberOfDevices() int32 { return int32(m.Catalog.Len()) }

func (m *Module) GetDeviceName(index, out, size uint32) int32 {
	buf, ok := Bytes(out, size)
	return Flag(ok && m.Catalog.Name(index, buf))
}

func (m *Module) GetDeviceDescription(namePtr, nameLen, out, size uint32) int32 {
	buf, ok := Bytes(out, size)
	return Flag(ok && m.Catalog.Description(String(namePtr, nameLen), buf))
}

func (m *Module) GetDeviceType(namePtr, nameLen, out uint32) int32 {
	var typ int32
	if !m.Catalog.Type(String(namePtr, nameLen), &typ) {
		return 0
	}

	return Flag(PutUint32(out, uint32(typ)))
}

// CreateDevice creates the named device and returns its handle, or 0. The
// device calls back into the host through the env.core_* imports.
func (m *Module) CreateDevice(namePtr, nameLen uint32) int32 {
	dev := m.create(String(namePtr, nameLen))
	if dev == nil {
		return 0
	}
	dev.SetCallback(hostCore{m})

	return m.adopt(dev)
}

// DeleteDevice forgets the device behind id and the peripherals it listed.
func (m *Module) DeleteDevice(id uint32) {
	m.forgetInstalled(int32(id))
	delete(m.devices, int32(id))
}

// adopt returns the handle of dev, assigning one if it has none.
func (m *Module) adopt(dev mmdevice.Device) int32 {
	if id, ok := m.handleOf(dev); ok {
		return int32(id)
	}
	m.next++
	m.devices[m.next] = dev

	return m.next
}

// handleOf finds the handle of a live device.
func (m *Module) handleOf(dev mmdevice.Device) (uint32, bool) {
	for id, d := range m.devices {
		if d == dev {
			return uint32(id), true
		}
	}

	return 0, false
}

func (m *Module) forgetInstalled(hub int32) {
	for _, id := range m.installed[hub] {
		delete(m.devices, id)
	}
	delete(m.installed, hub)
}

// Device returns the device behind id.
func (m *Module) Device(id uint32) (mmdevice.Device, bool) {
	dev, ok := m.devices[int32(id)]
	return dev, ok
}

func (m *Module) code(id uint32, fn func(mmdevice.Device) mmdevice.Code) int32 {
	dev, ok := m.Device(id)
	if !ok {
		return int32(mmdevice.ErrInvalidInputParam)
	}

	return int32(fn(dev))
}

func (m *Module) value(id uint32, fn func(mmdevice.Device) (int, mmdevice.Code)) int32 {
	dev, ok := m.Device(id)
	if !ok {
		return Value(0, mmdevice.ErrInvalidInputParam)
	}

	return Value(fn(dev))
}

func (m *Module) flag(id uint32, fn func(mmdevice.Device) (bool, mmdevice.Code)) int32 {
	dev, ok := m.Device(id)
	if !ok {
		return Value(0, mmdevice.ErrInvalidInputParam)
	}

	return Bool(fn(dev))
}

func (m *Module) str(id, out, size uint32, fn func(mmdevice.Device) (string, mmdevice.Code)) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		s, code := fn(dev)
		if code.Failed() {
			return code
		}

		return PutString(out, size, s)
	})
}

func (m *Module) float(id, out uint32, fn func(mmdevice.Device) (float64, mmdevice.Code)) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		v, code := fn(dev)
		if code.Failed() {
			return code
		}

		return PutFloat(out, v)
	})
}

func found(s string, ok bool) (string, mmdevice.Code) {
	if !ok {
		return "", mmdevice.ErrInvalidInputParam
	}

	return s, mmdevice.OK
}

func (m *Module) Initialize(id uint32) int32 {
	return m.code(id, mmdevice.Device.Initialize)
}

func (m *Module) Shutdown(id uint32) int32 {
	return m.code(id, mmdevice.Device.Shutdown)
}

func (m *Module) GetName(id, out, size uint32) int32 {
	return m.str(id, out, size, func(dev mmdevice.Device) (string, mmdevice.Code) {
		return dev.GetName(), mmdevice.OK
	})
}

func (m *Module) GetType(id uint32) int32 {
	return m.value(id, func(dev mmdevice.Device) (int, mmdevice.Code) {
		return int(dev.GetType()), mmdevice.OK
	})
}

func (m *Module) Busy(id uint32) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		return dev.Busy(), mmdevice.OK
	})
}

func (m *Module) GetErrorText(id uint32, code int32, out, size uint32) int32 {
	return m.str(id, out, size, func(dev mmdevice.Device) (string, mmdevice.Code) {
		return found(dev.GetErrorText(mmdevice.Code(code)))
	})
}

func (m *Module) GetNumberOfProperties(id uint32) int32 {
	return m.value(id, func(dev mmdevice.Device) (int, mmdevice.Code) {
		return dev.GetNumberOfProperties(), mmdevice.OK
	})
}

func (m *Module) GetPropertyName(id uint32, index int32, out, size uint32) int32 {
	return m.str(id, out, size, func(dev mmdevice.Device) (string, mmdevice.Code) {
		return found(dev.GetPropertyName(int(index)))
	})
}

func (m *Module) HasProperty(id, namePtr, nameLen uint32) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		return dev.HasProperty(String(namePtr, nameLen)), mmdevice.OK
	})
}

func (m *Module) GetProperty(id, namePtr, nameLen, out, size uint32) int32 {
	return m.str(id, out, size, func(dev mmdevice.Device) (string, mmdevice.Code) {
		return dev.GetProperty(String(namePtr, nameLen))
	})
}

func (m *Module) SetProperty(id, namePtr, nameLen, valuePtr, valueLen uint32) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		return dev.SetProperty(String(namePtr, nameLen), String(valuePtr, valueLen))
	})
}

func (m *Module) GetPropertyReadOnly(id, namePtr, nameLen uint32) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		return dev.GetPropertyReadOnly(String(namePtr, nameLen))
	})
}

func (m *Module) GetPropertyInitStatus(id, namePtr, nameLen uint32) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		return dev.GetPropertyInitStatus(String(namePtr, nameLen))
	})
}

func (m *Module) GetPropertyType(id, namePtr, nameLen uint32) int32 {
	return m.value(id, func(dev mmdevice.Device) (int, mmdevice.Code) {
		typ, code := dev.GetPropertyType(String(namePtr, nameLen))
		return int(typ), code
	})
}

func (m *Module) HasPropertyLimits(id, namePtr, nameLen uint32) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		return dev.HasPropertyLimits(String(namePtr, nameLen))
	})
}

func (m *Module) GetPropertyLowerLimit(id, namePtr, nameLen, out uint32) int32 {
	return m.float(id, out, func(dev mmdevice.Device) (float64, mmdevice.Code) {
		return dev.GetPropertyLowerLimit(String(namePtr, nameLen))
	})
}

func (m *Module) GetPropertyUpperLimit(id, namePtr, nameLen, out uint32) int32 {
	return m.float(id, out, func(dev mmdevice.Device) (float64, mmdevice.Code) {
		return dev.GetPropertyUpperLimit(String(namePtr, nameLen))
	})
}

func (m *Module) GetNumberOfPropertyValues(id, namePtr, nameLen uint32) int32 {
	return m.value(id, func(dev mmdevice.Device) (int, mmdevice.Code) {
		return dev.GetNumberOfPropertyValues(String(namePtr, nameLen)), mmdevice.OK
	})
}

func (m *Module) GetPropertyValueAt(id, namePtr, nameLen uint32, index int32, out, size uint32) int32 {
	return m.str(id, out, size, func(dev mmdevice.Device) (string, mmdevice.Code) {
		return found(dev.GetPropertyValueAt(String(namePtr, nameLen), int(index)))
	})
}

func (m *Module) IsPropertySequenceable(id, namePtr, nameLen uint32) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		return dev.IsPropertySequenceable(String(namePtr, nameLen))
	})
}

func (m *Module) GetPropertySequenceMaxLength(id, namePtr, nameLen uint32) int32 {
	return m.value(id, func(dev mmdevice.Device) (int, mmdevice.Code) {
		return dev.GetPropertySequenceMaxLength(String(namePtr, nameLen))
	})
}

func (m *Module) StartPropertySequence(id, namePtr, nameLen uint32) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		return dev.StartPropertySequence(String(namePtr, nameLen))
	})
}

func (m *Module) StopPropertySequence(id, namePtr, nameLen uint32) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		return dev.StopPropertySequence(String(namePtr, nameLen))
	})
}

func (m *Module) ClearPropertySequence(id, namePtr, nameLen uint32) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		return dev.ClearPropertySequence(String(namePtr, nameLen))
	})
}

func (m *Module) AddToPropertySequence(id, namePtr, nameLen, valuePtr, valueLen uint32) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		return dev.AddToPropertySequence(String(namePtr, nameLen), String(valuePtr, valueLen))
	})
}

func (m *Module) SendPropertySequence(id, namePtr, nameLen uint32) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		return dev.SendPropertySequence(String(namePtr, nameLen))
	})
}

func (m *Module) SupportsDeviceDetection(id uint32) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		return dev.SupportsDeviceDetection(), mmdevice.OK
	})
}

// DetectDevice returns the detection status itself, which may be negative.
func (m *Module) DetectDevice(id uint32) int32 {
	dev, ok := m.Device(id)
	if !ok {
		return int32(mmdevice.Unimplemented)
	}

	return int32(dev.DetectDevice())
}
