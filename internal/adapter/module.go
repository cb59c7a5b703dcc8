// Package adapter wraps loaded device adapter modules: ABI negotiation,
// cached entry points, catalog queries and the per-module lock.
package adapter

import (
	"context"
	"sync"

	"github.com/micro-manager/micro-manager-sub007/internal/dynlib"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// Module is one loaded adapter module. It is shared by every device created
// from it and lives until the Loader drops it.
//
// Module implements sync.Locker. The lock serializes every call into the
// module, since adapters may keep module-global native state.
type Module struct {
	name   string
	handle dynlib.Handle

	mu sync.Mutex

	symMu sync.Mutex
	syms  map[string]any
}

func newModule(name string, handle dynlib.Handle) *Module {
	return &Module{
		name:   name,
		handle: handle,
		syms:   make(map[string]any),
	}
}

// Name is the module name used to load it.
func (m *Module) Name() string { return m.name }

// Path is the file the module was loaded from.
func (m *Module) Path() string { return m.handle.Path() }

// Lock acquires the module lock.
func (m *Module) Lock() { m.mu.Lock() }

// Unlock releases the module lock.
func (m *Module) Unlock() { m.mu.Unlock() }

// resolve returns the entry point name with signature T, looking it up on
// first use.
func resolve[T any](m *Module, name string) (T, error) {
	m.symMu.Lock()
	defer m.symMu.Unlock()

	var zero T
	if sym, ok := m.syms[name]; ok {
		return sym.(T), nil
	}

	sym, err := m.handle.Lookup(name)
	if err != nil {
		return zero, err
	}

	// Go plugins export function variables as pointers.
	fn, ok := sym.(T)
	if !ok {
		ptr, isPtr := sym.(*T)
		if !isPtr || ptr == nil {
			return zero, errorcodes.New(errorcodes.ErrSymbolNotFound,
				"%s in %s: unexpected signature %T", name, m.Path(), sym)
		}
		fn = *ptr
	}
	m.syms[name] = fn

	return fn, nil
}

// GetAvailableDeviceNames lists the devices the module advertises.
func (m *Module) GetAvailableDeviceNames() ([]string, error) {
	count, err := resolve[mmdevice.GetNumberOfDevicesFunc](m, mmdevice.SymGetNumberOfDevices)
	if err != nil {
		return nil, err
	}
	nameAt, err := resolve[mmdevice.GetDeviceNameFunc](m, mmdevice.SymGetDeviceName)
	if err != nil {
		return nil, err
	}

	m.Lock()
	defer m.Unlock()

	n := count()
	names := make([]string, 0, n)
	buf := make([]byte, mmdevice.MaxStrLength)
	for i := range n {
		clear(buf)
		if !nameAt(i, buf) {
			return nil, errorcodes.New(errorcodes.ErrDeviceNotAdvertised,
				"module %s has no device at index %d", m.name, i)
		}
		name, ok := mmdevice.CString(buf)
		if !ok {
			return nil, errorcodes.New(errorcodes.ErrBufferOverflow,
				"module %s: name of device %d", m.name, i)
		}
		names = append(names, name)
	}

	return names, nil
}

// GetDeviceDescription returns the catalog description of a device.
func (m *Module) GetDeviceDescription(deviceName string) (string, error) {
	describe, err := resolve[mmdevice.GetDeviceDescriptionFunc](m, mmdevice.SymGetDeviceDescription)
	if err != nil {
		return "", err
	}

	buf := make([]byte, mmdevice.MaxStrLength)

	m.Lock()
	ok := describe(deviceName, buf)
	m.Unlock()

	if !ok {
		return "", errorcodes.New(errorcodes.ErrDeviceNotAdvertised,
			"module %s: device %s", m.name, deviceName)
	}
	desc, terminated := mmdevice.CString(buf)
	if !terminated {
		return "", errorcodes.New(errorcodes.ErrBufferOverflow,
			"module %s: description of %s", m.name, deviceName)
	}

	return desc, nil
}

// GetAdvertisedType returns the catalog type of a device.
func (m *Module) GetAdvertisedType(deviceName string) (mmdevice.DeviceType, error) {
	typeOf, err := resolve[mmdevice.GetDeviceTypeFunc](m, mmdevice.SymGetDeviceType)
	if err != nil {
		return mmdevice.UnknownType, err
	}

	var raw int32

	m.Lock()
	ok := typeOf(deviceName, &raw)
	m.Unlock()

	if !ok {
		return mmdevice.UnknownType, errorcodes.New(errorcodes.ErrDeviceNotAdvertised,
			"module %s: device %s", m.name, deviceName)
	}

	return mmdevice.DeviceType(raw), nil
}

// CreateRawDevice calls the module factory. The caller owns the result and
// must pass it to DeleteRawDevice exactly once.
func (m *Module) CreateRawDevice(deviceName string) (mmdevice.Device, error) {
	create, err := resolve[mmdevice.CreateDeviceFunc](m, mmdevice.SymCreateDevice)
	if err != nil {
		return nil, err
	}

	m.Lock()
	dev := create(deviceName)
	m.Unlock()

	if dev == nil {
		return nil, errorcodes.New(errorcodes.ErrDeviceCreation,
			"module %s: device %s", m.name, deviceName)
	}

	return dev, nil
}

// DeleteRawDevice calls the module destructor.
func (m *Module) DeleteRawDevice(dev mmdevice.Device) error {
	destroy, err := resolve[mmdevice.DeleteDeviceFunc](m, mmdevice.SymDeleteDevice)
	if err != nil {
		return err
	}

	m.Lock()
	destroy(dev)
	m.Unlock()

	return nil
}

// negotiate checks both interface versions against the host's.
func (m *Module) negotiate() error {
	moduleVersion, err := resolve[mmdevice.GetModuleVersionFunc](m, mmdevice.SymGetModuleVersion)
	if err != nil {
		return err
	}
	deviceVersion, err := resolve[mmdevice.GetDeviceInterfaceVersionFunc](
		m, mmdevice.SymGetDeviceInterfaceVersion)
	if err != nil {
		return err
	}

	m.Lock()
	defer m.Unlock()

	if v := moduleVersion(); v != mmdevice.ModuleInterfaceVersion {
		return errorcodes.New(errorcodes.ErrIncompatibleModule,
			"module %s has interface version %d, host requires %d",
			m.name, v, mmdevice.ModuleInterfaceVersion)
	}
	if v := deviceVersion(); v != mmdevice.DeviceInterfaceVersion {
		return errorcodes.New(errorcodes.ErrIncompatibleDeviceInterface,
			"module %s has device interface version %d, host requires %d",
			m.name, v, mmdevice.DeviceInterfaceVersion)
	}

	return nil
}

func (m *Module) initializeData() error {
	initFn, err := resolve[mmdevice.InitializeModuleDataFunc](m, mmdevice.SymInitializeModuleData)
	if err != nil {
		return err
	}

	m.Lock()
	initFn()
	m.Unlock()

	return nil
}

func (m *Module) unload(ctx context.Context) error {
	return m.handle.Unload(ctx)
}
