package mmdevice

import "sync"

// Catalog is the module-side list of devices a module advertises. It
// implements the catalog entry points on top of fixed string buffers.
type Catalog struct {
	mu      sync.RWMutex
	entries []catalogEntry
}

type catalogEntry struct {
	name        string
	typ         DeviceType
	description string
}

// Add advertises a device. Adding an existing name replaces its entry.
func (c *Catalog) Add(name string, typ DeviceType, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].name == name {
			c.entries[i] = catalogEntry{name, typ, description}
			return
		}
	}
	c.entries = append(c.entries, catalogEntry{name, typ, description})
}

// Len is the GetNumberOfDevices entry point.
func (c *Catalog) Len() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return uint32(len(c.entries))
}

// Name is the GetDeviceName entry point.
func (c *Catalog) Name(index uint32, buf []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(index) >= len(c.entries) {
		return false
	}

	return CopyCString(buf, c.entries[index].name)
}

// Type is the GetDeviceType entry point.
func (c *Catalog) Type(name string, typ *int32) bool {
	e, ok := c.find(name)
	if !ok || typ == nil {
		return false
	}
	*typ = int32(e.typ)

	return true
}

// Description is the GetDeviceDescription entry point.
func (c *Catalog) Description(name string, buf []byte) bool {
	e, ok := c.find(name)
	if !ok {
		return false
	}

	return CopyCString(buf, e.description)
}

func (c *Catalog) find(name string) (catalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.name == name {
			return e, true
		}
	}

	return catalogEntry{}, false
}

// Symbols builds the standard export table of a module from its catalog,
// an initializer, a factory and a destructor. initFn and deleteFn may be nil.
func (c *Catalog) Symbols(
	initFn func(),
	createFn func(name string) Device,
	deleteFn func(dev Device),
) Symbols {
	if initFn == nil {
		initFn = func() {}
	}
	if deleteFn == nil {
		deleteFn = func(Device) {}
	}

	return Symbols{
		SymInitializeModuleData:      InitializeModuleDataFunc(initFn),
		SymCreateDevice:              CreateDeviceFunc(createFn),
		SymDeleteDevice:              DeleteDeviceFunc(deleteFn),
		SymGetModuleVersion:          GetModuleVersionFunc(func() int32 { return ModuleInterfaceVersion }),
		SymGetDeviceInterfaceVersion: GetDeviceInterfaceVersionFunc(func() int32 { return DeviceInterfaceVersion }),
		SymGetNumberOfDevices:        GetNumberOfDevicesFunc(c.Len),
		SymGetDeviceName:             GetDeviceNameFunc(c.Name),
		SymGetDeviceType:             GetDeviceTypeFunc(c.Type),
		SymGetDeviceDescription:      GetDeviceDescriptionFunc(c.Description),
	}
}
