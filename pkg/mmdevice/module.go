package mmdevice

import (
	"sort"
	"sync"
)

// Names of the entry points every module exports.
const (
	SymInitializeModuleData      = "InitializeModuleData"
	SymCreateDevice              = "CreateDevice"
	SymDeleteDevice              = "DeleteDevice"
	SymGetModuleVersion          = "GetModuleVersion"
	SymGetDeviceInterfaceVersion = "GetDeviceInterfaceVersion"
	SymGetNumberOfDevices        = "GetNumberOfDevices"
	SymGetDeviceName             = "GetDeviceName"
	SymGetDeviceType             = "GetDeviceType"
	SymGetDeviceDescription      = "GetDeviceDescription"
)

// Entry point signatures. They are aliases so that a Go plugin exporting
// plain functions satisfies them without naming this package's types.
type (
	InitializeModuleDataFunc      = func()
	CreateDeviceFunc              = func(name string) Device
	DeleteDeviceFunc              = func(dev Device)
	GetModuleVersionFunc          = func() int32
	GetDeviceInterfaceVersionFunc = func() int32
	GetNumberOfDevicesFunc        = func() uint32
	// GetDeviceNameFunc writes the index-th device name into buf.
	GetDeviceNameFunc = func(index uint32, buf []byte) bool
	// GetDeviceTypeFunc stores the advertised type of name into typ.
	GetDeviceTypeFunc = func(name string, typ *int32) bool
	// GetDeviceDescriptionFunc writes the description of name into buf.
	GetDeviceDescriptionFunc = func(name string, buf []byte) bool
)

// Symbols is the export table of a module linked into the host binary.
type Symbols map[string]any

var (
	builtinMu sync.RWMutex
	builtins  = make(map[string]Symbols)
)

// RegisterModule makes a module linked into the binary loadable by name.
// Adapter packages call it from init. Registering a name twice panics.
func RegisterModule(name string, syms Symbols) {
	builtinMu.Lock()
	defer builtinMu.Unlock()

	if _, dup := builtins[name]; dup {
		panic("mmdevice: module " + name + " registered twice")
	}
	builtins[name] = syms
}

// UnregisterModule removes a builtin module. Intended for tests.
func UnregisterModule(name string) {
	builtinMu.Lock()
	defer builtinMu.Unlock()

	delete(builtins, name)
}

// LookupModule returns the export table of a builtin module.
func LookupModule(name string) (Symbols, bool) {
	builtinMu.RLock()
	defer builtinMu.RUnlock()

	syms, ok := builtins[name]

	return syms, ok
}

// BuiltinModules lists the names of all builtin modules, sorted.
func BuiltinModules() []string {
	builtinMu.RLock()
	defer builtinMu.RUnlock()

	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
