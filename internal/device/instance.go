// Package device wraps raw adapter devices in typed instances. Every call
// into a raw device holds the lock of the module that created it and
// translates failing result codes into *errorcodes.DeviceError.
package device

import (
	"errors"
	"sync"

	"github.com/micro-manager/micro-manager-sub007/internal/adapter"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
)

// Lifecycle is the position of an instance in its load cycle.
type Lifecycle int

// Lifecycle states.
const (
	Loaded Lifecycle = iota
	Initialized
	ShutDown
	Released
)

// String returns the state in lower case.
func (s Lifecycle) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case ShutDown:
		return "shut down"
	case Released:
		return "released"
	default:
		return "loaded"
	}
}

// Instance is a loaded device. The set of implementations is closed: one
// pointer type per device category, selected by New.
type Instance interface {
	Label() string
	Name() string
	ModuleName() string
	Module() *adapter.Module
	Description() string
	Type() mmdevice.DeviceType
	Raw() mmdevice.Device
	Lifecycle() Lifecycle

	Initialize() error
	Shutdown() error
	Release() error

	Busy() (bool, error)
	GetDelayMs() (float64, error)
	SetDelayMs(delay float64) error
	UsesDelay() (bool, error)

	PropertyNames() ([]string, error)
	HasProperty(name string) (bool, error)
	GetProperty(name string) (string, error)
	SetProperty(name, value string) error
	PropertyReadOnly(name string) (bool, error)
	PropertyPreInit(name string) (bool, error)
	PropertyType(name string) (mmdevice.PropertyType, error)
	PropertyLimits(name string) (has bool, lower, upper float64, err error)
	AllowedPropertyValues(name string) ([]string, error)
	PropertySequenceable(name string) (bool, int, error)
	StartPropertySequence(name string) error
	StopPropertySequence(name string) error
	ClearPropertySequence(name string) error
	AddToPropertySequence(name, value string) error
	SendPropertySequence(name string) error

	SupportsDeviceDetection() (bool, error)
	DetectDevice() (mmdevice.DetectionStatus, error)

	ParentID() (string, error)
	SetParentID(id string) error
	SetCallback(core mmdevice.Core) error

	base() *Base
}

// Base holds what every variant shares. Variants embed it.
type Base struct {
	module      *adapter.Module
	raw         mmdevice.Device
	label       string
	name        string
	description string
	typ         mmdevice.DeviceType
	self        Instance

	mu    sync.Mutex
	state Lifecycle
}

// BaseOf returns the shared part of an instance.
func BaseOf(inst Instance) *Base { return inst.base() }

// Instance returns the typed instance b belongs to.
func (b *Base) Instance() Instance { return b.self }

func (b *Base) base() *Base { return b }

// Label returns the label the device was loaded under.
func (b *Base) Label() string { return b.label }

// Name returns the adapter name of the device.
func (b *Base) Name() string { return b.name }

// ModuleName returns the name of the module that created the device.
func (b *Base) ModuleName() string { return b.module.Name() }

// Module returns the module that created the device.
func (b *Base) Module() *adapter.Module { return b.module }

// Description returns the catalog description.
func (b *Base) Description() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.description
}

// SetDescription attaches the catalog description.
func (b *Base) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.description = desc
}

// Type returns the device category.
func (b *Base) Type() mmdevice.DeviceType { return b.typ }

// Raw returns the adapter object. Calls on it bypass the module lock.
func (b *Base) Raw() mmdevice.Device { return b.raw }

// Lifecycle returns the current load state.
func (b *Base) Lifecycle() Lifecycle {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

func (b *Base) setState(s Lifecycle) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// enter takes the module lock unless the instance was released.
func (b *Base) enter() (func(), error) {
	if b.Lifecycle() == Released {
		return nil, errorcodes.New(errorcodes.ErrInstanceReleased, "device %s", b.label)
	}
	b.module.Lock()

	return b.module.Unlock, nil
}

// check translates a result code. The module lock must be held.
func (b *Base) check(op string, code mmdevice.Code) error {
	if !code.Failed() {
		return nil
	}

	text, ok := b.raw.GetErrorText(code)
	if !ok || text == "" {
		text = code.Text()
	}

	return &errorcodes.DeviceError{Label: b.label, Op: op, Code: code, Text: text}
}

// do runs a native call returning only a code.
func (b *Base) do(op string, fn func() mmdevice.Code) error {
	unlock, err := b.enter()
	if err != nil {
		return err
	}
	defer unlock()

	return b.check(op, fn())
}

// value runs a native call returning a value and a code.
func value[T any](b *Base, op string, fn func() (T, mmdevice.Code)) (T, error) {
	var zero T

	unlock, err := b.enter()
	if err != nil {
		return zero, err
	}
	defer unlock()

	v, code := fn()
	if err := b.check(op, code); err != nil {
		return zero, err
	}

	return v, nil
}

// read runs a native call that cannot fail.
func read[T any](b *Base, fn func() T) (T, error) {
	var zero T

	unlock, err := b.enter()
	if err != nil {
		return zero, err
	}
	defer unlock()

	return fn(), nil
}

// Initialize runs the device initialization and marks it initialized.
func (b *Base) Initialize() error {
	if err := b.do("Initialize", b.raw.Initialize); err != nil {
		return err
	}
	b.setState(Initialized)
	log.Debug().Str("event", "device_initialized").Str("label", b.label).Msg("device initialized")

	return nil
}

// Shutdown shuts the device down. It may be initialized again later.
func (b *Base) Shutdown() error {
	err := b.do("Shutdown", b.raw.Shutdown)
	if !errors.Is(err, errorcodes.ErrInstanceReleased) {
		b.setState(ShutDown)
	}

	return err
}

// Release deletes the raw device through the module destructor. The
// instance is unusable afterwards.
func (b *Base) Release() error {
	b.mu.Lock()
	if b.state == Released {
		b.mu.Unlock()
		return errorcodes.New(errorcodes.ErrInstanceReleased, "device %s", b.label)
	}
	b.state = Released
	b.mu.Unlock()

	return b.module.DeleteRawDevice(b.raw)
}

// Forget marks the instance released without calling the module
// destructor. The raw device stays with whoever else owns it.
func (b *Base) Forget() {
	b.setState(Released)
}

// Busy reports whether the device is still acting on a command.
func (b *Base) Busy() (bool, error) { return read(b, b.raw.Busy) }

// GetDelayMs returns the action delay in milliseconds.
func (b *Base) GetDelayMs() (float64, error) { return read(b, b.raw.GetDelayMs) }

// SetDelayMs sets the action delay in milliseconds.
func (b *Base) SetDelayMs(delay float64) error {
	_, err := read(b, none(func() { b.raw.SetDelayMs(delay) }))

	return err
}

// UsesDelay reports whether the device honors the action delay.
func (b *Base) UsesDelay() (bool, error) { return read(b, b.raw.UsesDelay) }

// PropertyNames returns the property names in device order.
func (b *Base) PropertyNames() ([]string, error) {
	unlock, err := b.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	n := b.raw.GetNumberOfProperties()
	names := make([]string, 0, n)
	for i := range n {
		name, ok := b.raw.GetPropertyName(i)
		if !ok {
			return nil, b.check("GetPropertyName", mmdevice.ErrInvalidProperty)
		}
		names = append(names, name)
	}

	return names, nil
}

// HasProperty reports whether the device has the named property.
func (b *Base) HasProperty(name string) (bool, error) {
	return read(b, func() bool { return b.raw.HasProperty(name) })
}

// GetProperty returns the value of a property.
func (b *Base) GetProperty(name string) (string, error) {
	return value(b, "GetProperty "+name, func() (string, mmdevice.Code) {
		return b.raw.GetProperty(name)
	})
}

// SetProperty sets the value of a property.
func (b *Base) SetProperty(name, val string) error {
	return b.do("SetProperty "+name, func() mmdevice.Code { return b.raw.SetProperty(name, val) })
}

// PropertyReadOnly reports whether a property is read-only.
func (b *Base) PropertyReadOnly(name string) (bool, error) {
	return value(b, "GetPropertyReadOnly "+name, func() (bool, mmdevice.Code) {
		return b.raw.GetPropertyReadOnly(name)
	})
}

// PropertyPreInit reports whether a property must be set before Initialize.
func (b *Base) PropertyPreInit(name string) (bool, error) {
	return value(b, "GetPropertyInitStatus "+name, func() (bool, mmdevice.Code) {
		return b.raw.GetPropertyInitStatus(name)
	})
}

// PropertyType returns the value type of a property.
func (b *Base) PropertyType(name string) (mmdevice.PropertyType, error) {
	return value(b, "GetPropertyType "+name, func() (mmdevice.PropertyType, mmdevice.Code) {
		return b.raw.GetPropertyType(name)
	})
}

// PropertyLimits returns the numeric range of a property, if it has one.
func (b *Base) PropertyLimits(name string) (has bool, lower, upper float64, err error) {
	unlock, err := b.enter()
	if err != nil {
		return false, 0, 0, err
	}
	defer unlock()

	has, code := b.raw.HasPropertyLimits(name)
	if err := b.check("HasPropertyLimits "+name, code); err != nil || !has {
		return false, 0, 0, err
	}
	lower, code = b.raw.GetPropertyLowerLimit(name)
	if err := b.check("GetPropertyLowerLimit "+name, code); err != nil {
		return false, 0, 0, err
	}
	upper, code = b.raw.GetPropertyUpperLimit(name)
	if err := b.check("GetPropertyUpperLimit "+name, code); err != nil {
		return false, 0, 0, err
	}

	return true, lower, upper, nil
}

// AllowedPropertyValues returns the values a property accepts; none means any.
func (b *Base) AllowedPropertyValues(name string) ([]string, error) {
	unlock, err := b.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !b.raw.HasProperty(name) {
		return nil, b.check("GetAllowedValues "+name, mmdevice.ErrInvalidProperty)
	}

	n := b.raw.GetNumberOfPropertyValues(name)
	values := make([]string, 0, n)
	for i := range n {
		v, ok := b.raw.GetPropertyValueAt(name, i)
		if !ok {
			return nil, b.check("GetPropertyValueAt "+name, mmdevice.ErrInvalidPropertyValue)
		}
		values = append(values, v)
	}

	return values, nil
}

// PropertySequenceable reports whether the property can be sequenced and
// the longest sequence the device accepts.
func (b *Base) PropertySequenceable(name string) (bool, int, error) {
	unlock, err := b.enter()
	if err != nil {
		return false, 0, err
	}
	defer unlock()

	ok, code := b.raw.IsPropertySequenceable(name)
	if err := b.check("IsPropertySequenceable "+name, code); err != nil || !ok {
		return false, 0, err
	}
	maxLen, code := b.raw.GetPropertySequenceMaxLength(name)
	if err := b.check("GetPropertySequenceMaxLength "+name, code); err != nil {
		return false, 0, err
	}

	return true, maxLen, nil
}

// StartPropertySequence starts running the loaded sequence of a property.
func (b *Base) StartPropertySequence(name string) error {
	return b.do("StartPropertySequence "+name, func() mmdevice.Code { return b.raw.StartPropertySequence(name) })
}

// StopPropertySequence stops a running property sequence.
func (b *Base) StopPropertySequence(name string) error {
	return b.do("StopPropertySequence "+name, func() mmdevice.Code { return b.raw.StopPropertySequence(name) })
}

// ClearPropertySequence empties the sequence of a property.
func (b *Base) ClearPropertySequence(name string) error {
	return b.do("ClearPropertySequence "+name, func() mmdevice.Code { return b.raw.ClearPropertySequence(name) })
}

// AddToPropertySequence appends a value to the sequence of a property.
func (b *Base) AddToPropertySequence(name, val string) error {
	return b.do("AddToPropertySequence "+name, func() mmdevice.Code {
		return b.raw.AddToPropertySequence(name, val)
	})
}

// SendPropertySequence uploads the sequence of a property to the hardware.
func (b *Base) SendPropertySequence(name string) error {
	return b.do("SendPropertySequence "+name, func() mmdevice.Code { return b.raw.SendPropertySequence(name) })
}

// SupportsDeviceDetection reports whether DetectDevice is implemented.
func (b *Base) SupportsDeviceDetection() (bool, error) {
	return read(b, b.raw.SupportsDeviceDetection)
}

// DetectDevice runs the device's detection routine. A result outside the
// known detection statuses is an error.
func (b *Base) DetectDevice() (mmdevice.DetectionStatus, error) {
	status, err := read(b, b.raw.DetectDevice)
	if err != nil {
		return mmdevice.Unimplemented, err
	}
	if !status.Valid() {
		return mmdevice.Unimplemented, errorcodes.New(errorcodes.ErrDevice,
			"device %s: invalid detection status %d", b.label, int32(status))
	}

	return status, nil
}

// ParentID returns the label of the parent hub, "" if none.
func (b *Base) ParentID() (string, error) { return read(b, b.raw.GetParentID) }

// SetParentID records the label of the parent hub.
func (b *Base) SetParentID(id string) error {
	_, err := read(b, none(func() { b.raw.SetParentID(id) }))

	return err
}

// SetCallback hands the device the core it calls back into.
func (b *Base) SetCallback(core mmdevice.Core) error {
	_, err := read(b, none(func() { b.raw.SetCallback(core) }))

	return err
}
