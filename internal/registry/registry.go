// Package registry keeps the set of loaded devices. Each device is known by
// a unique label; the registry drives loading and teardown, answers
// lookups by label, type and raw device, and resolves hub peripherals.
//
// Structural changes (load, unload) are single-writer: callers serialize
// them. Lookups may run concurrently with each other and with device
// callbacks.
package registry

import (
	"errors"
	"reflect"
	"slices"
	"sync"
	"time"
	"weak"

	"github.com/micro-manager/micro-manager-sub007/internal/adapter"
	"github.com/micro-manager/micro-manager-sub007/internal/device"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
)

// Default polling parameters of WaitForDevice.
const (
	DefaultPollingInterval = 10 * time.Millisecond
	DefaultTimeout         = 5 * time.Second
)

// Registry owns loaded device instances.
type Registry struct {
	loader          *adapter.Loader
	pollingInterval time.Duration
	timeout         time.Duration
	core            *callback

	mu      sync.RWMutex
	devices []device.Instance // load order
	byRaw   map[mmdevice.Device]weak.Pointer[device.Base]
}

// Option configures a Registry.
type Option func(*Registry)

// WithPolling sets how often WaitForDevice polls and how long it waits.
func WithPolling(interval, timeout time.Duration) Option {
	return func(r *Registry) {
		if interval > 0 {
			r.pollingInterval = interval
		}
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// New returns an empty registry that loads modules through loader.
func New(loader *adapter.Loader, opts ...Option) *Registry {
	r := &Registry{
		loader:          loader,
		pollingInterval: DefaultPollingInterval,
		timeout:         DefaultTimeout,
		byRaw:           make(map[mmdevice.Device]weak.Pointer[device.Base]),
	}
	r.core = &callback{r: r}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Loader returns the module loader the registry uses.
func (r *Registry) Loader() *adapter.Loader { return r.loader }

// LoadDevice creates deviceName from moduleName and registers it under
// label. The device is not initialized. On failure the registry is left
// unchanged and no raw device stays allocated.
func (r *Registry) LoadDevice(label, moduleName, deviceName string) (device.Instance, error) {
	if label == "" {
		return nil, errorcodes.New(errorcodes.ErrInvalidLabel, "loading %s from %s", deviceName, moduleName)
	}
	if _, err := r.GetDevice(label); err == nil {
		return nil, errorcodes.New(errorcodes.ErrDuplicateLabel, "label %q", label)
	}

	m, err := r.loader.LoadModule(moduleName)
	if err != nil {
		return nil, err
	}

	inst, err := device.New(m, deviceName, label)
	if err != nil {
		return nil, err
	}

	if err := r.register(m, inst, deviceName); err != nil {
		if inst.Lifecycle() != device.Released {
			if rerr := inst.Release(); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}

		return nil, err
	}

	log.Info().
		Str("event", "device_loaded").
		Str("label", label).
		Str("module", moduleName).
		Str("device", deviceName).
		Str("type", inst.Type().String()).
		Msg("device loaded")

	return inst, nil
}

func (r *Registry) register(m *adapter.Module, inst device.Instance, deviceName string) error {
	desc, err := m.GetDeviceDescription(deviceName)
	switch {
	case err == nil:
		device.BaseOf(inst).SetDescription(desc)
	case !errors.Is(err, errorcodes.ErrDeviceNotAdvertised):
		return err
	}

	raw := inst.Raw()
	if !reflect.TypeOf(raw).Comparable() {
		return errorcodes.New(errorcodes.ErrDeviceCreation,
			"module %s: device %s has non-comparable type %T", m.Name(), deviceName, raw)
	}

	r.mu.Lock()
	if r.indexOf(inst.Label()) >= 0 {
		r.mu.Unlock()
		return errorcodes.New(errorcodes.ErrDuplicateLabel, "label %q", inst.Label())
	}
	if owner := r.byRaw[raw].Value(); owner != nil {
		r.mu.Unlock()
		// owner keeps the raw device; only the new instance is dropped.
		device.BaseOf(inst).Forget()

		return errorcodes.New(errorcodes.ErrDeviceCreation,
			"module %s: device %s returned the raw device of %q", m.Name(), deviceName, owner.Label())
	}
	r.devices = append(r.devices, inst)
	r.byRaw[raw] = weak.Make(device.BaseOf(inst))
	r.mu.Unlock()

	if err := inst.SetCallback(r.core); err != nil {
		r.remove(inst)
		return err
	}

	return nil
}

// indexOf returns the position of label in load order, or -1. r.mu must
// be held.
func (r *Registry) indexOf(label string) int {
	return slices.IndexFunc(r.devices, func(inst device.Instance) bool {
		return inst.Label() == label
	})
}

func (r *Registry) remove(inst device.Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = slices.DeleteFunc(r.devices, func(d device.Instance) bool { return d == inst })
	delete(r.byRaw, inst.Raw())
}

// UnloadDevice shuts inst down, unregisters it and deletes its raw device.
// Unregistering and deletion happen even when Shutdown fails; the
// shutdown error is returned.
func (r *Registry) UnloadDevice(inst device.Instance) error {
	registered, err := r.GetDevice(inst.Label())
	if err != nil {
		return err
	}
	if registered != inst {
		return errorcodes.New(errorcodes.ErrInvalidPointer, "device %q is not the registered instance", inst.Label())
	}

	shutdownErr := inst.Shutdown()
	r.remove(inst)
	err = errors.Join(shutdownErr, inst.Release())

	log.Info().
		Str("event", "device_unloaded").
		Str("label", inst.Label()).
		Err(err).
		Msg("device unloaded")

	return err
}

// UnloadAllDevices shuts down every device, non-serial devices first and
// serial ports last, each group in reverse load order. Then the registry
// is cleared and all raw devices are deleted.
func (r *Registry) UnloadAllDevices() error {
	r.mu.RLock()
	devices := slices.Clone(r.devices)
	r.mu.RUnlock()

	var errs []error
	for _, serial := range []bool{false, true} {
		for _, inst := range slices.Backward(devices) {
			if (inst.Type() == mmdevice.SerialDevice) != serial {
				continue
			}
			if err := inst.Shutdown(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	r.mu.Lock()
	r.devices = nil
	clear(r.byRaw)
	r.mu.Unlock()

	for _, inst := range slices.Backward(devices) {
		if err := inst.Release(); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	log.Info().
		Str("event", "devices_unloaded").
		Int("count", len(devices)).
		Err(err).
		Msg("all devices unloaded")

	return err
}

// GetDevice returns the instance registered under label.
func (r *Registry) GetDevice(label string) (device.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(label)
	if i < 0 {
		return nil, errorcodes.New(errorcodes.ErrUnknownLabel, "label %q", label)
	}

	return r.devices[i], nil
}

// GetDeviceByRaw returns the instance wrapping raw.
func (r *Registry) GetDeviceByRaw(raw mmdevice.Device) (device.Instance, error) {
	if raw == nil || !reflect.TypeOf(raw).Comparable() {
		return nil, errorcodes.New(errorcodes.ErrInvalidPointer, "raw device %T", raw)
	}

	r.mu.RLock()
	wp, ok := r.byRaw[raw]
	r.mu.RUnlock()

	if !ok {
		return nil, errorcodes.New(errorcodes.ErrInvalidPointer, "raw device %p is not loaded", raw)
	}
	b := wp.Value()
	if b == nil {
		return nil, errorcodes.New(errorcodes.ErrInvalidPointer, "raw device %p expired", raw)
	}

	return b.Instance(), nil
}

// GetDeviceList returns the labels of loaded devices of type typ in load
// order. mmdevice.AnyType matches every device.
func (r *Registry) GetDeviceList(typ mmdevice.DeviceType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.devices))
	for _, inst := range r.devices {
		if typ == mmdevice.AnyType || inst.Type() == typ {
			labels = append(labels, inst.Label())
		}
	}

	return labels
}

// Labels returns every loaded label in load order.
func (r *Registry) Labels() []string {
	return r.GetDeviceList(mmdevice.AnyType)
}

func (r *Registry) snapshot() []device.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.devices)
}

// GetLoadedPeripherals returns the labels of loaded devices whose parent
// is hubLabel. It is empty when hubLabel is not a loaded hub.
func (r *Registry) GetLoadedPeripherals(hubLabel string) []string {
	hub, err := r.GetDevice(hubLabel)
	if err != nil || hub.Type() != mmdevice.HubDevice {
		return nil
	}

	var labels []string
	for _, inst := range r.snapshot() {
		parent, err := inst.ParentID()
		if err == nil && parent == hubLabel {
			labels = append(labels, inst.Label())
		}
	}

	return labels
}

// GetParentDevice returns the hub inst belongs to, or nil. An explicit
// parent label must name a hub of the same module. Without one, the last
// loaded hub of the same module is taken; with several such hubs that
// choice is arbitrary.
func (r *Registry) GetParentDevice(inst device.Instance) (*device.Hub, error) {
	parent, err := inst.ParentID()
	if err != nil {
		return nil, err
	}

	return r.parentOf(inst, parent)
}

// parentOf resolves the parent hub of inst given its parent label. It makes
// no native calls.
func (r *Registry) parentOf(inst device.Instance, parent string) (*device.Hub, error) {
	if parent != "" {
		d, err := r.GetDevice(parent)
		if err != nil {
			return nil, err
		}
		if hub, ok := d.(*device.Hub); ok && hub.Module() == inst.Module() {
			return hub, nil
		}

		return nil, nil
	}

	var found *device.Hub
	for _, d := range r.snapshot() {
		if hub, ok := d.(*device.Hub); ok && hub.Module() == inst.Module() {
			found = hub
		}
	}

	return found, nil
}

// SetParentLabel records parent as the hub of the device at label. An empty
// parent clears the association.
func (r *Registry) SetParentLabel(label, parent string) error {
	inst, err := r.GetDevice(label)
	if err != nil {
		return err
	}
	if parent != "" {
		p, err := r.GetDevice(parent)
		if err != nil {
			return err
		}
		if _, ok := p.(*device.Hub); !ok {
			return errorcodes.New(errorcodes.ErrNotAHub, "parent %q of %q", parent, label)
		}
	}

	return inst.SetParentID(parent)
}

// GetParentLabel returns the parent label recorded for label.
func (r *Registry) GetParentLabel(label string) (string, error) {
	inst, err := r.GetDevice(label)
	if err != nil {
		return "", err
	}

	return inst.ParentID()
}

// InitializeDevice initializes the device at label.
func (r *Registry) InitializeDevice(label string) error {
	inst, err := r.GetDevice(label)
	if err != nil {
		return err
	}

	return inst.Initialize()
}

// InitializeAllDevices initializes every loaded device in load order and
// stops at the first failure.
func (r *Registry) InitializeAllDevices() error {
	for _, inst := range r.snapshot() {
		if inst.Lifecycle() == device.Initialized {
			continue
		}
		if err := inst.Initialize(); err != nil {
			return err
		}
	}

	return nil
}

// GetInstalledDevices runs detection on the hub at hubLabel and returns the
// names of the peripherals it found.
func (r *Registry) GetInstalledDevices(hubLabel string) ([]string, error) {
	inst, err := r.GetDevice(hubLabel)
	if err != nil {
		return nil, err
	}
	hub, ok := inst.(*device.Hub)
	if !ok {
		return nil, errorcodes.New(errorcodes.ErrNotAHub, "device %q", hubLabel)
	}
	if err := hub.DetectInstalledDevices(); err != nil {
		return nil, err
	}

	return hub.InstalledDeviceNames()
}
