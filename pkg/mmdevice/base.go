package mmdevice

import (
	"strconv"
)

// Property is one named device setting kept by DeviceBase.
type Property struct {
	Name     string
	Value    string
	Type     PropertyType
	ReadOnly bool
	// PreInit properties must be set before Initialize.
	PreInit bool

	HasLimits    bool
	Lower, Upper float64
	Allowed      []string

	Sequenceable bool
	MaxSequence  int

	// OnChange is called with the new value before it is stored. A failing
	// code rejects the value.
	OnChange func(value string) Code

	sequence []string
}

// DeviceBase implements the property, delay, parent and callback parts of
// Device. Adapters embed it and supply Initialize, Shutdown, GetName and
// GetType. It does no locking: the host serializes calls into a module.
type DeviceBase struct {
	props     map[string]*Property
	order     []string
	errText   map[Code]string
	delayMs   float64
	usesDelay bool
	parentID  string
	core      Core
	self      Device
}

// Bind records the embedding device so callbacks report the right caller.
func (b *DeviceBase) Bind(self Device) {
	b.self = self
}

// CreateProperty registers a property with its initial value.
func (b *DeviceBase) CreateProperty(
	name, value string,
	typ PropertyType,
	readOnly bool,
	onChange func(value string) Code,
	preInit bool,
) Code {
	if b.props == nil {
		b.props = make(map[string]*Property)
	}
	if _, dup := b.props[name]; dup {
		return ErrDuplicateProperty
	}
	if code := checkType(typ, value); code.Failed() {
		return code
	}
	b.props[name] = &Property{
		Name:     name,
		Value:    value,
		Type:     typ,
		ReadOnly: readOnly,
		PreInit:  preInit,
		OnChange: onChange,
	}
	b.order = append(b.order, name)

	return OK
}

// SetPropertyLimits restricts a numeric property to [lower, upper].
func (b *DeviceBase) SetPropertyLimits(name string, lower, upper float64) Code {
	p, ok := b.props[name]
	if !ok {
		return ErrInvalidProperty
	}
	if p.Type != Float && p.Type != Integer {
		return ErrInvalidPropertyType
	}
	if lower > upper {
		return ErrInvalidPropertyLimits
	}
	p.HasLimits, p.Lower, p.Upper = true, lower, upper

	return OK
}

// SetAllowedValues replaces the allowed value list of a property.
func (b *DeviceBase) SetAllowedValues(name string, values []string) Code {
	p, ok := b.props[name]
	if !ok {
		return ErrInvalidProperty
	}
	p.Allowed = append([]string(nil), values...)

	return OK
}

// SetPropertySequenceable marks a property as hardware-sequenceable.
func (b *DeviceBase) SetPropertySequenceable(name string, maxLength int) Code {
	p, ok := b.props[name]
	if !ok {
		return ErrInvalidProperty
	}
	p.Sequenceable, p.MaxSequence = maxLength > 0, maxLength

	return OK
}

// UpdateProperty stores a value without the read-only check or the change
// handler. Adapters use it to publish values they measured.
func (b *DeviceBase) UpdateProperty(name, value string) Code {
	p, ok := b.props[name]
	if !ok {
		return ErrInvalidProperty
	}
	p.Value = value

	return OK
}

// SetErrorText registers an adapter specific description for a code.
func (b *DeviceBase) SetErrorText(code Code, text string) {
	if b.errText == nil {
		b.errText = make(map[Code]string)
	}
	b.errText[code] = text
}

// EnableDelay marks the device as honouring the delay setting.
func (b *DeviceBase) EnableDelay(on bool) {
	b.usesDelay = on
}

// Busy reports false; adapters with motion override it.
func (b *DeviceBase) Busy() bool { return false }

func (b *DeviceBase) GetDelayMs() float64 { return b.delayMs }

func (b *DeviceBase) SetDelayMs(delay float64) { b.delayMs = delay }

func (b *DeviceBase) UsesDelay() bool { return b.usesDelay }

func (b *DeviceBase) GetErrorText(code Code) (string, bool) {
	if text, ok := b.errText[code]; ok {
		return text, true
	}

	return code.Text(), code != OK
}

func (b *DeviceBase) GetNumberOfProperties() int { return len(b.order) }

func (b *DeviceBase) GetPropertyName(index int) (string, bool) {
	if index < 0 || index >= len(b.order) {
		return "", false
	}

	return b.order[index], true
}

func (b *DeviceBase) HasProperty(name string) bool {
	_, ok := b.props[name]
	return ok
}

func (b *DeviceBase) GetProperty(name string) (string, Code) {
	p, ok := b.props[name]
	if !ok {
		return "", ErrInvalidProperty
	}

	return p.Value, OK
}

func (b *DeviceBase) SetProperty(name, value string) Code {
	p, ok := b.props[name]
	if !ok {
		return ErrInvalidProperty
	}
	if p.ReadOnly {
		return ErrInvalidProperty
	}
	if code := checkType(p.Type, value); code.Failed() {
		return code
	}
	if len(p.Allowed) > 0 && !contains(p.Allowed, value) {
		return ErrInvalidPropertyValue
	}
	if p.HasLimits {
		v, _ := strconv.ParseFloat(value, 64)
		if v < p.Lower || v > p.Upper {
			return ErrInvalidPropertyValue
		}
	}
	if p.OnChange != nil {
		if code := p.OnChange(value); code.Failed() {
			return code
		}
	}
	p.Value = value

	return OK
}

func (b *DeviceBase) GetPropertyReadOnly(name string) (bool, Code) {
	p, ok := b.props[name]
	if !ok {
		return false, ErrInvalidProperty
	}

	return p.ReadOnly, OK
}

func (b *DeviceBase) GetPropertyInitStatus(name string) (bool, Code) {
	p, ok := b.props[name]
	if !ok {
		return false, ErrInvalidProperty
	}

	return p.PreInit, OK
}

func (b *DeviceBase) GetPropertyType(name string) (PropertyType, Code) {
	p, ok := b.props[name]
	if !ok {
		return Undef, ErrInvalidProperty
	}

	return p.Type, OK
}

func (b *DeviceBase) HasPropertyLimits(name string) (bool, Code) {
	p, ok := b.props[name]
	if !ok {
		return false, ErrInvalidProperty
	}

	return p.HasLimits, OK
}

func (b *DeviceBase) GetPropertyLowerLimit(name string) (float64, Code) {
	p, ok := b.props[name]
	if !ok {
		return 0, ErrInvalidProperty
	}

	return p.Lower, OK
}

func (b *DeviceBase) GetPropertyUpperLimit(name string) (float64, Code) {
	p, ok := b.props[name]
	if !ok {
		return 0, ErrInvalidProperty
	}

	return p.Upper, OK
}

func (b *DeviceBase) GetNumberOfPropertyValues(name string) int {
	p, ok := b.props[name]
	if !ok {
		return 0
	}

	return len(p.Allowed)
}

func (b *DeviceBase) GetPropertyValueAt(name string, index int) (string, bool) {
	p, ok := b.props[name]
	if !ok || index < 0 || index >= len(p.Allowed) {
		return "", false
	}

	return p.Allowed[index], true
}

func (b *DeviceBase) IsPropertySequenceable(name string) (bool, Code) {
	p, ok := b.props[name]
	if !ok {
		return false, ErrInvalidProperty
	}

	return p.Sequenceable, OK
}

func (b *DeviceBase) GetPropertySequenceMaxLength(name string) (int, Code) {
	p, ok := b.props[name]
	if !ok {
		return 0, ErrInvalidProperty
	}

	return p.MaxSequence, OK
}

func (b *DeviceBase) StartPropertySequence(name string) Code {
	_, code := b.sequenceable(name)
	return code
}

func (b *DeviceBase) StopPropertySequence(name string) Code {
	_, code := b.sequenceable(name)
	return code
}

func (b *DeviceBase) ClearPropertySequence(name string) Code {
	p, code := b.sequenceable(name)
	if code.Failed() {
		return code
	}
	p.sequence = p.sequence[:0]

	return OK
}

func (b *DeviceBase) AddToPropertySequence(name, value string) Code {
	p, code := b.sequenceable(name)
	if code.Failed() {
		return code
	}
	if len(p.sequence) >= p.MaxSequence {
		return ErrOutOfRange
	}
	p.sequence = append(p.sequence, value)

	return OK
}

func (b *DeviceBase) SendPropertySequence(name string) Code {
	_, code := b.sequenceable(name)
	return code
}

// PropertySequence returns the values queued for a sequenceable property.
func (b *DeviceBase) PropertySequence(name string) []string {
	p, ok := b.props[name]
	if !ok {
		return nil
	}

	return append([]string(nil), p.sequence...)
}

func (b *DeviceBase) sequenceable(name string) (*Property, Code) {
	p, ok := b.props[name]
	if !ok {
		return nil, ErrInvalidProperty
	}
	if !p.Sequenceable {
		return nil, ErrNotSupported
	}

	return p, OK
}

func (b *DeviceBase) SupportsDeviceDetection() bool { return false }

func (b *DeviceBase) DetectDevice() DetectionStatus { return Unimplemented }

func (b *DeviceBase) SetParentID(id string) { b.parentID = id }

func (b *DeviceBase) GetParentID() string { return b.parentID }

func (b *DeviceBase) SetCallback(core Core) { b.core = core }

// Callback returns the host callback, nil before the device was loaded.
func (b *DeviceBase) Callback() Core { return b.core }

// LogMessage forwards a message to the host log.
func (b *DeviceBase) LogMessage(msg string, debugOnly bool) Code {
	if b.core == nil {
		return ErrNoCallbackRegistered
	}

	return b.core.LogMessage(b.self, msg, debugOnly)
}

// ParentHub asks the host for the hub this device belongs to.
func (b *DeviceBase) ParentHub() Hub {
	if b.core == nil {
		return nil
	}

	return b.core.GetParentHub(b.self)
}

func checkType(typ PropertyType, value string) Code {
	switch typ {
	case Integer:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return ErrInvalidPropertyType
		}
	case Float:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return ErrInvalidPropertyType
		}
	}

	return OK
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}

	return false
}

// HubBase adds installed-peripheral bookkeeping to DeviceBase.
type HubBase struct {
	DeviceBase
	installed []Device
}

// AddInstalledDevice records a peripheral created during detection.
func (h *HubBase) AddInstalledDevice(dev Device) {
	h.installed = append(h.installed, dev)
}

func (h *HubBase) ClearInstalledDevices() {
	h.installed = nil
}

func (h *HubBase) GetNumberOfInstalledDevices() int {
	return len(h.installed)
}

func (h *HubBase) GetInstalledDevice(index int) Device {
	if index < 0 || index >= len(h.installed) {
		return nil
	}

	return h.installed[index]
}
