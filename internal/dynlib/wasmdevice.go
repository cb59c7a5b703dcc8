package dynlib

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/tetratelabs/wazero/api"
)

// Guest device methods are exported as devicePrefix+method and take the
// device handle returned by CreateDevice as their first parameter. Strings are
// passed as (ptr, len); results that carry a value alongside a code encode the
// value as a non-negative i32 or the code negated. Float results are written
// as little-endian f64 through trailing out pointers; string results are
// written NUL-terminated into a trailing (ptr, len) buffer.
const devicePrefix = "Device_"

// wasmDevice proxies mmdevice.Device onto the exports of a guest module.
// Delay, parent and callback bookkeeping stay on the host side; the guest
// reaches the callback through the env.core_* host functions.
type wasmDevice struct {
	h         *wasmHandle
	id        uint32
	delayMs   float64
	usesDelay bool
	parentID  string
	core      mmdevice.Core
}

type wasmBacked interface {
	wasmBase() *wasmDevice
}

func (d *wasmDevice) wasmBase() *wasmDevice { return d }

// newWasmDevice wraps guest device id, picking a typed proxy from the type
// the guest reports.
func newWasmDevice(h *wasmHandle, id uint32) mmdevice.Device {
	d := &wasmDevice{h: h, id: id}

	switch d.GetType() {
	case mmdevice.CameraDevice:
		return &wasmCamera{d}
	case mmdevice.ShutterDevice:
		return &wasmShutter{d}
	case mmdevice.StateDevice:
		return &wasmState{d}
	case mmdevice.StageDevice:
		return &wasmStage{d}
	case mmdevice.XYStageDevice:
		return &wasmXYStage{d}
	case mmdevice.SerialDevice:
		return &wasmSerial{d}
	case mmdevice.AutoFocusDevice:
		return &wasmAutoFocus{d}
	case mmdevice.ImageProcessorDevice:
		return &wasmImageProcessor{d}
	case mmdevice.SignalIODevice:
		return &wasmSignalIO{d}
	case mmdevice.MagnifierDevice:
		return &wasmMagnifier{d}
	case mmdevice.SLMDevice:
		return &wasmSLM{d}
	case mmdevice.GalvoDevice:
		return &wasmGalvo{d}
	case mmdevice.HubDevice:
		return &wasmHub{d}
	default:
		return d
	}
}

func wasmDeviceID(dev mmdevice.Device, h *wasmHandle) (uint32, bool) {
	b, ok := dev.(wasmBacked)
	if !ok || b.wasmBase().h != h {
		return 0, false
	}

	return b.wasmBase().id, true
}

// invoke calls Device_<method>(id, args..., extra...). Arguments may be
// string, []byte, bool, int, int32, uint32, int64 or float64; strings and
// byte slices are copied into guest memory and passed as (ptr, len).
func (d *wasmDevice) invoke(method string, args []any, extra ...uint64) (int32, mmdevice.Code) {
	fn := d.h.mod.ExportedFunction(devicePrefix + method)
	if fn == nil {
		return 0, mmdevice.ErrNotSupported
	}

	params := []uint64{api.EncodeU32(d.id)}
	var frees []uint32
	defer func() {
		for _, ptr := range frees {
			d.h.freeBuffer(ptr)
		}
	}()

	for _, arg := range args {
		switch v := arg.(type) {
		case string, []byte:
			data := toBytes(v)
			if len(data) == 0 {
				params = append(params, 0, 0)
				continue
			}
			ptr, err := d.h.writeBuffer(data)
			if err != nil {
				d.h.logTrap(devicePrefix+method, err)
				return 0, mmdevice.ErrNativeModuleFailed
			}
			frees = append(frees, ptr)
			params = append(params, api.EncodeU32(ptr), api.EncodeU32(uint32(len(data))))
		case bool:
			var b uint32
			if v {
				b = 1
			}
			params = append(params, api.EncodeU32(b))
		case int:
			params = append(params, api.EncodeI32(int32(v)))
		case int32:
			params = append(params, api.EncodeI32(v))
		case uint32:
			params = append(params, api.EncodeU32(v))
		case int64:
			params = append(params, api.EncodeI64(v))
		case float64:
			params = append(params, api.EncodeF64(v))
		default:
			d.h.logTrap(devicePrefix+method, fmt.Errorf("unsupported argument type %T", arg))
			return 0, mmdevice.ErrInvalidInputParam
		}
	}
	params = append(params, extra...)

	v, err := d.h.callI32(fn, params...)
	if err != nil {
		d.h.logTrap(devicePrefix+method, err)
		return 0, mmdevice.ErrNativeModuleFailed
	}

	return v, mmdevice.OK
}

func toBytes(v any) []byte {
	if s, ok := v.(string); ok {
		return []byte(s)
	}

	return v.([]byte)
}

func (d *wasmDevice) code(method string, args ...any) mmdevice.Code {
	v, code := d.invoke(method, args)
	if code.Failed() {
		return code
	}

	return mmdevice.Code(v)
}

func (d *wasmDevice) intCode(method string, args ...any) (int, mmdevice.Code) {
	v, code := d.invoke(method, args)
	if code.Failed() {
		return 0, code
	}
	if v < 0 {
		return 0, mmdevice.Code(-v)
	}

	return int(v), mmdevice.OK
}

func (d *wasmDevice) boolCode(method string, args ...any) (bool, mmdevice.Code) {
	v, code := d.intCode(method, args...)
	return v != 0, code
}

// outs calls a method that writes n values of width bytes each through
// trailing out pointers and returns the bytes written.
func (d *wasmDevice) outs(method string, n, width int, args ...any) ([]byte, mmdevice.Code) {
	size := uint32(n * width)
	out, err := d.h.allocBuffer(size)
	if err != nil {
		d.h.logTrap(devicePrefix+method, err)
		return nil, mmdevice.ErrNativeModuleFailed
	}
	defer d.h.freeBuffer(out)

	extra := make([]uint64, n)
	for i := range extra {
		extra[i] = api.EncodeU32(out + uint32(width*i))
	}

	v, code := d.invoke(method, args, extra...)
	if code.Failed() {
		return nil, code
	}
	if mmdevice.Code(v).Failed() {
		return nil, mmdevice.Code(v)
	}

	data, ok := d.h.mod.Memory().Read(out, size)
	if !ok {
		return nil, mmdevice.ErrNativeModuleFailed
	}

	return append([]byte(nil), data...), mmdevice.OK
}

// floats calls a method that writes n f64 values through out pointers.
func (d *wasmDevice) floats(method string, n int, args ...any) ([]float64, mmdevice.Code) {
	data, code := d.outs(method, n, 8, args...)
	if code.Failed() {
		return nil, code
	}

	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}

	return vals, mmdevice.OK
}

// uint32s calls a method that writes n u32 values through out pointers.
func (d *wasmDevice) uint32s(method string, n int, args ...any) ([]uint32, mmdevice.Code) {
	data, code := d.outs(method, n, 4, args...)
	if code.Failed() {
		return nil, code
	}

	vals := make([]uint32, n)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint32(data[4*i:])
	}

	return vals, mmdevice.OK
}

// count calls a method returning a non-negative size; failures read as 0.
func (d *wasmDevice) count(method string, args ...any) uint32 {
	n, code := d.intCode(method, args...)
	if code.Failed() {
		return 0
	}

	return uint32(n)
}

// bytes calls a method that fills a trailing (out, size) buffer and returns
// the number of bytes it wrote.
func (d *wasmDevice) bytes(method string, size uint32, args ...any) ([]byte, mmdevice.Code) {
	if size == 0 {
		return nil, mmdevice.OK
	}
	out, err := d.h.allocBuffer(size)
	if err != nil {
		d.h.logTrap(devicePrefix+method, err)
		return nil, mmdevice.ErrNativeModuleFailed
	}
	defer d.h.freeBuffer(out)

	v, code := d.invoke(method, args, api.EncodeU32(out), api.EncodeU32(size))
	if code.Failed() {
		return nil, code
	}
	if v < 0 {
		return nil, mmdevice.Code(-v)
	}
	if uint32(v) > size {
		return nil, mmdevice.ErrBufferOverflow
	}

	data, ok := d.h.mod.Memory().Read(out, uint32(v))
	if !ok {
		return nil, mmdevice.ErrNativeModuleFailed
	}

	return append([]byte(nil), data...), mmdevice.OK
}

// inPlace hands buf to a method as a (ptr, len) pair and copies the guest's
// changes back.
func (d *wasmDevice) inPlace(method string, buf []byte, args ...any) mmdevice.Code {
	if len(buf) == 0 {
		return d.code(method, append([]any{uint32(0), uint32(0)}, args...)...)
	}
	ptr, err := d.h.writeBuffer(buf)
	if err != nil {
		d.h.logTrap(devicePrefix+method, err)
		return mmdevice.ErrNativeModuleFailed
	}
	defer d.h.freeBuffer(ptr)

	code := d.code(method, append([]any{ptr, uint32(len(buf))}, args...)...)
	if code.Failed() {
		return code
	}
	data, ok := d.h.mod.Memory().Read(ptr, uint32(len(buf)))
	if !ok {
		return mmdevice.ErrNativeModuleFailed
	}
	copy(buf, data)

	return mmdevice.OK
}

func (d *wasmDevice) float(method string, args ...any) (float64, mmdevice.Code) {
	vals, code := d.floats(method, 1, args...)
	if code.Failed() {
		return 0, code
	}

	return vals[0], mmdevice.OK
}

// str calls a method that fills a MaxStrLength buffer.
func (d *wasmDevice) str(method string, args ...any) (string, mmdevice.Code) {
	out, err := d.h.allocBuffer(mmdevice.MaxStrLength)
	if err != nil {
		d.h.logTrap(devicePrefix+method, err)
		return "", mmdevice.ErrNativeModuleFailed
	}
	defer d.h.freeBuffer(out)

	v, code := d.invoke(method, args, api.EncodeU32(out), api.EncodeU32(mmdevice.MaxStrLength))
	if code.Failed() {
		return "", code
	}
	if mmdevice.Code(v).Failed() {
		return "", mmdevice.Code(v)
	}

	data, ok := d.h.mod.Memory().Read(out, mmdevice.MaxStrLength)
	if !ok {
		return "", mmdevice.ErrNativeModuleFailed
	}
	s, terminated := mmdevice.CString(data)
	if !terminated {
		return "", mmdevice.ErrBufferOverflow
	}

	return s, mmdevice.OK
}

func (d *wasmDevice) Initialize() mmdevice.Code { return d.code("Initialize") }

func (d *wasmDevice) Shutdown() mmdevice.Code { return d.code("Shutdown") }

func (d *wasmDevice) GetName() string {
	s, _ := d.str("GetName")
	return s
}

func (d *wasmDevice) GetType() mmdevice.DeviceType {
	v, code := d.intCode("GetType")
	if code.Failed() {
		return mmdevice.UnknownType
	}

	return mmdevice.DeviceType(v)
}

func (d *wasmDevice) Busy() bool {
	busy, _ := d.boolCode("Busy")
	return busy
}

func (d *wasmDevice) GetDelayMs() float64 { return d.delayMs }

func (d *wasmDevice) SetDelayMs(delay float64) { d.delayMs = delay }

func (d *wasmDevice) UsesDelay() bool { return d.usesDelay }

func (d *wasmDevice) GetErrorText(code mmdevice.Code) (string, bool) {
	s, c := d.str("GetErrorText", int32(code))
	return s, !c.Failed() && s != ""
}

func (d *wasmDevice) GetNumberOfProperties() int {
	n, _ := d.intCode("GetNumberOfProperties")
	return n
}

func (d *wasmDevice) GetPropertyName(index int) (string, bool) {
	s, code := d.str("GetPropertyName", index)
	return s, !code.Failed()
}

func (d *wasmDevice) HasProperty(name string) bool {
	ok, _ := d.boolCode("HasProperty", name)
	return ok
}

func (d *wasmDevice) GetProperty(name string) (string, mmdevice.Code) {
	return d.str("GetProperty", name)
}

func (d *wasmDevice) SetProperty(name, value string) mmdevice.Code {
	return d.code("SetProperty", name, value)
}

func (d *wasmDevice) GetPropertyReadOnly(name string) (bool, mmdevice.Code) {
	return d.boolCode("GetPropertyReadOnly", name)
}

func (d *wasmDevice) GetPropertyInitStatus(name string) (bool, mmdevice.Code) {
	return d.boolCode("GetPropertyInitStatus", name)
}

func (d *wasmDevice) GetPropertyType(name string) (mmdevice.PropertyType, mmdevice.Code) {
	v, code := d.intCode("GetPropertyType", name)
	return mmdevice.PropertyType(v), code
}

func (d *wasmDevice) HasPropertyLimits(name string) (bool, mmdevice.Code) {
	return d.boolCode("HasPropertyLimits", name)
}

func (d *wasmDevice) GetPropertyLowerLimit(name string) (float64, mmdevice.Code) {
	return d.float("GetPropertyLowerLimit", name)
}

func (d *wasmDevice) GetPropertyUpperLimit(name string) (float64, mmdevice.Code) {
	return d.float("GetPropertyUpperLimit", name)
}

func (d *wasmDevice) GetNumberOfPropertyValues(name string) int {
	n, _ := d.intCode("GetNumberOfPropertyValues", name)
	return n
}

func (d *wasmDevice) GetPropertyValueAt(name string, index int) (string, bool) {
	s, code := d.str("GetPropertyValueAt", name, index)
	return s, !code.Failed()
}

func (d *wasmDevice) IsPropertySequenceable(name string) (bool, mmdevice.Code) {
	return d.boolCode("IsPropertySequenceable", name)
}

func (d *wasmDevice) GetPropertySequenceMaxLength(name string) (int, mmdevice.Code) {
	return d.intCode("GetPropertySequenceMaxLength", name)
}

func (d *wasmDevice) StartPropertySequence(name string) mmdevice.Code {
	return d.code("StartPropertySequence", name)
}

func (d *wasmDevice) StopPropertySequence(name string) mmdevice.Code {
	return d.code("StopPropertySequence", name)
}

func (d *wasmDevice) ClearPropertySequence(name string) mmdevice.Code {
	return d.code("ClearPropertySequence", name)
}

func (d *wasmDevice) AddToPropertySequence(name, value string) mmdevice.Code {
	return d.code("AddToPropertySequence", name, value)
}

func (d *wasmDevice) SendPropertySequence(name string) mmdevice.Code {
	return d.code("SendPropertySequence", name)
}

func (d *wasmDevice) SupportsDeviceDetection() bool {
	ok, _ := d.boolCode("SupportsDeviceDetection")
	return ok
}

func (d *wasmDevice) DetectDevice() mmdevice.DetectionStatus {
	fn := d.h.mod.ExportedFunction(devicePrefix + "DetectDevice")
	if fn == nil {
		return mmdevice.Unimplemented
	}
	// Detection statuses are negative themselves, so the raw value is returned.
	v, code := d.invoke("DetectDevice", nil)
	if code.Failed() {
		return mmdevice.CanNotCommunicate
	}

	return mmdevice.DetectionStatus(v)
}

func (d *wasmDevice) SetParentID(id string) { d.parentID = id }

func (d *wasmDevice) GetParentID() string { return d.parentID }

func (d *wasmDevice) SetCallback(core mmdevice.Core) { d.core = core }
