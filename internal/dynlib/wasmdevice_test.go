package dynlib_test

import (
	"context"
	"strings"
	"testing"

	"github.com/micro-manager/micro-manager-sub007/internal/dynlib"
	"github.com/micro-manager/micro-manager-sub007/internal/wasmtest"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	i32x1 = []wasmtest.ValType{wasmtest.I32}
	i32x2 = []wasmtest.ValType{wasmtest.I32, wasmtest.I32}
	i32x3 = []wasmtest.ValType{wasmtest.I32, wasmtest.I32, wasmtest.I32}
	i32x4 = []wasmtest.ValType{wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32}
	i32x5 = []wasmtest.ValType{wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32}
	i32x6 = []wasmtest.ValType{wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32}
	i32x7 = []wasmtest.ValType{
		wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32,
	}
)

// openGuest writes m to disk, opens it and returns its device factory and
// destructor.
func openGuest(t *testing.T, name string, m wasmtest.Module) (mmdevice.CreateDeviceFunc, mmdevice.DeleteDeviceFunc) {
	t.Helper()
	ctx := context.Background()

	h, err := dynlib.Open(ctx, writeFile(t, name, m.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Unload(ctx) })

	create, err := h.Lookup(mmdevice.SymCreateDevice)
	require.NoError(t, err)
	remove, err := h.Lookup(mmdevice.SymDeleteDevice)
	require.NoError(t, err)

	return create.(mmdevice.CreateDeviceFunc), remove.(mmdevice.DeleteDeviceFunc)
}

// The guest factory below hands out the name length as the device handle.
func guestFactory() []wasmtest.Func {
	return []wasmtest.Func{
		wasmtest.BumpAlloc(),
		wasmtest.NopFree(),
		{Export: "CreateDevice", Params: i32x2, Results: i32x1, Body: wasmtest.LocalGet(1)},
		{Export: "DeleteDevice", Params: i32x1},
	}
}

// recordingCore answers device callbacks and remembers what it was told.
type recordingCore struct {
	caller    mmdevice.Device
	logged    string
	debugOnly bool
	set       [3]string
	hub       mmdevice.Hub
}

func (c *recordingCore) LogMessage(caller mmdevice.Device, msg string, debugOnly bool) mmdevice.Code {
	c.caller, c.logged, c.debugOnly = caller, msg, debugOnly
	return mmdevice.OK
}

func (c *recordingCore) GetDeviceProperty(_ mmdevice.Device, label, name string) (string, mmdevice.Code) {
	if label == "COM1" && name == mmdevice.KeywordBaudRate {
		return "9600", mmdevice.OK
	}

	return "", mmdevice.ErrUnknownLabel
}

func (c *recordingCore) SetDeviceProperty(caller mmdevice.Device, label, name, value string) mmdevice.Code {
	c.caller, c.set = caller, [3]string{label, name, value}
	return mmdevice.OK
}

func (c *recordingCore) GetLoadedDeviceOfType(_ mmdevice.Device, t mmdevice.DeviceType, index int) string {
	if t == mmdevice.CameraDevice && index == 0 {
		return "Cam"
	}

	return ""
}

func (c *recordingCore) GetParentHub(mmdevice.Device) mmdevice.Hub { return c.hub }

// nativeHub is a hub that lives outside any wasm module.
type nativeHub struct{ mmdevice.Hub }

// TestWasmDeviceCallbacks verifies that guest devices reach the core the
// host registered for them through the env.core_* imports.
func TestWasmDeviceCallbacks(t *testing.T) {
	t.Parallel()

	const (
		coreLog = iota
		coreGetProperty
		coreSetProperty
		coreDeviceOfType
		coreParentHub
	)

	m := wasmtest.Module{
		Imports: []wasmtest.Import{
			{Module: "env", Name: "core_log", Params: i32x4, Results: i32x1},
			{Module: "env", Name: "core_get_property", Params: i32x7, Results: i32x1},
			{Module: "env", Name: "core_set_property", Params: i32x7, Results: i32x1},
			{Module: "env", Name: "core_device_of_type", Params: i32x5, Results: i32x1},
			{Module: "env", Name: "core_parent_hub", Params: i32x1, Results: i32x1},
		},
		MemoryPages: 1,
		Heap:        1024,
		Data: []wasmtest.Data{
			{Offset: 0x100, Bytes: []byte("hello")},
			{Offset: 0x110, Bytes: []byte("COM1")},
			{Offset: 0x120, Bytes: []byte(mmdevice.KeywordBaudRate)},
			{Offset: 0x140, Bytes: []byte("115200")},
		},
	}
	baud := int32(len(mmdevice.KeywordBaudRate))
	m.Funcs = append(guestFactory(),
		wasmtest.Func{
			Export: "Device_GetType", Params: i32x1, Results: i32x1,
			Body: wasmtest.I32Const(int32(mmdevice.HubDevice)),
		},
		wasmtest.Func{
			Export: "Device_Shutdown", Params: i32x1, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(0),
				wasmtest.I32Const(0x100), wasmtest.I32Const(5), wasmtest.I32Const(1),
				wasmtest.Call(coreLog)),
		},
		wasmtest.Func{
			Export: "Device_Initialize", Params: i32x1, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(0),
				wasmtest.I32Const(0x110), wasmtest.I32Const(4),
				wasmtest.I32Const(0x120), wasmtest.I32Const(baud),
				wasmtest.I32Const(0x140), wasmtest.I32Const(6),
				wasmtest.Call(coreSetProperty)),
		},
		// GetProperty(name) reads name from COM1.
		wasmtest.Func{
			Export: "Device_GetProperty", Params: i32x5, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(0),
				wasmtest.I32Const(0x110), wasmtest.I32Const(4),
				wasmtest.LocalGet(1), wasmtest.LocalGet(2), wasmtest.LocalGet(3), wasmtest.LocalGet(4),
				wasmtest.Call(coreGetProperty)),
		},
		// GetPropertyName(i) names the i-th loaded camera.
		wasmtest.Func{
			Export: "Device_GetPropertyName", Params: i32x4, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(0),
				wasmtest.I32Const(int32(mmdevice.CameraDevice)), wasmtest.LocalGet(1),
				wasmtest.LocalGet(2), wasmtest.LocalGet(3),
				wasmtest.Call(coreDeviceOfType)),
		},
		// GetNumberOfProperties reports the parent hub's handle.
		wasmtest.Func{
			Export: "Device_GetNumberOfProperties", Params: i32x1, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(0), wasmtest.Call(coreParentHub)),
		},
	)

	create, remove := openGuest(t, "mmgr_dal_callbacks.wasm", m)
	hub := create("H")
	dev := create("DV")
	require.NotNil(t, hub)
	require.NotNil(t, dev)

	assert.Equal(t, mmdevice.ErrNoCallbackRegistered, dev.Shutdown())

	core := &recordingCore{}
	hub.SetCallback(core)
	dev.SetCallback(core)

	require.Equal(t, mmdevice.OK, dev.Shutdown())
	assert.Equal(t, "hello", core.logged)
	assert.True(t, core.debugOnly)
	assert.Same(t, dev, core.caller)

	require.Equal(t, mmdevice.OK, hub.Initialize())
	assert.Equal(t, [3]string{"COM1", mmdevice.KeywordBaudRate, "115200"}, core.set)
	assert.Same(t, hub, core.caller)

	v, code := dev.GetProperty(mmdevice.KeywordBaudRate)
	require.Equal(t, mmdevice.OK, code)
	assert.Equal(t, "9600", v)
	_, code = dev.GetProperty("Parity")
	assert.Equal(t, mmdevice.ErrUnknownLabel, code)

	name, ok := dev.GetPropertyName(0)
	require.True(t, ok)
	assert.Equal(t, "Cam", name)

	assert.Zero(t, dev.GetNumberOfProperties())
	core.hub = hub.(mmdevice.Hub)
	assert.Equal(t, 1, dev.GetNumberOfProperties())
	core.hub = nativeHub{}
	assert.Zero(t, dev.GetNumberOfProperties(), "a hub outside the module has no guest handle")

	remove(dev)
	assert.Equal(t, mmdevice.ErrNoCallbackRegistered, dev.Shutdown())
}

func implements[T any](dev mmdevice.Device) bool {
	_, ok := dev.(T)
	return ok
}

// typedGuest is a module whose devices report the length of their name as
// their type, with a few typed methods behind them.
func typedGuest() wasmtest.Module {
	m := wasmtest.Module{MemoryPages: 1, Heap: 1024}
	m.Funcs = append(guestFactory(),
		wasmtest.Func{Export: "Device_GetType", Params: i32x1, Results: i32x1, Body: wasmtest.LocalGet(0)},
		wasmtest.Func{Export: "Device_GetImageWidth", Params: i32x1, Results: i32x1, Body: wasmtest.I32Const(2)},
		wasmtest.Func{Export: "Device_GetImageHeight", Params: i32x1, Results: i32x1, Body: wasmtest.I32Const(3)},
		wasmtest.Func{Export: "Device_GetImageBytesPerPixel", Params: i32x1, Results: i32x1, Body: wasmtest.I32Const(1)},
		// GetImageBuffer fills the whole buffer, first pixel 7.
		wasmtest.Func{
			Export: "Device_GetImageBuffer", Params: i32x3, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(1), wasmtest.I32Const(7), wasmtest.I32Store8(), wasmtest.LocalGet(2)),
		},
		// Read answers a single 'A'.
		wasmtest.Func{
			Export: "Device_Read", Params: i32x3, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(1), wasmtest.I32Const('A'), wasmtest.I32Store8(), wasmtest.I32Const(1)),
		},
		// Write accepts data starting with 'a' only.
		wasmtest.Func{
			Export: "Device_Write", Params: i32x3, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(1), wasmtest.I32Load8U(), wasmtest.I32Const('a'), wasmtest.I32Ne),
		},
		wasmtest.Func{
			Export: "Device_GetXYPositionUm", Params: i32x3, Results: i32x1,
			Body: wasmtest.Code(
				wasmtest.LocalGet(1), wasmtest.F64Const(1.5), wasmtest.F64Store(),
				wasmtest.LocalGet(2), wasmtest.F64Const(-2.5), wasmtest.F64Store(),
				wasmtest.I32Const(0)),
		},
		// Process sets the first byte to 9.
		wasmtest.Func{
			Export: "Device_Process", Params: i32x6, Results: i32x1,
			Body: wasmtest.Code(wasmtest.LocalGet(1), wasmtest.I32Const(9), wasmtest.I32Store8(), wasmtest.I32Const(0)),
		},
		wasmtest.Func{
			Export: "Device_GetNumberOfInstalledDevices", Params: i32x1, Results: i32x1,
			Body: wasmtest.I32Const(1),
		},
		wasmtest.Func{
			Export: "Device_GetInstalledDevice", Params: i32x2, Results: i32x1,
			Body: wasmtest.I32Const(int32(mmdevice.AutoFocusDevice)),
		},
	)

	return m
}

// TestWasmDeviceCategories verifies that every device category gets a proxy
// implementing its typed interface.
func TestWasmDeviceCategories(t *testing.T) {
	t.Parallel()

	create, _ := openGuest(t, "mmgr_dal_typed.wasm", typedGuest())

	cases := map[mmdevice.DeviceType]func(mmdevice.Device) bool{
		mmdevice.CameraDevice:         implements[mmdevice.Camera],
		mmdevice.ShutterDevice:        implements[mmdevice.Shutter],
		mmdevice.StateDevice:          implements[mmdevice.State],
		mmdevice.StageDevice:          implements[mmdevice.Stage],
		mmdevice.XYStageDevice:        implements[mmdevice.XYStage],
		mmdevice.SerialDevice:         implements[mmdevice.Serial],
		mmdevice.GenericDevice:        implements[mmdevice.Generic],
		mmdevice.AutoFocusDevice:      implements[mmdevice.AutoFocus],
		mmdevice.ImageProcessorDevice: implements[mmdevice.ImageProcessor],
		mmdevice.SignalIODevice:       implements[mmdevice.SignalIO],
		mmdevice.MagnifierDevice:      implements[mmdevice.Magnifier],
		mmdevice.SLMDevice:            implements[mmdevice.SLM],
		mmdevice.GalvoDevice:          implements[mmdevice.Galvo],
		mmdevice.HubDevice:            implements[mmdevice.Hub],
	}
	for typ, check := range cases {
		dev := create(strings.Repeat("x", int(typ)))
		require.NotNil(t, dev, typ.String())
		assert.Equal(t, typ, dev.GetType())
		assert.True(t, check(dev), typ.String())
	}
}

// TestWasmDeviceTypedCalls drives the buffer and out-pointer paths of the
// typed proxies.
func TestWasmDeviceTypedCalls(t *testing.T) {
	t.Parallel()

	create, _ := openGuest(t, "mmgr_dal_typed_calls.wasm", typedGuest())
	named := func(typ mmdevice.DeviceType) mmdevice.Device {
		return create(strings.Repeat("x", int(typ)))
	}

	cam := named(mmdevice.CameraDevice).(mmdevice.Camera)
	img := cam.GetImageBuffer()
	require.Len(t, img, 6)
	assert.Equal(t, byte(7), img[0])

	port := named(mmdevice.SerialDevice).(mmdevice.Serial)
	buf := make([]byte, 4)
	n, code := port.Read(buf)
	require.Equal(t, mmdevice.OK, code)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('A'), buf[0])
	assert.Equal(t, mmdevice.OK, port.Write([]byte("abc")))
	assert.True(t, port.Write([]byte("xyz")).Failed())

	xy := named(mmdevice.XYStageDevice).(mmdevice.XYStage)
	x, y, code := xy.GetXYPositionUm()
	require.Equal(t, mmdevice.OK, code)
	assert.InDelta(t, 1.5, x, 0)
	assert.InDelta(t, -2.5, y, 0)

	proc := named(mmdevice.ImageProcessorDevice).(mmdevice.ImageProcessor)
	pixels := []byte{1, 2, 3}
	require.Equal(t, mmdevice.OK, proc.Process(pixels, 3, 1, 1))
	assert.Equal(t, []byte{9, 2, 3}, pixels)

	hub := named(mmdevice.HubDevice).(mmdevice.Hub)
	require.Equal(t, 1, hub.GetNumberOfInstalledDevices())
	assert.True(t, implements[mmdevice.AutoFocus](hub.GetInstalledDevice(0)))

	slm := named(mmdevice.SLMDevice).(mmdevice.SLM)
	assert.Equal(t, mmdevice.ErrNotSupported, slm.SetImage([]byte{1}))
	assert.Zero(t, slm.GetWidth())
}
