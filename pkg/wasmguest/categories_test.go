package wasmguest

import (
	"testing"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHub struct {
	mmdevice.DeviceBase
	peripherals []mmdevice.Device
}

func newTestHub() *testHub {
	h := &testHub{}
	h.Bind(h)

	return h
}

func (h *testHub) Initialize() mmdevice.Code { return mmdevice.OK }
func (h *testHub) Shutdown() mmdevice.Code { return mmdevice.OK }
func (h *testHub) GetName() string { return "Hub" }
func (h *testHub) GetType() mmdevice.DeviceType { return mmdevice.HubDevice }

func (h *testHub) DetectInstalledDevices() mmdevice.Code {
	h.peripherals = []mmdevice.Device{newTestShutter()}
	return mmdevice.OK
}

func (h *testHub) ClearInstalledDevices() { h.peripherals = nil }

func (h *testHub) GetNumberOfInstalledDevices() int { return len(h.peripherals) }

func (h *testHub) GetInstalledDevice(index int) mmdevice.Device {
	if index < 0 || index >= len(h.peripherals) {
		return nil
	}

	return h.peripherals[index]
}

func newHubModule() *Module {
	return NewModule(func(name string) mmdevice.Device {
		switch name {
		case "Hub":
			return newTestHub()
		case "Shutter":
			return newTestShutter()
		default:
			return nil
		}
	})
}

func createNamed(t *testing.T, m *Module, name string) uint32 {
	t.Helper()

	ptr, n := hostString(t, name)
	id := m.CreateDevice(ptr, n)
	require.Positive(t, id)

	return uint32(id)
}

// TestModuleHubPeripherals verifies that installed devices get handles that
// live until the hub clears them.
func TestModuleHubPeripherals(t *testing.T) {
	m := newHubModule()
	hub := createNamed(t, m, "Hub")

	require.Equal(t, int32(mmdevice.OK), m.DetectInstalledDevices(hub))
	require.Equal(t, int32(1), m.GetNumberOfInstalledDevices(hub))

	p := m.GetInstalledDevice(hub, 0)
	require.Positive(t, p)
	assert.Equal(t, p, m.GetInstalledDevice(hub, 0), "a peripheral keeps its handle")
	assert.Equal(t, int32(0), m.GetInstalledDevice(hub, 5))

	assert.Equal(t, int32(mmdevice.ShutterDevice), m.GetType(uint32(p)))
	require.Equal(t, int32(mmdevice.OK), m.SetOpen(uint32(p), 1))
	assert.Equal(t, int32(1), m.GetOpen(uint32(p)))

	require.Equal(t, int32(mmdevice.OK), m.ClearInstalledDevices(hub))
	assert.Equal(t, -int32(mmdevice.ErrInvalidInputParam), m.GetType(uint32(p)))
	assert.Equal(t, int32(mmdevice.HubDevice), m.GetType(hub))
}

// TestModuleWrongCategory verifies that typed exports reject devices of
// another category.
func TestModuleWrongCategory(t *testing.T) {
	m := newHubModule()
	hub := createNamed(t, m, "Hub")
	shutter := createNamed(t, m, "Shutter")

	assert.Equal(t, int32(mmdevice.ErrNotSupported), m.SnapImage(hub))
	assert.Equal(t, -int32(mmdevice.ErrNotSupported), m.GetOpen(hub))
	assert.Equal(t, -int32(mmdevice.ErrNotSupported), m.GetNumberOfInstalledDevices(shutter))
	assert.Equal(t, int32(mmdevice.ErrNotSupported), m.SetExposure(shutter, 10))
	assert.Equal(t, int32(mmdevice.ErrNotSupported), m.Home(shutter))

	out, _ := hostBuffer(t, 16)
	assert.Equal(t, int32(mmdevice.ErrNotSupported), m.GetLimits(shutter, out, out+8))
	assert.Equal(t, int32(mmdevice.ErrInvalidInputParam), m.SetGateOpen(999, 1))
}

// TestModuleCallback verifies that created devices get a core that names
// them to the host, and that strangers are refused.
func TestModuleCallback(t *testing.T) {
	m := newHubModule()
	id := createNamed(t, m, "Shutter")

	dev, ok := m.Device(id)
	require.True(t, ok)
	shutter := dev.(*testShutter)
	core := shutter.Callback()
	require.NotNil(t, core)

	// Natively there is no host behind the imports.
	assert.Equal(t, mmdevice.ErrNoCallbackRegistered, shutter.LogMessage("hello", false))
	assert.Nil(t, shutter.ParentHub())

	stranger := newTestShutter()
	assert.Equal(t, mmdevice.ErrNoCallbackRegistered, core.SetDeviceProperty(stranger, "A", "B", "C"))
	_, code := core.GetDeviceProperty(stranger, "A", "B")
	assert.Equal(t, mmdevice.ErrNoCallbackRegistered, code)
	assert.Empty(t, core.GetLoadedDeviceOfType(stranger, mmdevice.CameraDevice, 0))
}
