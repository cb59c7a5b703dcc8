package registry_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/micro-manager/micro-manager-sub007/internal/adapters/demo"
	"github.com/micro-manager/micro-manager-sub007/internal/device"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/internal/registry"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCameraLifecycle loads, initializes and unloads a camera.
func TestCameraLifecycle(t *testing.T) {
	t.Parallel()

	a := registerAcme(t, "Acme", nil)
	r := newRegistry(t)

	inst, err := r.LoadDevice("Cam", "Acme", acmeCamera)
	require.NoError(t, err)
	assert.Equal(t, mmdevice.CameraDevice, inst.Type())
	assert.IsType(t, &device.Camera{}, inst)
	assert.Equal(t, "Acme camera", inst.Description())
	assert.Equal(t, device.Loaded, inst.Lifecycle())

	require.NoError(t, inst.Initialize())
	busy, err := inst.Busy()
	require.NoError(t, err)
	assert.False(t, busy)

	require.NoError(t, inst.Shutdown())
	require.NoError(t, r.UnloadDevice(inst))

	_, err = r.GetDevice("Cam")
	require.ErrorIs(t, err, errorcodes.ErrUnknownLabel)
	assert.Equal(t, int32(1), a.created.Load())
	assert.Equal(t, int32(1), a.deleted.Load())
}

// TestIncompatibleModule verifies that a version mismatch loads nothing.
func TestIncompatibleModule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sym     string
		wantErr error
	}{
		{"module version", mmdevice.SymGetModuleVersion, errorcodes.ErrIncompatibleModule},
		{"device interface version", mmdevice.SymGetDeviceInterfaceVersion, errorcodes.ErrIncompatibleDeviceInterface},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			module := "registrytest_old_" + tc.sym
			a := registerAcme(t, module, func(s mmdevice.Symbols) {
				s[tc.sym] = func() int32 { return 1 }
			})
			r := newRegistry(t)

			_, err := r.LoadDevice("Cam", module, acmeCamera)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, r.GetDeviceList(mmdevice.AnyType))
			assert.Equal(t, int32(0), a.created.Load())
		})
	}
}

// TestLoadDeviceRejects verifies label validation and that failed loads
// leave the registry unchanged.
func TestLoadDeviceRejects(t *testing.T) {
	t.Parallel()

	a := registerAcme(t, "registrytest_rejects", nil)
	r := newRegistry(t)
	load(t, r, "Lamp", "registrytest_rejects", acmeLamp)

	_, err := r.LoadDevice("", "registrytest_rejects", acmeLamp)
	require.ErrorIs(t, err, errorcodes.ErrInvalidLabel)

	_, err = r.LoadDevice("Lamp", "registrytest_rejects", acmeCamera)
	require.ErrorIs(t, err, errorcodes.ErrDuplicateLabel)

	_, err = r.LoadDevice("X", "registrytest_rejects", "NoSuchDevice")
	require.ErrorIs(t, err, errorcodes.ErrDeviceCreation)

	_, err = r.LoadDevice("Y", "registrytest_no_such_module", acmeLamp)
	require.ErrorIs(t, err, errorcodes.ErrLoad)

	assert.Equal(t, []string{"Lamp"}, r.Labels())
	lamp, err := r.GetDevice("Lamp")
	require.NoError(t, err)
	assert.Equal(t, acmeLamp, lamp.Name())
	assert.Equal(t, int32(1), a.created.Load())
	assert.Equal(t, int32(0), a.deleted.Load())
}

// TestUnloadDeviceInvalidatesLookups verifies both lookups fail after
// unload.
func TestUnloadDeviceInvalidatesLookups(t *testing.T) {
	t.Parallel()

	a := registerAcme(t, "registrytest_unload", nil)
	r := newRegistry(t)
	load(t, r, "Lamp", "registrytest_unload", acmeLamp)

	inst, err := r.GetDevice("Lamp")
	require.NoError(t, err)
	raw := inst.Raw()

	found, err := r.GetDeviceByRaw(raw)
	require.NoError(t, err)
	assert.Same(t, inst.(*device.Generic), found.(*device.Generic))

	require.NoError(t, r.UnloadDevice(inst))
	assert.Equal(t, []string{"Lamp"}, a.shutdownOrder())
	assert.Equal(t, int32(1), a.deleted.Load())
	assert.Equal(t, device.Released, inst.Lifecycle())

	_, err = r.GetDevice("Lamp")
	require.ErrorIs(t, err, errorcodes.ErrUnknownLabel)
	_, err = r.GetDeviceByRaw(raw)
	require.ErrorIs(t, err, errorcodes.ErrInvalidPointer)

	require.ErrorIs(t, r.UnloadDevice(inst), errorcodes.ErrUnknownLabel)
}

// TestLoadDeviceRejectsSharedRaw verifies a factory handing out a raw
// device that is already loaded cannot give it a second owner.
func TestLoadDeviceRejectsSharedRaw(t *testing.T) {
	t.Parallel()

	var shared mmdevice.Device
	a := registerAcme(t, "registrytest_shared", func(syms mmdevice.Symbols) {
		syms[mmdevice.SymCreateDevice] = mmdevice.CreateDeviceFunc(func(string) mmdevice.Device {
			return shared
		})
	})
	shared = newAcmeDevice(a, acmeLamp, mmdevice.GenericDevice)
	r := newRegistry(t)

	first, err := r.LoadDevice("A", "registrytest_shared", acmeLamp)
	require.NoError(t, err)

	second, err := r.LoadDevice("B", "registrytest_shared", acmeLamp)
	require.ErrorIs(t, err, errorcodes.ErrDeviceCreation)
	assert.Nil(t, second)
	assert.Equal(t, []string{"A"}, r.Labels())
	assert.Equal(t, int32(0), a.deleted.Load())

	owner, err := r.GetDeviceByRaw(shared)
	require.NoError(t, err)
	assert.Same(t, first.(*device.Generic), owner.(*device.Generic))

	require.NoError(t, r.UnloadDevice(first))
	require.NoError(t, r.UnloadAllDevices())
	assert.Equal(t, int32(1), a.deleted.Load())
}

// TestUnloadAllOrder verifies serial ports are shut down after every other
// device, each group in reverse load order.
func TestUnloadAllOrder(t *testing.T) {
	t.Parallel()

	const module = "registrytest_order"
	a := registerAcme(t, module, nil)
	r := newRegistry(t)

	load(t, r, "COM1", module, acmePort)
	load(t, r, "Lamp1", module, acmeLamp)
	load(t, r, "Cam", module, acmeCamera)
	load(t, r, "COM2", module, acmePort)
	load(t, r, "Lamp2", module, acmeLamp)

	require.NoError(t, r.UnloadAllDevices())

	assert.Equal(t, []string{"Lamp2", "Cam", "Lamp1", "COM2", "COM1"}, a.shutdownOrder())
	assert.Equal(t, int32(5), a.deleted.Load())
	assert.Empty(t, r.Labels())
}

// TestUnloadAllSerialLastProperty checks the teardown partition for random
// load orders.
func TestUnloadAllSerialLastProperty(t *testing.T) {
	t.Parallel()

	const module = "registrytest_order_rapid"
	a := registerAcme(t, module, nil)

	rapid.Check(t, func(rt *rapid.T) {
		serial := rapid.SliceOfN(rapid.Bool(), 1, 10).Draw(rt, "serial")

		r := newRegistry(t)
		before := len(a.shutdownOrder())

		isSerial := make(map[string]bool)
		var loaded []string
		for i, s := range serial {
			label := "D" + string(rune('A'+i))
			name := acmeLamp
			if s {
				name = acmePort
			}
			inst, err := r.LoadDevice(label, module, name)
			if err != nil {
				rt.Fatalf("load %s: %v", label, err)
			}
			if err := inst.SetProperty(propTag, label); err != nil {
				rt.Fatalf("tag %s: %v", label, err)
			}
			isSerial[label] = s
			loaded = append(loaded, label)
		}

		if err := r.UnloadAllDevices(); err != nil {
			rt.Fatalf("unload all: %v", err)
		}

		order := a.shutdownOrder()[before:]
		if len(order) != len(loaded) {
			rt.Fatalf("shut down %d of %d devices", len(order), len(loaded))
		}
		seenSerial := false
		for _, label := range order {
			if isSerial[label] {
				seenSerial = true
			} else if seenSerial {
				rt.Fatalf("non-serial %s shut down after a serial port: %v", label, order)
			}
		}
	})
}

// TestDeviceListProperty checks that the device list is exactly the loaded
// labels in load order, and that duplicates are rejected without change.
func TestDeviceListProperty(t *testing.T) {
	t.Parallel()

	const module = "registrytest_list_rapid"
	registerAcme(t, module, nil)

	rapid.Check(t, func(rt *rapid.T) {
		labels := rapid.SliceOfNDistinct(
			rapid.StringMatching(`[A-Za-z][A-Za-z0-9_]{0,7}`), 1, 8, rapid.ID[string],
		).Draw(rt, "labels")
		devices := rapid.SliceOfN(rapid.SampledFrom([]string{acmeLamp, acmeCamera, acmePort}),
			len(labels), len(labels)).Draw(rt, "devices")

		r := newRegistry(t)
		defer r.UnloadAllDevices()

		for i, label := range labels {
			if _, err := r.LoadDevice(label, module, devices[i]); err != nil {
				rt.Fatalf("load %s: %v", label, err)
			}
		}

		dup := rapid.SampledFrom(labels).Draw(rt, "dup")
		if _, err := r.LoadDevice(dup, module, acmeLamp); !errors.Is(err, errorcodes.ErrDuplicateLabel) {
			rt.Fatalf("duplicate %q: got %v", dup, err)
		}

		if got := r.GetDeviceList(mmdevice.AnyType); !slices.Equal(got, labels) {
			rt.Fatalf("device list %v, want %v", got, labels)
		}

		var cameras []string
		for i, label := range labels {
			if devices[i] == acmeCamera {
				cameras = append(cameras, label)
			}
		}
		if got := r.GetDeviceList(mmdevice.CameraDevice); !slices.Equal(got, cameras) {
			rt.Fatalf("camera list %v, want %v", got, cameras)
		}
	})
}

// TestModuleLockSerializesLabels verifies overlapping property writes on
// two labels of one module never run concurrently.
func TestModuleLockSerializesLabels(t *testing.T) {
	t.Parallel()

	const module = "registrytest_lock"
	a := registerAcme(t, module, nil)
	r := newRegistry(t)
	load(t, r, "A", module, acmeLamp)
	load(t, r, "B", module, acmeLamp)

	var wg sync.WaitGroup
	for _, label := range []string{"A", "B", "A", "B"} {
		inst, err := r.GetDevice(label)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 20 {
				assert.NoError(t, inst.SetProperty("Value", string(rune('0'+i%10))))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), a.maxSeen.Load())
}

// TestParentRoundTrip verifies that explicit parents and the loaded
// peripherals of a hub agree.
func TestParentRoundTrip(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	load(t, r, "Hub", demo.ModuleName, demo.HubName)
	load(t, r, "LED", demo.ModuleName, demo.HubLEDName)
	load(t, r, "Focus", demo.ModuleName, demo.HubFocusName)

	require.NoError(t, r.SetParentLabel("LED", "Hub"))
	parent, err := r.GetParentLabel("LED")
	require.NoError(t, err)
	assert.Equal(t, "Hub", parent)

	assert.Equal(t, []string{"LED"}, r.GetLoadedPeripherals("Hub"))
	assert.Empty(t, r.GetLoadedPeripherals("LED"))
	assert.Empty(t, r.GetLoadedPeripherals("Nope"))

	led, err := r.GetDevice("LED")
	require.NoError(t, err)
	hub, err := r.GetParentDevice(led)
	require.NoError(t, err)
	require.NotNil(t, hub)
	assert.Equal(t, "Hub", hub.Label())

	require.ErrorIs(t, r.SetParentLabel("Focus", "LED"), errorcodes.ErrNotAHub)
	require.ErrorIs(t, r.SetParentLabel("Focus", "Nope"), errorcodes.ErrUnknownLabel)

	// Peripherals initialize only when their hub resolves.
	require.NoError(t, r.InitializeAllDevices())
}

// TestParentFallback covers the implicit parent: the last loaded hub of the
// same module. With two hubs the choice is ambiguous; this pins the current
// behaviour.
func TestParentFallback(t *testing.T) {
	t.Parallel()

	const module = "registrytest_fallback"
	registerAcme(t, module, nil)
	r := newRegistry(t)

	load(t, r, "Focus", demo.ModuleName, demo.HubFocusName)
	focus, err := r.GetDevice("Focus")
	require.NoError(t, err)

	hub, err := r.GetParentDevice(focus)
	require.NoError(t, err)
	assert.Nil(t, hub)

	err = r.InitializeDevice("Focus")
	var de *errorcodes.DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Parent hub not found", de.Text)

	load(t, r, "Hub1", demo.ModuleName, demo.HubName)
	load(t, r, "Hub2", demo.ModuleName, demo.HubName)

	hub, err = r.GetParentDevice(focus)
	require.NoError(t, err)
	require.NotNil(t, hub)
	assert.Equal(t, "Hub2", hub.Label())
	require.NoError(t, r.InitializeDevice("Focus"))

	// A hub of another module is never a parent.
	load(t, r, "Lamp", module, acmeLamp)
	require.NoError(t, r.SetParentLabel("Lamp", "Hub1"))
	lamp, err := r.GetDevice("Lamp")
	require.NoError(t, err)
	hub, err = r.GetParentDevice(lamp)
	require.NoError(t, err)
	assert.Nil(t, hub)
}

// TestGetInstalledDevices verifies hub detection through the registry.
func TestGetInstalledDevices(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	load(t, r, "Hub", demo.ModuleName, demo.HubName)
	load(t, r, "Cam", demo.ModuleName, demo.CameraName)

	names, err := r.GetInstalledDevices("Hub")
	require.NoError(t, err)
	assert.Equal(t, []string{demo.HubLEDName, demo.HubFocusName}, names)

	_, err = r.GetInstalledDevices("Cam")
	require.ErrorIs(t, err, errorcodes.ErrNotAHub)
	_, err = r.GetInstalledDevices("Nope")
	require.ErrorIs(t, err, errorcodes.ErrUnknownLabel)
}

// TestWaitForDevice verifies polling until idle and the polling timeout.
func TestWaitForDevice(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.WithPolling(time.Millisecond, 50*time.Millisecond))
	load(t, r, "Z", demo.ModuleName, demo.StageName)

	inst, err := r.GetDevice("Z")
	require.NoError(t, err)
	stage, ok := inst.(*device.Stage)
	require.True(t, ok)
	require.NoError(t, stage.Initialize())

	require.NoError(t, stage.SetProperty("MoveTimeMs", "10"))
	require.NoError(t, stage.SetPositionUm(100))
	require.NoError(t, r.WaitForDevice(context.Background(), "Z"))
	busy, err := stage.Busy()
	require.NoError(t, err)
	assert.False(t, busy)

	require.NoError(t, stage.SetProperty("MoveTimeMs", "60000"))
	require.NoError(t, stage.SetPositionUm(200))
	require.ErrorIs(t, r.WaitForDevice(context.Background(), "Z"), errorcodes.ErrDevicePollingTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.WaitForDevice(ctx, "Z"), context.Canceled)

	require.NoError(t, stage.Stop())
	require.NoError(t, r.WaitForDeviceType(context.Background(), mmdevice.StageDevice))
	require.ErrorIs(t, r.WaitForDevice(context.Background(), "Nope"), errorcodes.ErrUnknownLabel)
}

// TestDetectDeviceRestoresPort verifies the port settings survive a failed
// detection and keep the detected settings after a successful one.
func TestDetectDeviceRestoresPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		result   mmdevice.DetectionStatus
		wantBaud string
	}{
		{mmdevice.CanNotCommunicate, "9600"},
		{mmdevice.Misconfigured, "9600"},
		{mmdevice.CanCommunicate, "115200"},
	}

	for _, tc := range tests {
		t.Run(tc.result.String(), func(t *testing.T) {
			t.Parallel()

			r := newRegistry(t)
			load(t, r, "COM1", demo.ModuleName, demo.PortName)
			load(t, r, "Shutter", demo.ModuleName, demo.ShutterName)

			sh, err := r.GetDevice("Shutter")
			require.NoError(t, err)
			require.NoError(t, sh.SetProperty(mmdevice.KeywordPort, "COM1"))
			require.NoError(t, sh.SetProperty("DetectResult", tc.result.String()))

			status, err := r.DetectDevice("Shutter")
			require.NoError(t, err)
			assert.Equal(t, tc.result, status)

			port, err := r.GetDevice("COM1")
			require.NoError(t, err)
			baud, err := port.GetProperty(mmdevice.KeywordBaudRate)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBaud, baud)
		})
	}
}

// acmeDetector moves its port to 57600 baud and then reports a detection
// status no device may return.
type acmeDetector struct {
	*acmeDevice
}

func (d *acmeDetector) SupportsDeviceDetection() bool { return true }

func (d *acmeDetector) DetectDevice() mmdevice.DetectionStatus {
	port, _ := d.GetProperty(mmdevice.KeywordPort)
	d.Callback().SetDeviceProperty(d, port, mmdevice.KeywordBaudRate, "57600")

	return mmdevice.DetectionStatus(7)
}

// TestDetectDeviceRestoresPortOnError verifies the port settings are put
// back when detection itself fails.
func TestDetectDeviceRestoresPortOnError(t *testing.T) {
	t.Parallel()

	const module = "registrytest_detect_error"
	var a *acme
	a = registerAcme(t, module, func(syms mmdevice.Symbols) {
		syms[mmdevice.SymCreateDevice] = mmdevice.CreateDeviceFunc(func(name string) mmdevice.Device {
			if name != acmeLamp {
				return nil
			}
			d := &acmeDetector{newAcmeDevice(a, name, mmdevice.GenericDevice)}
			d.CreateProperty(mmdevice.KeywordPort, "", mmdevice.String, false, nil, true)

			return d
		})
	})
	r := newRegistry(t)
	load(t, r, "COM1", demo.ModuleName, demo.PortName)
	load(t, r, "Detector", module, acmeLamp)

	detector, err := r.GetDevice("Detector")
	require.NoError(t, err)
	require.NoError(t, detector.SetProperty(mmdevice.KeywordPort, "COM1"))

	status, err := r.DetectDevice("Detector")
	require.ErrorIs(t, err, errorcodes.ErrDevice)
	assert.Equal(t, mmdevice.Unimplemented, status)

	port, err := r.GetDevice("COM1")
	require.NoError(t, err)
	baud, err := port.GetProperty(mmdevice.KeywordBaudRate)
	require.NoError(t, err)
	assert.Equal(t, "9600", baud)
}

// TestDetectDeviceUnsupported verifies devices without detection report
// Unimplemented.
func TestDetectDeviceUnsupported(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	load(t, r, "Cam", demo.ModuleName, demo.CameraName)

	status, err := r.DetectDevice("Cam")
	require.NoError(t, err)
	assert.Equal(t, mmdevice.Unimplemented, status)
}

type callbackHolder interface {
	Callback() mmdevice.Core
}

// TestCoreCallback exercises the callback a device receives on load.
func TestCoreCallback(t *testing.T) {
	t.Parallel()

	const module = "registrytest_callback"
	registerAcme(t, module, nil)
	r := newRegistry(t)
	load(t, r, "Cam", demo.ModuleName, demo.CameraName)
	load(t, r, "COM1", demo.ModuleName, demo.PortName)
	load(t, r, "Lamp", module, acmeLamp)

	cam, err := r.GetDevice("Cam")
	require.NoError(t, err)
	holder, ok := cam.Raw().(callbackHolder)
	require.True(t, ok)
	core := holder.Callback()
	require.NotNil(t, core)
	caller := cam.Raw()

	// Another module goes through the instance and its module lock.
	assert.Equal(t, mmdevice.OK, core.SetDeviceProperty(caller, "Lamp", "Value", "7"))
	v, code := core.GetDeviceProperty(caller, "Lamp", "Value")
	assert.Equal(t, mmdevice.OK, code)
	assert.Equal(t, "7", v)
	assert.Equal(t, mmdevice.ErrInvalidProperty, core.SetDeviceProperty(caller, "Lamp", "Nope", "1"))

	_, code = core.GetDeviceProperty(caller, "Nope", "Value")
	assert.Equal(t, mmdevice.ErrUnknownLabel, code)
	_, code = core.GetDeviceProperty(caller, "Cam", mmdevice.KeywordName)
	assert.Equal(t, mmdevice.ErrSelfReference, code)
	_, code = core.GetDeviceProperty(newAcmeDevice(&acme{}, "Stray", mmdevice.GenericDevice), "Lamp", "Value")
	assert.Equal(t, mmdevice.ErrNoCallbackRegistered, code)

	assert.Equal(t, "COM1", core.GetLoadedDeviceOfType(caller, mmdevice.SerialDevice, 0))
	assert.Empty(t, core.GetLoadedDeviceOfType(caller, mmdevice.SerialDevice, 1))
	assert.Equal(t, "Lamp", core.GetLoadedDeviceOfType(caller, mmdevice.AnyType, 2))
	assert.Nil(t, core.GetParentHub(caller))
	assert.Equal(t, mmdevice.OK, core.LogMessage(caller, "hello", true))
}
