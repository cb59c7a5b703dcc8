package registry_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/micro-manager/micro-manager-sub007/internal/adapter"
	"github.com/micro-manager/micro-manager-sub007/internal/registry"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/stretchr/testify/require"
)

// Devices of the acme test module.
const (
	acmeCamera = "Camera1"
	acmeLamp   = "Lamp"
	acmePort   = "Port1"

	// propTag carries the label so shutdown order can be observed.
	propTag = "Tag"
)

// acme records what the host did to the devices of one registered module.
type acme struct {
	created atomic.Int32
	deleted atomic.Int32

	mu        sync.Mutex
	shutdowns []string // labels, via the Tag property

	active  atomic.Int32
	maxSeen atomic.Int32
}

func (a *acme) shutdown(d *acmeDevice) {
	label, _ := d.GetProperty(propTag)

	a.mu.Lock()
	a.shutdowns = append(a.shutdowns, label)
	a.mu.Unlock()
}

func (a *acme) shutdownOrder() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.shutdowns...)
}

// enter tracks how many native calls of the module overlap.
func (a *acme) enter() func() {
	n := a.active.Add(1)
	for {
		seen := a.maxSeen.Load()
		if n <= seen || a.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	return func() { a.active.Add(-1) }
}

type acmeDevice struct {
	mmdevice.DeviceBase
	owner *acme
	name  string
	typ   mmdevice.DeviceType
}

func newAcmeDevice(owner *acme, name string, typ mmdevice.DeviceType) *acmeDevice {
	d := &acmeDevice{owner: owner, name: name, typ: typ}
	d.Bind(d)
	d.CreateProperty(propTag, "", mmdevice.String, false, nil, false)
	d.CreateProperty("Value", "0", mmdevice.Integer, false, nil, false)

	return d
}

func (d *acmeDevice) Initialize() mmdevice.Code { return mmdevice.OK }

func (d *acmeDevice) Shutdown() mmdevice.Code {
	d.owner.shutdown(d)
	return mmdevice.OK
}

func (d *acmeDevice) GetName() string { return d.name }

func (d *acmeDevice) GetType() mmdevice.DeviceType { return d.typ }

func (d *acmeDevice) SetProperty(name, value string) mmdevice.Code {
	defer d.owner.enter()()
	time.Sleep(100 * time.Microsecond)

	return d.DeviceBase.SetProperty(name, value)
}

type acmeCam struct {
	*acmeDevice
	exposure float64
}

func (c *acmeCam) SnapImage() mmdevice.Code { return mmdevice.OK }
func (c *acmeCam) GetImageBuffer() []byte { return make([]byte, 16) }
func (c *acmeCam) GetImageWidth() uint32 { return 4 }
func (c *acmeCam) GetImageHeight() uint32 { return 4 }
func (c *acmeCam) GetImageBytesPerPixel() uint32 { return 1 }
func (c *acmeCam) GetBitDepth() uint32 { return 8 }
func (c *acmeCam) GetExposure() float64 { return c.exposure }
func (c *acmeCam) SetExposure(ms float64) { c.exposure = ms }
func (c *acmeCam) GetBinning() int { return 1 }
func (c *acmeCam) SetBinning(int) mmdevice.Code { return mmdevice.ErrNotSupported }
func (c *acmeCam) ClearROI() mmdevice.Code { return mmdevice.OK }
func (c *acmeCam) IsCapturing() bool { return false }

func (c *acmeCam) GetROI() (x, y, width, height uint32, code mmdevice.Code) {
	return 0, 0, 4, 4, mmdevice.OK
}

func (c *acmeCam) SetROI(_, _, _, _ uint32) mmdevice.Code { return mmdevice.ErrNotSupported }

func (c *acmeCam) StartSequenceAcquisition(int64, float64, bool) mmdevice.Code {
	return mmdevice.ErrNotSupported
}

func (c *acmeCam) StopSequenceAcquisition() mmdevice.Code { return mmdevice.OK }

type acmeSerial struct {
	*acmeDevice
}

func (s *acmeSerial) SetCommand(string, string) mmdevice.Code { return mmdevice.OK }
func (s *acmeSerial) GetAnswer(string) (string, mmdevice.Code) { return "", mmdevice.ErrSerialTimeout }
func (s *acmeSerial) Write([]byte) mmdevice.Code { return mmdevice.OK }
func (s *acmeSerial) Read([]byte) (int, mmdevice.Code) { return 0, mmdevice.OK }
func (s *acmeSerial) Purge() mmdevice.Code { return mmdevice.OK }

// registerAcme registers a module under name with a camera, a lamp and a
// serial port. edit may change its export table before registration.
func registerAcme(t *testing.T, name string, edit func(mmdevice.Symbols)) *acme {
	t.Helper()

	a := &acme{}
	var catalog mmdevice.Catalog
	catalog.Add(acmeCamera, mmdevice.CameraDevice, "Acme camera")
	catalog.Add(acmeLamp, mmdevice.GenericDevice, "Acme lamp")
	catalog.Add(acmePort, mmdevice.SerialDevice, "Acme serial port")

	syms := catalog.Symbols(nil, func(device string) mmdevice.Device {
		var d mmdevice.Device
		switch device {
		case acmeCamera:
			d = &acmeCam{acmeDevice: newAcmeDevice(a, device, mmdevice.CameraDevice)}
		case acmeLamp:
			d = newAcmeDevice(a, device, mmdevice.GenericDevice)
		case acmePort:
			d = &acmeSerial{newAcmeDevice(a, device, mmdevice.SerialDevice)}
		default:
			return nil
		}
		a.created.Add(1)

		return d
	}, func(mmdevice.Device) { a.deleted.Add(1) })

	if edit != nil {
		edit(syms)
	}
	mmdevice.RegisterModule(name, syms)
	t.Cleanup(func() { mmdevice.UnregisterModule(name) })

	return a
}

func newRegistry(t *testing.T, opts ...registry.Option) *registry.Registry {
	t.Helper()

	l := adapter.NewLoader(context.Background(), nil)
	r := registry.New(l, opts...)
	t.Cleanup(func() {
		_ = r.UnloadAllDevices()
		_ = l.Close(context.Background())
	})

	return r
}

// load loads a device and tags it with its label when it has a Tag property.
func load(t *testing.T, r *registry.Registry, label, module, device string) {
	t.Helper()

	inst, err := r.LoadDevice(label, module, device)
	require.NoError(t, err)
	if has, _ := inst.HasProperty(propTag); has {
		require.NoError(t, inst.SetProperty(propTag, label))
	}
}
