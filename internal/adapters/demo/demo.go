// Package demo is a builtin adapter module with one simulated device per
// category and a hub with two peripherals. Importing it registers the
// module under ModuleName.
package demo

import (
	"sync"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// ModuleName is the name the module is registered under.
const ModuleName = "demo"

// Device names.
const (
	CameraName         = "DCam"
	ShutterName        = "DShutter"
	StageName          = "DStage"
	XYStageName        = "DXYStage"
	WheelName          = "DWheel"
	PortName           = "DPort"
	GenericName        = "DGeneric"
	AutoFocusName      = "DAutoFocus"
	ImageProcessorName = "DProcessor"
	SignalIOName       = "DSignal"
	MagnifierName      = "DMagnifier"
	SLMName            = "DSLM"
	GalvoName          = "DGalvo"
	HubName            = "DHub"
	HubLEDName         = "DHubLED"
	HubFocusName       = "DHubFocus"
)

type factory func() mmdevice.Device

var (
	catalog      mmdevice.Catalog
	populate     sync.Once
	factories    = map[string]factory{}
	descriptions = map[string]string{}
)

func advertise(name string, typ mmdevice.DeviceType, desc string, fn factory) {
	catalog.Add(name, typ, desc)
	factories[name] = fn
	descriptions[name] = desc
}

func init() {
	mmdevice.RegisterModule(ModuleName, catalog.Symbols(initializeModuleData, createDevice, nil))
}

// initializeModuleData fills the catalog. Several loaders may load the
// module, so it only runs once per process.
func initializeModuleData() {
	populate.Do(advertiseAll)
}

func advertiseAll() {
	advertise(CameraName, mmdevice.CameraDevice, "Demo camera", func() mmdevice.Device { return newCamera() })
	advertise(ShutterName, mmdevice.ShutterDevice, "Demo shutter", func() mmdevice.Device { return newShutter(ShutterName) })
	advertise(StageName, mmdevice.StageDevice, "Demo focus stage", func() mmdevice.Device { return newStage(StageName) })
	advertise(XYStageName, mmdevice.XYStageDevice, "Demo XY stage", func() mmdevice.Device { return newXYStage() })
	advertise(WheelName, mmdevice.StateDevice, "Demo filter wheel", func() mmdevice.Device { return newWheel() })
	advertise(PortName, mmdevice.SerialDevice, "Demo loopback serial port", func() mmdevice.Device { return newPort() })
	advertise(GenericName, mmdevice.GenericDevice, "Demo light source", func() mmdevice.Device { return newGeneric() })
	advertise(AutoFocusName, mmdevice.AutoFocusDevice, "Demo auto-focus", func() mmdevice.Device { return newAutoFocus() })
	advertise(ImageProcessorName, mmdevice.ImageProcessorDevice, "Demo image inverter",
		func() mmdevice.Device { return newProcessor() })
	advertise(SignalIOName, mmdevice.SignalIODevice, "Demo analog output", func() mmdevice.Device { return newSignal() })
	advertise(MagnifierName, mmdevice.MagnifierDevice, "Demo magnifier", func() mmdevice.Device { return newMagnifier() })
	advertise(SLMName, mmdevice.SLMDevice, "Demo spatial light modulator", func() mmdevice.Device { return newSLM() })
	advertise(GalvoName, mmdevice.GalvoDevice, "Demo galvo scanner", func() mmdevice.Device { return newGalvo() })
	advertise(HubName, mmdevice.HubDevice, "Demo hub", func() mmdevice.Device { return newHub() })
	advertise(HubLEDName, mmdevice.ShutterDevice, "Demo hub LED", func() mmdevice.Device { return newHubLED() })
	advertise(HubFocusName, mmdevice.StageDevice, "Demo hub focus drive", func() mmdevice.Device { return newHubFocus() })
}

func createDevice(name string) mmdevice.Device {
	fn, ok := factories[name]
	if !ok {
		return nil
	}

	return fn()
}

// common carries what every demo device shares.
type common struct {
	mmdevice.DeviceBase
	name        string
	typ         mmdevice.DeviceType
	initialized bool
}

func (c *common) setup(self mmdevice.Device, name string, typ mmdevice.DeviceType) {
	c.name, c.typ = name, typ
	c.Bind(self)
	c.CreateProperty(mmdevice.KeywordName, name, mmdevice.String, true, nil, false)
	c.CreateProperty(mmdevice.KeywordDescription, descriptions[name], mmdevice.String, true, nil, false)
}

func (c *common) GetName() string { return c.name }

func (c *common) GetType() mmdevice.DeviceType { return c.typ }

func (c *common) Initialize() mmdevice.Code {
	c.initialized = true
	return mmdevice.OK
}

func (c *common) Shutdown() mmdevice.Code {
	c.initialized = false
	return mmdevice.OK
}

func (c *common) requireInitialized() mmdevice.Code {
	if !c.initialized {
		return mmdevice.ErrNotInitialized
	}

	return mmdevice.OK
}
