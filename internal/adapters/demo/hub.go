package demo

import (
	"strconv"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

const propDetections = "Detections"

// hub detects a fixed pair of peripherals: an LED shutter and a focus drive.
type hub struct {
	mmdevice.HubBase
	detections int
}

func newHub() *hub {
	h := &hub{}
	h.Bind(h)
	h.CreateProperty(mmdevice.KeywordName, HubName, mmdevice.String, true, nil, false)
	h.CreateProperty(mmdevice.KeywordDescription, descriptions[HubName], mmdevice.String, true, nil, false)
	h.CreateProperty(propDetections, "0", mmdevice.Integer, true, nil, false)

	return h
}

func (h *hub) Initialize() mmdevice.Code { return mmdevice.OK }

func (h *hub) Shutdown() mmdevice.Code { return mmdevice.OK }

func (h *hub) GetName() string { return HubName }

func (h *hub) GetType() mmdevice.DeviceType { return mmdevice.HubDevice }

func (h *hub) DetectInstalledDevices() mmdevice.Code {
	h.detections++
	h.UpdateProperty(propDetections, strconv.Itoa(h.detections))

	h.ClearInstalledDevices()
	h.AddInstalledDevice(newHubLED())
	h.AddInstalledDevice(newHubFocus())

	return mmdevice.OK
}

const errNoHub mmdevice.Code = 101

// requireHub initializes c once the host resolves its parent hub.
func requireHub(c *common) mmdevice.Code {
	if c.ParentHub() == nil {
		return errNoHub
	}

	return c.Initialize()
}

type hubLED struct {
	shutter
}

func newHubLED() *hubLED {
	s := &hubLED{}
	s.setup(s, HubLEDName, mmdevice.ShutterDevice)
	s.CreateProperty(mmdevice.KeywordState, "0", mmdevice.Integer, false, s.onState, false)
	s.SetAllowedValues(mmdevice.KeywordState, []string{"0", "1"})
	s.SetErrorText(errNoHub, "Parent hub not found")

	return s
}

func (s *hubLED) Initialize() mmdevice.Code { return requireHub(&s.common) }

func (s *hubLED) SupportsDeviceDetection() bool { return false }

func (s *hubLED) DetectDevice() mmdevice.DetectionStatus { return mmdevice.Unimplemented }

type hubFocus struct {
	stage
}

func newHubFocus() *hubFocus {
	s := &hubFocus{}
	s.setupMotion(s, HubFocusName, mmdevice.StageDevice)
	s.CreateProperty(mmdevice.KeywordPosition, "0", mmdevice.Float, true, nil, false)
	s.SetErrorText(errNoHub, "Parent hub not found")

	return s
}

func (s *hubFocus) Initialize() mmdevice.Code { return requireHub(&s.common) }
