// Package mmdevice defines the binary contract between the device host and
// device adapter modules: interface versions, device type tags, the device
// interfaces a module's objects implement, and the module entry points.
package mmdevice

import "strings"

// Interface versions. A module is only accepted when both values it reports
// equal the ones the host was built with.
const (
	ModuleInterfaceVersion int32 = 10
	DeviceInterfaceVersion int32 = 68
)

// MaxStrLength is the size of every fixed string buffer passed across the
// module boundary, including the terminating NUL.
const MaxStrLength = 1024

// DeviceType is the category tag a module advertises for a device.
type DeviceType int32

// Device type tags.
const (
	UnknownType DeviceType = iota
	AnyType
	CameraDevice
	ShutterDevice
	StateDevice
	StageDevice
	XYStageDevice
	SerialDevice
	GenericDevice
	AutoFocusDevice
	CoreDevice
	ImageProcessorDevice
	SignalIODevice
	MagnifierDevice
	SLMDevice
	HubDevice
	GalvoDevice
)

var deviceTypeNames = map[DeviceType]string{
	UnknownType:          "Unknown",
	AnyType:              "Any",
	CameraDevice:         "Camera",
	ShutterDevice:        "Shutter",
	StateDevice:          "State",
	StageDevice:          "Stage",
	XYStageDevice:        "XYStage",
	SerialDevice:         "Serial",
	GenericDevice:        "Generic",
	AutoFocusDevice:      "AutoFocus",
	CoreDevice:           "Core",
	ImageProcessorDevice: "ImageProcessor",
	SignalIODevice:       "SignalIO",
	MagnifierDevice:      "Magnifier",
	SLMDevice:            "SLM",
	HubDevice:            "Hub",
	GalvoDevice:          "Galvo",
}

// String returns the display name of the type tag.
func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}

	return "Unknown"
}

// ParseDeviceType maps a display name (case-insensitive) back to its tag.
func ParseDeviceType(s string) (DeviceType, bool) {
	for t, name := range deviceTypeNames {
		if strings.EqualFold(name, s) {
			return t, true
		}
	}

	return UnknownType, false
}

// DetectionStatus is the result of a device's communication self-test.
type DetectionStatus int32

// Detection results.
const (
	Unimplemented     DetectionStatus = -2
	Misconfigured     DetectionStatus = -1
	CanNotCommunicate DetectionStatus = 0
	CanCommunicate    DetectionStatus = 1
)

// Valid reports whether s is one of the detection results above.
func (s DetectionStatus) Valid() bool { return s >= Unimplemented && s <= CanCommunicate }

func (s DetectionStatus) String() string {
	switch s {
	case Misconfigured:
		return "Misconfigured"
	case CanNotCommunicate:
		return "CanNotCommunicate"
	case CanCommunicate:
		return "CanCommunicate"
	default:
		return "Unimplemented"
	}
}

// PropertyType describes the value domain of a device property.
type PropertyType int32

// Property types.
const (
	Undef PropertyType = iota
	String
	Float
	Integer
)

func (p PropertyType) String() string {
	switch p {
	case String:
		return "String"
	case Float:
		return "Float"
	case Integer:
		return "Integer"
	default:
		return "Undef"
	}
}

// Keywords shared by adapters.
const (
	KeywordName                = "Name"
	KeywordDescription         = "Description"
	KeywordPort                = "Port"
	KeywordBaudRate            = "BaudRate"
	KeywordDataBits            = "DataBits"
	KeywordStopBits            = "StopBits"
	KeywordParity              = "Parity"
	KeywordHandshaking         = "Handshaking"
	KeywordAnswerTimeout       = "AnswerTimeout"
	KeywordDelayBetweenCharsMs = "DelayBetweenCharsMs"
	KeywordState               = "State"
	KeywordLabel               = "Label"
	KeywordPosition            = "Position"
	KeywordExposure            = "Exposure"
	KeywordBinning             = "Binning"
)

// SerialPortSettings lists the communication properties of a serial port
// that device detection may disturb.
var SerialPortSettings = []string{
	KeywordBaudRate,
	KeywordDataBits,
	KeywordStopBits,
	KeywordParity,
	KeywordHandshaking,
	KeywordAnswerTimeout,
	KeywordDelayBetweenCharsMs,
}
