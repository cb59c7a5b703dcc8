package mmdevice

// Device is the contract every object created by a module factory satisfies.
// Methods report failures through Code values; the host translates them.
type Device interface {
	Initialize() Code
	// Shutdown may be called several times in a row and Initialize must be
	// callable again afterwards.
	Shutdown() Code

	GetName() string
	GetType() DeviceType

	Busy() bool
	GetDelayMs() float64
	SetDelayMs(delay float64)
	UsesDelay() bool
	GetErrorText(code Code) (string, bool)

	GetNumberOfProperties() int
	GetPropertyName(index int) (string, bool)
	HasProperty(name string) bool
	GetProperty(name string) (string, Code)
	SetProperty(name, value string) Code
	GetPropertyReadOnly(name string) (bool, Code)
	GetPropertyInitStatus(name string) (bool, Code)
	GetPropertyType(name string) (PropertyType, Code)
	HasPropertyLimits(name string) (bool, Code)
	GetPropertyLowerLimit(name string) (float64, Code)
	GetPropertyUpperLimit(name string) (float64, Code)
	GetNumberOfPropertyValues(name string) int
	GetPropertyValueAt(name string, index int) (string, bool)
	IsPropertySequenceable(name string) (bool, Code)
	GetPropertySequenceMaxLength(name string) (int, Code)
	StartPropertySequence(name string) Code
	StopPropertySequence(name string) Code
	ClearPropertySequence(name string) Code
	AddToPropertySequence(name, value string) Code
	SendPropertySequence(name string) Code

	SupportsDeviceDetection() bool
	DetectDevice() DetectionStatus

	// Parent id names the hub a peripheral belongs to. It is a back-reference,
	// not ownership.
	SetParentID(id string)
	GetParentID() string

	SetCallback(core Core)
}

// Generic is a device with no category specific operations.
type Generic interface {
	Device
}

// Camera grabs images.
type Camera interface {
	Device
	SnapImage() Code
	GetImageBuffer() []byte
	GetImageWidth() uint32
	GetImageHeight() uint32
	GetImageBytesPerPixel() uint32
	GetBitDepth() uint32
	GetExposure() float64
	SetExposure(ms float64)
	GetBinning() int
	SetBinning(bin int) Code
	GetROI() (x, y, width, height uint32, code Code)
	SetROI(x, y, width, height uint32) Code
	ClearROI() Code
	StartSequenceAcquisition(numImages int64, intervalMs float64, stopOnOverflow bool) Code
	StopSequenceAcquisition() Code
	IsCapturing() bool
}

// Shutter opens and closes a light path.
type Shutter interface {
	Device
	SetOpen(open bool) Code
	GetOpen() (bool, Code)
	Fire(deltaT float64) Code
}

// Stage is a single axis positioner.
type Stage interface {
	Device
	SetPositionUm(pos float64) Code
	GetPositionUm() (float64, Code)
	SetRelativePositionUm(delta float64) Code
	Home() Code
	Stop() Code
	SetOrigin() Code
	GetLimits() (lower, upper float64, code Code)
}

// XYStage is a two axis positioner.
type XYStage interface {
	Device
	SetXYPositionUm(x, y float64) Code
	GetXYPositionUm() (x, y float64, code Code)
	SetRelativeXYPositionUm(dx, dy float64) Code
	Home() Code
	Stop() Code
	SetOrigin() Code
	GetLimitsUm() (xMin, xMax, yMin, yMax float64, code Code)
}

// State is a device with a discrete set of labelled positions, such as a
// filter wheel or an objective turret.
type State interface {
	Device
	SetPosition(pos int) Code
	GetPosition() (int, Code)
	GetNumberOfPositions() int
	GetPositionLabel(pos int) (string, Code)
	SetPositionLabel(pos int, label string) Code
	SetGateOpen(open bool) Code
	GetGateOpen() (bool, Code)
}

// Serial is a communication port other devices talk through.
type Serial interface {
	Device
	SetCommand(command, terminator string) Code
	GetAnswer(terminator string) (string, Code)
	Write(data []byte) Code
	Read(buf []byte) (int, Code)
	Purge() Code
}

// AutoFocus keeps a sample in focus.
type AutoFocus interface {
	Device
	SetContinuousFocusing(on bool) Code
	GetContinuousFocusing() (bool, Code)
	IsContinuousFocusLocked() bool
	FullFocus() Code
	IncrementalFocus() Code
	GetLastFocusScore() (float64, Code)
	GetCurrentFocusScore() (float64, Code)
	GetOffset() (float64, Code)
	SetOffset(offset float64) Code
}

// ImageProcessor transforms image buffers in place.
type ImageProcessor interface {
	Device
	Process(buf []byte, width, height, byteDepth uint32) Code
}

// SignalIO is an analog or digital input/output line.
type SignalIO interface {
	Device
	SetGateOpen(open bool) Code
	GetGateOpen() (bool, Code)
	SetSignal(volts float64) Code
	GetSignal() (float64, Code)
	GetLimits() (lower, upper float64, code Code)
}

// Magnifier reports an optical magnification factor.
type Magnifier interface {
	Device
	GetMagnification() float64
}

// SLM is a spatial light modulator.
type SLM interface {
	Device
	SetImage(pixels []byte) Code
	DisplayImage() Code
	SetPixelsTo(intensity uint8) Code
	GetWidth() uint32
	GetHeight() uint32
	GetNumberOfComponents() uint32
	GetBytesPerPixel() uint32
	SetExposure(ms float64) Code
	GetExposure() float64
}

// Galvo is a scanning mirror pair.
type Galvo interface {
	Device
	PointAndFire(x, y, timeUs float64) Code
	SetSpotInterval(us float64) Code
	SetPosition(x, y float64) Code
	GetPosition() (x, y float64, code Code)
	SetIlluminationState(on bool) Code
	GetXRange() float64
	GetYRange() float64
}

// Hub is a controller exposing peripherals discovered at run time.
type Hub interface {
	Device
	// DetectInstalledDevices instantiates the peripherals currently attached.
	// Calling it more than once for one hub is undefined.
	DetectInstalledDevices() Code
	ClearInstalledDevices()
	GetNumberOfInstalledDevices() int
	GetInstalledDevice(index int) Device
}

// Core is the callback surface the host hands to every loaded device.
type Core interface {
	LogMessage(caller Device, msg string, debugOnly bool) Code
	GetDeviceProperty(caller Device, label, name string) (string, Code)
	SetDeviceProperty(caller Device, label, name, value string) Code
	// GetLoadedDeviceOfType returns the label of the index-th loaded device of
	// the given type, or "" past the end.
	GetLoadedDeviceOfType(caller Device, t DeviceType, index int) string
	GetParentHub(caller Device) Hub
}
