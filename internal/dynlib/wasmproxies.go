package dynlib

import (
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// Typed proxies, one per device category. Exports with the same name serve
// every category whose method has the same shape (Home, GetLimits,
// SetExposure and so on). Galvo positions use SetGalvoPosition and
// GetGalvoPosition so a guest can also export the State positions.

var (
	_ mmdevice.Camera         = (*wasmCamera)(nil)
	_ mmdevice.Shutter        = (*wasmShutter)(nil)
	_ mmdevice.State          = (*wasmState)(nil)
	_ mmdevice.Stage          = (*wasmStage)(nil)
	_ mmdevice.XYStage        = (*wasmXYStage)(nil)
	_ mmdevice.Serial         = (*wasmSerial)(nil)
	_ mmdevice.Generic        = (*wasmDevice)(nil)
	_ mmdevice.AutoFocus      = (*wasmAutoFocus)(nil)
	_ mmdevice.ImageProcessor = (*wasmImageProcessor)(nil)
	_ mmdevice.SignalIO       = (*wasmSignalIO)(nil)
	_ mmdevice.Magnifier      = (*wasmMagnifier)(nil)
	_ mmdevice.SLM            = (*wasmSLM)(nil)
	_ mmdevice.Galvo          = (*wasmGalvo)(nil)
	_ mmdevice.Hub            = (*wasmHub)(nil)
)

type wasmCamera struct{ *wasmDevice }

func (c *wasmCamera) SnapImage() mmdevice.Code { return c.code("SnapImage") }

// GetImageBuffer copies the last snapped image out of the guest. The buffer
// is sized from the current image geometry.
func (c *wasmCamera) GetImageBuffer() []byte {
	size := c.GetImageWidth() * c.GetImageHeight() * c.GetImageBytesPerPixel()
	buf, code := c.bytes("GetImageBuffer", size)
	if code.Failed() {
		return nil
	}

	return buf
}

func (c *wasmCamera) GetImageWidth() uint32 { return c.count("GetImageWidth") }

func (c *wasmCamera) GetImageHeight() uint32 { return c.count("GetImageHeight") }

func (c *wasmCamera) GetImageBytesPerPixel() uint32 { return c.count("GetImageBytesPerPixel") }

func (c *wasmCamera) GetBitDepth() uint32 { return c.count("GetBitDepth") }

func (c *wasmCamera) GetExposure() float64 {
	ms, _ := c.float("GetExposure")
	return ms
}

func (c *wasmCamera) SetExposure(ms float64) { c.code("SetExposure", ms) }

func (c *wasmCamera) GetBinning() int {
	bin, _ := c.intCode("GetBinning")
	return bin
}

func (c *wasmCamera) SetBinning(bin int) mmdevice.Code { return c.code("SetBinning", bin) }

func (c *wasmCamera) GetROI() (x, y, width, height uint32, code mmdevice.Code) {
	vals, code := c.uint32s("GetROI", 4)
	if code.Failed() {
		return 0, 0, 0, 0, code
	}

	return vals[0], vals[1], vals[2], vals[3], mmdevice.OK
}

func (c *wasmCamera) SetROI(x, y, width, height uint32) mmdevice.Code {
	return c.code("SetROI", x, y, width, height)
}

func (c *wasmCamera) ClearROI() mmdevice.Code { return c.code("ClearROI") }

func (c *wasmCamera) StartSequenceAcquisition(numImages int64, intervalMs float64, stopOnOverflow bool) mmdevice.Code {
	return c.code("StartSequenceAcquisition", numImages, intervalMs, stopOnOverflow)
}

func (c *wasmCamera) StopSequenceAcquisition() mmdevice.Code {
	return c.code("StopSequenceAcquisition")
}

func (c *wasmCamera) IsCapturing() bool {
	capturing, _ := c.boolCode("IsCapturing")
	return capturing
}

type wasmShutter struct{ *wasmDevice }

func (s *wasmShutter) SetOpen(open bool) mmdevice.Code { return s.code("SetOpen", open) }

func (s *wasmShutter) GetOpen() (bool, mmdevice.Code) { return s.boolCode("GetOpen") }

func (s *wasmShutter) Fire(deltaT float64) mmdevice.Code { return s.code("Fire", deltaT) }

type wasmState struct{ *wasmDevice }

func (s *wasmState) SetPosition(pos int) mmdevice.Code { return s.code("SetPosition", pos) }

func (s *wasmState) GetPosition() (int, mmdevice.Code) { return s.intCode("GetPosition") }

func (s *wasmState) GetNumberOfPositions() int {
	n, _ := s.intCode("GetNumberOfPositions")
	return n
}

func (s *wasmState) GetPositionLabel(pos int) (string, mmdevice.Code) {
	return s.str("GetPositionLabel", pos)
}

func (s *wasmState) SetPositionLabel(pos int, label string) mmdevice.Code {
	return s.code("SetPositionLabel", pos, label)
}

func (s *wasmState) SetGateOpen(open bool) mmdevice.Code { return s.code("SetGateOpen", open) }

func (s *wasmState) GetGateOpen() (bool, mmdevice.Code) { return s.boolCode("GetGateOpen") }

type wasmStage struct{ *wasmDevice }

func (s *wasmStage) SetPositionUm(pos float64) mmdevice.Code {
	return s.code("SetPositionUm", pos)
}

func (s *wasmStage) GetPositionUm() (float64, mmdevice.Code) { return s.float("GetPositionUm") }

func (s *wasmStage) SetRelativePositionUm(delta float64) mmdevice.Code {
	return s.code("SetRelativePositionUm", delta)
}

func (s *wasmStage) Home() mmdevice.Code { return s.code("Home") }

func (s *wasmStage) Stop() mmdevice.Code { return s.code("Stop") }

func (s *wasmStage) SetOrigin() mmdevice.Code { return s.code("SetOrigin") }

func (s *wasmStage) GetLimits() (lower, upper float64, code mmdevice.Code) {
	vals, code := s.floats("GetLimits", 2)
	if code.Failed() {
		return 0, 0, code
	}

	return vals[0], vals[1], mmdevice.OK
}

type wasmXYStage struct{ *wasmDevice }

func (s *wasmXYStage) SetXYPositionUm(x, y float64) mmdevice.Code {
	return s.code("SetXYPositionUm", x, y)
}

func (s *wasmXYStage) GetXYPositionUm() (x, y float64, code mmdevice.Code) {
	vals, code := s.floats("GetXYPositionUm", 2)
	if code.Failed() {
		return 0, 0, code
	}

	return vals[0], vals[1], mmdevice.OK
}

func (s *wasmXYStage) SetRelativeXYPositionUm(dx, dy float64) mmdevice.Code {
	return s.code("SetRelativeXYPositionUm", dx, dy)
}

func (s *wasmXYStage) Home() mmdevice.Code { return s.code("Home") }

func (s *wasmXYStage) Stop() mmdevice.Code { return s.code("Stop") }

func (s *wasmXYStage) SetOrigin() mmdevice.Code { return s.code("SetOrigin") }

func (s *wasmXYStage) GetLimitsUm() (xMin, xMax, yMin, yMax float64, code mmdevice.Code) {
	vals, code := s.floats("GetLimitsUm", 4)
	if code.Failed() {
		return 0, 0, 0, 0, code
	}

	return vals[0], vals[1], vals[2], vals[3], mmdevice.OK
}

type wasmSerial struct{ *wasmDevice }

func (s *wasmSerial) SetCommand(command, terminator string) mmdevice.Code {
	return s.code("SetCommand", command, terminator)
}

func (s *wasmSerial) GetAnswer(terminator string) (string, mmdevice.Code) {
	return s.str("GetAnswer", terminator)
}

func (s *wasmSerial) Write(data []byte) mmdevice.Code { return s.code("Write", data) }

// Read fills at most len(buf) bytes; the guest returns how many it wrote.
func (s *wasmSerial) Read(buf []byte) (int, mmdevice.Code) {
	data, code := s.bytes("Read", uint32(len(buf)))
	if code.Failed() {
		return 0, code
	}

	return copy(buf, data), mmdevice.OK
}

func (s *wasmSerial) Purge() mmdevice.Code { return s.code("Purge") }

type wasmAutoFocus struct{ *wasmDevice }

func (a *wasmAutoFocus) SetContinuousFocusing(on bool) mmdevice.Code {
	return a.code("SetContinuousFocusing", on)
}

func (a *wasmAutoFocus) GetContinuousFocusing() (bool, mmdevice.Code) {
	return a.boolCode("GetContinuousFocusing")
}

func (a *wasmAutoFocus) IsContinuousFocusLocked() bool {
	locked, _ := a.boolCode("IsContinuousFocusLocked")
	return locked
}

func (a *wasmAutoFocus) FullFocus() mmdevice.Code { return a.code("FullFocus") }

func (a *wasmAutoFocus) IncrementalFocus() mmdevice.Code { return a.code("IncrementalFocus") }

func (a *wasmAutoFocus) GetLastFocusScore() (float64, mmdevice.Code) {
	return a.float("GetLastFocusScore")
}

func (a *wasmAutoFocus) GetCurrentFocusScore() (float64, mmdevice.Code) {
	return a.float("GetCurrentFocusScore")
}

func (a *wasmAutoFocus) GetOffset() (float64, mmdevice.Code) { return a.float("GetOffset") }

func (a *wasmAutoFocus) SetOffset(offset float64) mmdevice.Code {
	return a.code("SetOffset", offset)
}

type wasmImageProcessor struct{ *wasmDevice }

func (p *wasmImageProcessor) Process(buf []byte, width, height, byteDepth uint32) mmdevice.Code {
	return p.inPlace("Process", buf, width, height, byteDepth)
}

type wasmSignalIO struct{ *wasmDevice }

func (s *wasmSignalIO) SetGateOpen(open bool) mmdevice.Code { return s.code("SetGateOpen", open) }

func (s *wasmSignalIO) GetGateOpen() (bool, mmdevice.Code) { return s.boolCode("GetGateOpen") }

func (s *wasmSignalIO) SetSignal(volts float64) mmdevice.Code { return s.code("SetSignal", volts) }

func (s *wasmSignalIO) GetSignal() (float64, mmdevice.Code) { return s.float("GetSignal") }

func (s *wasmSignalIO) GetLimits() (lower, upper float64, code mmdevice.Code) {
	vals, code := s.floats("GetLimits", 2)
	if code.Failed() {
		return 0, 0, code
	}

	return vals[0], vals[1], mmdevice.OK
}

type wasmMagnifier struct{ *wasmDevice }

func (m *wasmMagnifier) GetMagnification() float64 {
	mag, code := m.float("GetMagnification")
	if code.Failed() {
		return 1
	}

	return mag
}

type wasmSLM struct{ *wasmDevice }

func (s *wasmSLM) SetImage(pixels []byte) mmdevice.Code { return s.code("SetImage", pixels) }

func (s *wasmSLM) DisplayImage() mmdevice.Code { return s.code("DisplayImage") }

func (s *wasmSLM) SetPixelsTo(intensity uint8) mmdevice.Code {
	return s.code("SetPixelsTo", uint32(intensity))
}

func (s *wasmSLM) GetWidth() uint32 { return s.count("GetWidth") }

func (s *wasmSLM) GetHeight() uint32 { return s.count("GetHeight") }

func (s *wasmSLM) GetNumberOfComponents() uint32 { return s.count("GetNumberOfComponents") }

func (s *wasmSLM) GetBytesPerPixel() uint32 { return s.count("GetBytesPerPixel") }

func (s *wasmSLM) SetExposure(ms float64) mmdevice.Code { return s.code("SetExposure", ms) }

func (s *wasmSLM) GetExposure() float64 {
	ms, _ := s.float("GetExposure")
	return ms
}

type wasmGalvo struct{ *wasmDevice }

func (g *wasmGalvo) PointAndFire(x, y, timeUs float64) mmdevice.Code {
	return g.code("PointAndFire", x, y, timeUs)
}

func (g *wasmGalvo) SetSpotInterval(us float64) mmdevice.Code {
	return g.code("SetSpotInterval", us)
}

func (g *wasmGalvo) SetPosition(x, y float64) mmdevice.Code {
	return g.code("SetGalvoPosition", x, y)
}

func (g *wasmGalvo) GetPosition() (x, y float64, code mmdevice.Code) {
	vals, code := g.floats("GetGalvoPosition", 2)
	if code.Failed() {
		return 0, 0, code
	}

	return vals[0], vals[1], mmdevice.OK
}

func (g *wasmGalvo) SetIlluminationState(on bool) mmdevice.Code {
	return g.code("SetIlluminationState", on)
}

func (g *wasmGalvo) GetXRange() float64 {
	r, _ := g.float("GetXRange")
	return r
}

func (g *wasmGalvo) GetYRange() float64 {
	r, _ := g.float("GetYRange")
	return r
}

// wasmHub proxies a guest hub. Installed devices come back as guest handles
// and are wrapped like any created device; the hub's module owns them.
type wasmHub struct{ *wasmDevice }

func (hub *wasmHub) DetectInstalledDevices() mmdevice.Code {
	return hub.code("DetectInstalledDevices")
}

func (hub *wasmHub) ClearInstalledDevices() { hub.code("ClearInstalledDevices") }

func (hub *wasmHub) GetNumberOfInstalledDevices() int {
	n, _ := hub.intCode("GetNumberOfInstalledDevices")
	return n
}

func (hub *wasmHub) GetInstalledDevice(index int) mmdevice.Device {
	id, code := hub.intCode("GetInstalledDevice", index)
	if code.Failed() || id == 0 {
		return nil
	}

	return newWasmDevice(hub.h, uint32(id))
}
