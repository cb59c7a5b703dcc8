package device

import (
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// none adapts a native call without a result to read.
func none(fn func()) func() struct{} {
	return func() struct{} {
		fn()
		return struct{}{}
	}
}

// Camera is a loaded camera.
type Camera struct {
	*Base
	raw mmdevice.Camera
}

// SnapImage exposes one image into the camera buffer.
func (c *Camera) SnapImage() error { return c.do("SnapImage", c.raw.SnapImage) }

// ImageBuffer returns a copy of the last snapped image.
func (c *Camera) ImageBuffer() ([]byte, error) {
	return read(c.Base, func() []byte {
		return append([]byte(nil), c.raw.GetImageBuffer()...)
	})
}

// ImageGeometry returns width, height, bytes per pixel and bit depth.
func (c *Camera) ImageGeometry() (width, height, bytesPerPixel, bitDepth uint32, err error) {
	unlock, err := c.enter()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer unlock()

	return c.raw.GetImageWidth(), c.raw.GetImageHeight(), c.raw.GetImageBytesPerPixel(), c.raw.GetBitDepth(), nil
}

// Exposure returns the exposure time in milliseconds.
func (c *Camera) Exposure() (float64, error) { return read(c.Base, c.raw.GetExposure) }

// SetExposure sets the exposure time in milliseconds.
func (c *Camera) SetExposure(ms float64) error {
	_, err := read(c.Base, none(func() { c.raw.SetExposure(ms) }))
	return err
}

// Binning returns the binning factor.
func (c *Camera) Binning() (int, error) { return read(c.Base, c.raw.GetBinning) }

// SetBinning sets the binning factor.
func (c *Camera) SetBinning(bin int) error {
	return c.do("SetBinning", func() mmdevice.Code { return c.raw.SetBinning(bin) })
}

// ROI returns the region of interest.
func (c *Camera) ROI() (x, y, width, height uint32, err error) {
	unlock, err := c.enter()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer unlock()

	x, y, width, height, code := c.raw.GetROI()
	if err := c.check("GetROI", code); err != nil {
		return 0, 0, 0, 0, err
	}

	return x, y, width, height, nil
}

// SetROI restricts acquisition to a region of interest.
func (c *Camera) SetROI(x, y, width, height uint32) error {
	return c.do("SetROI", func() mmdevice.Code { return c.raw.SetROI(x, y, width, height) })
}

// ClearROI resets the region of interest to the full sensor.
func (c *Camera) ClearROI() error { return c.do("ClearROI", c.raw.ClearROI) }

// StartSequenceAcquisition starts streaming numImages images.
func (c *Camera) StartSequenceAcquisition(numImages int64, intervalMs float64, stopOnOverflow bool) error {
	return c.do("StartSequenceAcquisition", func() mmdevice.Code {
		return c.raw.StartSequenceAcquisition(numImages, intervalMs, stopOnOverflow)
	})
}

// StopSequenceAcquisition stops a running sequence.
func (c *Camera) StopSequenceAcquisition() error {
	return c.do("StopSequenceAcquisition", c.raw.StopSequenceAcquisition)
}

// IsCapturing reports whether a sequence is running.
func (c *Camera) IsCapturing() (bool, error) { return read(c.Base, c.raw.IsCapturing) }

// Shutter is a loaded shutter.
type Shutter struct {
	*Base
	raw mmdevice.Shutter
}

// SetOpen opens or closes the shutter.
func (s *Shutter) SetOpen(open bool) error {
	return s.do("SetOpen", func() mmdevice.Code { return s.raw.SetOpen(open) })
}

// Open reports whether the shutter is open.
func (s *Shutter) Open() (bool, error) { return value(s.Base, "GetOpen", s.raw.GetOpen) }

// Fire opens the shutter for deltaT milliseconds.
func (s *Shutter) Fire(deltaT float64) error {
	return s.do("Fire", func() mmdevice.Code { return s.raw.Fire(deltaT) })
}

// Stage is a loaded single axis stage.
type Stage struct {
	*Base
	raw mmdevice.Stage
}

// SetPositionUm moves to an absolute position in microns.
func (s *Stage) SetPositionUm(pos float64) error {
	return s.do("SetPositionUm", func() mmdevice.Code { return s.raw.SetPositionUm(pos) })
}

// PositionUm returns the position in microns.
func (s *Stage) PositionUm() (float64, error) {
	return value(s.Base, "GetPositionUm", s.raw.GetPositionUm)
}

// SetRelativePositionUm moves by delta microns.
func (s *Stage) SetRelativePositionUm(delta float64) error {
	return s.do("SetRelativePositionUm", func() mmdevice.Code { return s.raw.SetRelativePositionUm(delta) })
}

// Home runs the homing routine.
func (s *Stage) Home() error { return s.do("Home", s.raw.Home) }

// Stop halts any motion.
func (s *Stage) Stop() error { return s.do("Stop", s.raw.Stop) }

// SetOrigin makes the current position zero.
func (s *Stage) SetOrigin() error { return s.do("SetOrigin", s.raw.SetOrigin) }

// Limits returns the travel range in microns.
func (s *Stage) Limits() (lower, upper float64, err error) {
	unlock, err := s.enter()
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	lower, upper, code := s.raw.GetLimits()
	if err := s.check("GetLimits", code); err != nil {
		return 0, 0, err
	}

	return lower, upper, nil
}

// XYStage is a loaded two axis stage.
type XYStage struct {
	*Base
	raw mmdevice.XYStage
}

// SetXYPositionUm moves to an absolute position in microns.
func (s *XYStage) SetXYPositionUm(x, y float64) error {
	return s.do("SetXYPositionUm", func() mmdevice.Code { return s.raw.SetXYPositionUm(x, y) })
}

// XYPositionUm returns the position in microns.
func (s *XYStage) XYPositionUm() (x, y float64, err error) {
	unlock, err := s.enter()
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	x, y, code := s.raw.GetXYPositionUm()
	if err := s.check("GetXYPositionUm", code); err != nil {
		return 0, 0, err
	}

	return x, y, nil
}

// SetRelativeXYPositionUm moves by (dx, dy) microns.
func (s *XYStage) SetRelativeXYPositionUm(dx, dy float64) error {
	return s.do("SetRelativeXYPositionUm", func() mmdevice.Code { return s.raw.SetRelativeXYPositionUm(dx, dy) })
}

// Home runs the homing routine.
func (s *XYStage) Home() error { return s.do("Home", s.raw.Home) }

// Stop halts any motion.
func (s *XYStage) Stop() error { return s.do("Stop", s.raw.Stop) }

// SetOrigin makes the current position zero.
func (s *XYStage) SetOrigin() error { return s.do("SetOrigin", s.raw.SetOrigin) }

// LimitsUm returns the travel range of both axes.
func (s *XYStage) LimitsUm() (xMin, xMax, yMin, yMax float64, err error) {
	unlock, err := s.enter()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer unlock()

	xMin, xMax, yMin, yMax, code := s.raw.GetLimitsUm()
	if err := s.check("GetLimitsUm", code); err != nil {
		return 0, 0, 0, 0, err
	}

	return xMin, xMax, yMin, yMax, nil
}

// State is a loaded state device such as a filter wheel.
type State struct {
	*Base
	raw mmdevice.State
}

// SetPosition switches to a numbered position.
func (s *State) SetPosition(pos int) error {
	return s.do("SetPosition", func() mmdevice.Code { return s.raw.SetPosition(pos) })
}

// Position returns the current position.
func (s *State) Position() (int, error) { return value(s.Base, "GetPosition", s.raw.GetPosition) }

// NumberOfPositions returns how many positions the device has.
func (s *State) NumberOfPositions() (int, error) { return read(s.Base, s.raw.GetNumberOfPositions) }

// PositionLabel returns the label of a position.
func (s *State) PositionLabel(pos int) (string, error) {
	return value(s.Base, "GetPositionLabel", func() (string, mmdevice.Code) { return s.raw.GetPositionLabel(pos) })
}

// SetPositionLabel names a position.
func (s *State) SetPositionLabel(pos int, label string) error {
	return s.do("SetPositionLabel", func() mmdevice.Code { return s.raw.SetPositionLabel(pos, label) })
}

// SetGateOpen opens or closes the gate.
func (s *State) SetGateOpen(open bool) error {
	return s.do("SetGateOpen", func() mmdevice.Code { return s.raw.SetGateOpen(open) })
}

// GateOpen reports whether the gate is open.
func (s *State) GateOpen() (bool, error) { return value(s.Base, "GetGateOpen", s.raw.GetGateOpen) }

// Serial is a loaded communication port.
type Serial struct {
	*Base
	raw mmdevice.Serial
}

// SetCommand sends command followed by terminator.
func (s *Serial) SetCommand(command, terminator string) error {
	return s.do("SetCommand", func() mmdevice.Code { return s.raw.SetCommand(command, terminator) })
}

// Answer reads up to terminator.
func (s *Serial) Answer(terminator string) (string, error) {
	return value(s.Base, "GetAnswer", func() (string, mmdevice.Code) { return s.raw.GetAnswer(terminator) })
}

// Write sends raw bytes.
func (s *Serial) Write(data []byte) error {
	return s.do("Write", func() mmdevice.Code { return s.raw.Write(data) })
}

// Read fills buf and returns the number of bytes read.
func (s *Serial) Read(buf []byte) (int, error) {
	return value(s.Base, "Read", func() (int, mmdevice.Code) { return s.raw.Read(buf) })
}

// Purge drops buffered input and output.
func (s *Serial) Purge() error { return s.do("Purge", s.raw.Purge) }

// Generic is a loaded device without category specific operations.
type Generic struct {
	*Base
	raw mmdevice.Generic
}

// AutoFocus is a loaded focus controller.
type AutoFocus struct {
	*Base
	raw mmdevice.AutoFocus
}

// SetContinuousFocusing turns focus tracking on or off.
func (a *AutoFocus) SetContinuousFocusing(on bool) error {
	return a.do("SetContinuousFocusing", func() mmdevice.Code { return a.raw.SetContinuousFocusing(on) })
}

// ContinuousFocusing reports whether focus tracking is on.
func (a *AutoFocus) ContinuousFocusing() (bool, error) {
	return value(a.Base, "GetContinuousFocusing", a.raw.GetContinuousFocusing)
}

// IsContinuousFocusLocked reports whether tracking has locked on.
func (a *AutoFocus) IsContinuousFocusLocked() (bool, error) {
	return read(a.Base, a.raw.IsContinuousFocusLocked)
}

// FullFocus runs a full focus search.
func (a *AutoFocus) FullFocus() error { return a.do("FullFocus", a.raw.FullFocus) }

// IncrementalFocus runs a short focus search around the current position.
func (a *AutoFocus) IncrementalFocus() error { return a.do("IncrementalFocus", a.raw.IncrementalFocus) }

// LastFocusScore returns the score of the last search.
func (a *AutoFocus) LastFocusScore() (float64, error) {
	return value(a.Base, "GetLastFocusScore", a.raw.GetLastFocusScore)
}

// CurrentFocusScore scores the current image.
func (a *AutoFocus) CurrentFocusScore() (float64, error) {
	return value(a.Base, "GetCurrentFocusScore", a.raw.GetCurrentFocusScore)
}

// Offset returns the focus offset.
func (a *AutoFocus) Offset() (float64, error) { return value(a.Base, "GetOffset", a.raw.GetOffset) }

// SetOffset sets the focus offset.
func (a *AutoFocus) SetOffset(offset float64) error {
	return a.do("SetOffset", func() mmdevice.Code { return a.raw.SetOffset(offset) })
}

// ImageProcessor is a loaded image processor.
type ImageProcessor struct {
	*Base
	raw mmdevice.ImageProcessor
}

// Process transforms buf in place.
func (p *ImageProcessor) Process(buf []byte, width, height, byteDepth uint32) error {
	return p.do("Process", func() mmdevice.Code { return p.raw.Process(buf, width, height, byteDepth) })
}

// SignalIO is a loaded signal line.
type SignalIO struct {
	*Base
	raw mmdevice.SignalIO
}

// SetGateOpen opens or closes the gate.
func (s *SignalIO) SetGateOpen(open bool) error {
	return s.do("SetGateOpen", func() mmdevice.Code { return s.raw.SetGateOpen(open) })
}

// GateOpen reports whether the gate is open.
func (s *SignalIO) GateOpen() (bool, error) { return value(s.Base, "GetGateOpen", s.raw.GetGateOpen) }

// SetSignal sets the output in volts.
func (s *SignalIO) SetSignal(volts float64) error {
	return s.do("SetSignal", func() mmdevice.Code { return s.raw.SetSignal(volts) })
}

// Signal returns the signal in volts.
func (s *SignalIO) Signal() (float64, error) { return value(s.Base, "GetSignal", s.raw.GetSignal) }

// Limits returns the signal range in volts.
func (s *SignalIO) Limits() (lower, upper float64, err error) {
	unlock, err := s.enter()
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	lower, upper, code := s.raw.GetLimits()
	if err := s.check("GetLimits", code); err != nil {
		return 0, 0, err
	}

	return lower, upper, nil
}

// Magnifier is a loaded magnification changer.
type Magnifier struct {
	*Base
	raw mmdevice.Magnifier
}

// Magnification returns the current magnification factor.
func (m *Magnifier) Magnification() (float64, error) { return read(m.Base, m.raw.GetMagnification) }

// SLM is a loaded spatial light modulator.
type SLM struct {
	*Base
	raw mmdevice.SLM
}

// SetImage loads pixels without displaying them.
func (s *SLM) SetImage(pixels []byte) error {
	return s.do("SetImage", func() mmdevice.Code { return s.raw.SetImage(pixels) })
}

// DisplayImage shows the loaded image.
func (s *SLM) DisplayImage() error { return s.do("DisplayImage", s.raw.DisplayImage) }

// SetPixelsTo sets every pixel to intensity.
func (s *SLM) SetPixelsTo(intensity uint8) error {
	return s.do("SetPixelsTo", func() mmdevice.Code { return s.raw.SetPixelsTo(intensity) })
}

// Geometry returns width, height, components and bytes per pixel.
func (s *SLM) Geometry() (width, height, components, bytesPerPixel uint32, err error) {
	unlock, err := s.enter()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer unlock()

	return s.raw.GetWidth(), s.raw.GetHeight(), s.raw.GetNumberOfComponents(), s.raw.GetBytesPerPixel(), nil
}

// SetExposure sets the display time in milliseconds.
func (s *SLM) SetExposure(ms float64) error {
	return s.do("SetExposure", func() mmdevice.Code { return s.raw.SetExposure(ms) })
}

// Exposure returns the display time in milliseconds.
func (s *SLM) Exposure() (float64, error) { return read(s.Base, s.raw.GetExposure) }

// Galvo is a loaded scanning mirror pair.
type Galvo struct {
	*Base
	raw mmdevice.Galvo
}

// PointAndFire moves to (x, y) and illuminates for timeUs microseconds.
func (g *Galvo) PointAndFire(x, y, timeUs float64) error {
	return g.do("PointAndFire", func() mmdevice.Code { return g.raw.PointAndFire(x, y, timeUs) })
}

// SetSpotInterval sets the dwell time per spot in microseconds.
func (g *Galvo) SetSpotInterval(us float64) error {
	return g.do("SetSpotInterval", func() mmdevice.Code { return g.raw.SetSpotInterval(us) })
}

// SetPosition moves the beam to (x, y).
func (g *Galvo) SetPosition(x, y float64) error {
	return g.do("SetPosition", func() mmdevice.Code { return g.raw.SetPosition(x, y) })
}

// Position returns the beam position.
func (g *Galvo) Position() (x, y float64, err error) {
	unlock, err := g.enter()
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	x, y, code := g.raw.GetPosition()
	if err := g.check("GetPosition", code); err != nil {
		return 0, 0, err
	}

	return x, y, nil
}

// SetIlluminationState turns the beam on or off.
func (g *Galvo) SetIlluminationState(on bool) error {
	return g.do("SetIlluminationState", func() mmdevice.Code { return g.raw.SetIlluminationState(on) })
}

// Range returns the X and Y scan range.
func (g *Galvo) Range() (x, y float64, err error) {
	unlock, err := g.enter()
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	return g.raw.GetXRange(), g.raw.GetYRange(), nil
}
