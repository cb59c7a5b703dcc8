package wasmguest

import (
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// Methods shared by more than one device category use one export each.
type (
	homer interface {
		Home() mmdevice.Code
		Stop() mmdevice.Code
		SetOrigin() mmdevice.Code
	}
	gated interface {
		SetGateOpen(open bool) mmdevice.Code
		GetGateOpen() (bool, mmdevice.Code)
	}
	limited interface {
		GetLimits() (lower, upper float64, code mmdevice.Code)
	}
	exposed interface {
		GetExposure() float64
	}
)

func as[T any](dev mmdevice.Device) (T, mmdevice.Code) {
	t, ok := dev.(T)
	if !ok {
		return t, mmdevice.ErrNotSupported
	}

	return t, mmdevice.OK
}

// typed runs fn on the device behind id if it implements T.
func typed[T any](m *Module, id uint32, fn func(T) mmdevice.Code) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		t, code := as[T](dev)
		if code.Failed() {
			return code
		}

		return fn(t)
	})
}

func typedValue[T any](m *Module, id uint32, fn func(T) (int, mmdevice.Code)) int32 {
	return m.value(id, func(dev mmdevice.Device) (int, mmdevice.Code) {
		t, code := as[T](dev)
		if code.Failed() {
			return 0, code
		}

		return fn(t)
	})
}

func typedFlag[T any](m *Module, id uint32, fn func(T) (bool, mmdevice.Code)) int32 {
	return m.flag(id, func(dev mmdevice.Device) (bool, mmdevice.Code) {
		t, code := as[T](dev)
		if code.Failed() {
			return false, code
		}

		return fn(t)
	})
}

func typedStr[T any](m *Module, id, out, size uint32, fn func(T) (string, mmdevice.Code)) int32 {
	return typed(m, id, func(t T) mmdevice.Code {
		s, code := fn(t)
		if code.Failed() {
			return code
		}

		return PutString(out, size, s)
	})
}

// typedFloats writes the values fn returns through outs, in order.
func typedFloats[T any](m *Module, id uint32, outs []uint32, fn func(T) ([]float64, mmdevice.Code)) int32 {
	return typed(m, id, func(t T) mmdevice.Code {
		vals, code := fn(t)
		if code.Failed() {
			return code
		}
		for i, out := range outs {
			if code := PutFloat(out, vals[i]); code.Failed() {
				return code
			}
		}

		return mmdevice.OK
	})
}

func flagOK(b bool) (bool, mmdevice.Code) { return b, mmdevice.OK }

func sized(n uint32) (int, mmdevice.Code) { return int(n), mmdevice.OK }

func one(v float64) ([]float64, mmdevice.Code) { return []float64{v}, mmdevice.OK }

func pair(a, b float64, code mmdevice.Code) ([]float64, mmdevice.Code) {
	return []float64{a, b}, code
}

func withCode(v float64, code mmdevice.Code) ([]float64, mmdevice.Code) {
	return []float64{v}, code
}

// Camera.

func (m *Module) SnapImage(id uint32) int32 {
	return typed(m, id, mmdevice.Camera.SnapImage)
}

// GetImageBuffer copies the last image into (out, size) and returns its
// length.
func (m *Module) GetImageBuffer(id, out, bufSize uint32) int32 {
	return typedValue(m, id, func(c mmdevice.Camera) (int, mmdevice.Code) {
		return PutBytes(out, bufSize, c.GetImageBuffer())
	})
}

func (m *Module) GetImageWidth(id uint32) int32 {
	return typedValue(m, id, func(c mmdevice.Camera) (int, mmdevice.Code) { return sized(c.GetImageWidth()) })
}

func (m *Module) GetImageHeight(id uint32) int32 {
	return typedValue(m, id, func(c mmdevice.Camera) (int, mmdevice.Code) { return sized(c.GetImageHeight()) })
}

func (m *Module) GetImageBytesPerPixel(id uint32) int32 {
	return typedValue(m, id, func(c mmdevice.Camera) (int, mmdevice.Code) {
		return sized(c.GetImageBytesPerPixel())
	})
}

func (m *Module) GetBitDepth(id uint32) int32 {
	return typedValue(m, id, func(c mmdevice.Camera) (int, mmdevice.Code) { return sized(c.GetBitDepth()) })
}

// GetExposure serves cameras and SLMs.
func (m *Module) GetExposure(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(e exposed) ([]float64, mmdevice.Code) {
		return one(e.GetExposure())
	})
}

// SetExposure serves cameras and SLMs.
func (m *Module) SetExposure(id uint32, ms float64) int32 {
	return m.code(id, func(dev mmdevice.Device) mmdevice.Code {
		switch d := dev.(type) {
		case mmdevice.SLM:
			return d.SetExposure(ms)
		case mmdevice.Camera:
			d.SetExposure(ms)
			return mmdevice.OK
		default:
			return mmdevice.ErrNotSupported
		}
	})
}

func (m *Module) GetBinning(id uint32) int32 {
	return typedValue(m, id, func(c mmdevice.Camera) (int, mmdevice.Code) { return c.GetBinning(), mmdevice.OK })
}

func (m *Module) SetBinning(id uint32, bin int32) int32 {
	return typed(m, id, func(c mmdevice.Camera) mmdevice.Code { return c.SetBinning(int(bin)) })
}

func (m *Module) GetROI(id, xOut, yOut, widthOut, heightOut uint32) int32 {
	return typed(m, id, func(c mmdevice.Camera) mmdevice.Code {
		x, y, w, h, code := c.GetROI()
		if code.Failed() {
			return code
		}
		if !PutUint32(xOut, x) || !PutUint32(yOut, y) || !PutUint32(widthOut, w) || !PutUint32(heightOut, h) {
			return mmdevice.ErrInvalidInputParam
		}

		return mmdevice.OK
	})
}

func (m *Module) SetROI(id, x, y, width, height uint32) int32 {
	return typed(m, id, func(c mmdevice.Camera) mmdevice.Code { return c.SetROI(x, y, width, height) })
}

func (m *Module) ClearROI(id uint32) int32 {
	return typed(m, id, mmdevice.Camera.ClearROI)
}

func (m *Module) StartSequenceAcquisition(id uint32, numImages int64, intervalMs float64, stopOnOverflow int32) int32 {
	return typed(m, id, func(c mmdevice.Camera) mmdevice.Code {
		return c.StartSequenceAcquisition(numImages, intervalMs, stopOnOverflow != 0)
	})
}

func (m *Module) StopSequenceAcquisition(id uint32) int32 {
	return typed(m, id, mmdevice.Camera.StopSequenceAcquisition)
}

func (m *Module) IsCapturing(id uint32) int32 {
	return typedFlag(m, id, func(c mmdevice.Camera) (bool, mmdevice.Code) { return flagOK(c.IsCapturing()) })
}

// Shutter.

func (m *Module) SetOpen(id uint32, open int32) int32 {
	return typed(m, id, func(s mmdevice.Shutter) mmdevice.Code { return s.SetOpen(open != 0) })
}

func (m *Module) GetOpen(id uint32) int32 {
	return typedFlag(m, id, mmdevice.Shutter.GetOpen)
}

func (m *Module) Fire(id uint32, deltaT float64) int32 {
	return typed(m, id, func(s mmdevice.Shutter) mmdevice.Code { return s.Fire(deltaT) })
}

// State.

func (m *Module) SetPosition(id uint32, pos int32) int32 {
	return typed(m, id, func(s mmdevice.State) mmdevice.Code { return s.SetPosition(int(pos)) })
}

func (m *Module) GetPosition(id uint32) int32 {
	return typedValue(m, id, mmdevice.State.GetPosition)
}

func (m *Module) GetNumberOfPositions(id uint32) int32 {
	return typedValue(m, id, func(s mmdevice.State) (int, mmdevice.Code) {
		return s.GetNumberOfPositions(), mmdevice.OK
	})
}

func (m *Module) GetPositionLabel(id uint32, pos int32, out, size uint32) int32 {
	return typedStr(m, id, out, size, func(s mmdevice.State) (string, mmdevice.Code) {
		return s.GetPositionLabel(int(pos))
	})
}

func (m *Module) SetPositionLabel(id uint32, pos int32, labelPtr, labelLen uint32) int32 {
	return typed(m, id, func(s mmdevice.State) mmdevice.Code {
		return s.SetPositionLabel(int(pos), String(labelPtr, labelLen))
	})
}

// SetGateOpen serves state devices and signal IO.
func (m *Module) SetGateOpen(id uint32, open int32) int32 {
	return typed(m, id, func(g gated) mmdevice.Code { return g.SetGateOpen(open != 0) })
}

// GetGateOpen serves state devices and signal IO.
func (m *Module) GetGateOpen(id uint32) int32 {
	return typedFlag(m, id, gated.GetGateOpen)
}

// Stage.

func (m *Module) SetPositionUm(id uint32, pos float64) int32 {
	return typed(m, id, func(s mmdevice.Stage) mmdevice.Code { return s.SetPositionUm(pos) })
}

func (m *Module) GetPositionUm(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(s mmdevice.Stage) ([]float64, mmdevice.Code) {
		return withCode(s.GetPositionUm())
	})
}

func (m *Module) SetRelativePositionUm(id uint32, delta float64) int32 {
	return typed(m, id, func(s mmdevice.Stage) mmdevice.Code { return s.SetRelativePositionUm(delta) })
}

// Home serves stages and XY stages, as do Stop and SetOrigin.
func (m *Module) Home(id uint32) int32 { return typed(m, id, homer.Home) }

func (m *Module) Stop(id uint32) int32 { return typed(m, id, homer.Stop) }

func (m *Module) SetOrigin(id uint32) int32 { return typed(m, id, homer.SetOrigin) }

// GetLimits serves stages and signal IO.
func (m *Module) GetLimits(id, lowerOut, upperOut uint32) int32 {
	return typedFloats(m, id, []uint32{lowerOut, upperOut}, func(l limited) ([]float64, mmdevice.Code) {
		return pair(l.GetLimits())
	})
}

// XY stage.

func (m *Module) SetXYPositionUm(id uint32, x, y float64) int32 {
	return typed(m, id, func(s mmdevice.XYStage) mmdevice.Code { return s.SetXYPositionUm(x, y) })
}

func (m *Module) GetXYPositionUm(id, xOut, yOut uint32) int32 {
	return typedFloats(m, id, []uint32{xOut, yOut}, func(s mmdevice.XYStage) ([]float64, mmdevice.Code) {
		return pair(s.GetXYPositionUm())
	})
}

func (m *Module) SetRelativeXYPositionUm(id uint32, dx, dy float64) int32 {
	return typed(m, id, func(s mmdevice.XYStage) mmdevice.Code { return s.SetRelativeXYPositionUm(dx, dy) })
}

func (m *Module) GetLimitsUm(id, xMinOut, xMaxOut, yMinOut, yMaxOut uint32) int32 {
	outs := []uint32{xMinOut, xMaxOut, yMinOut, yMaxOut}
	return typedFloats(m, id, outs, func(s mmdevice.XYStage) ([]float64, mmdevice.Code) {
		xMin, xMax, yMin, yMax, code := s.GetLimitsUm()
		return []float64{xMin, xMax, yMin, yMax}, code
	})
}

// Serial.

func (m *Module) SetCommand(id, cmdPtr, cmdLen, termPtr, termLen uint32) int32 {
	return typed(m, id, func(s mmdevice.Serial) mmdevice.Code {
		return s.SetCommand(String(cmdPtr, cmdLen), String(termPtr, termLen))
	})
}

func (m *Module) GetAnswer(id, termPtr, termLen, out, size uint32) int32 {
	return typedStr(m, id, out, size, func(s mmdevice.Serial) (string, mmdevice.Code) {
		return s.GetAnswer(String(termPtr, termLen))
	})
}

func (m *Module) Write(id, ptr, n uint32) int32 {
	return typed(m, id, func(s mmdevice.Serial) mmdevice.Code {
		data, ok := Slice(ptr, n)
		if !ok {
			return mmdevice.ErrInvalidInputParam
		}

		return s.Write(data)
	})
}

// Read fills (out, size) and returns the number of bytes read.
func (m *Module) Read(id, out, bufSize uint32) int32 {
	return typedValue(m, id, func(s mmdevice.Serial) (int, mmdevice.Code) {
		buf, ok := Slice(out, bufSize)
		if !ok {
			return 0, mmdevice.ErrInvalidInputParam
		}

		return s.Read(buf)
	})
}

func (m *Module) Purge(id uint32) int32 { return typed(m, id, mmdevice.Serial.Purge) }

// Autofocus.

func (m *Module) SetContinuousFocusing(id uint32, on int32) int32 {
	return typed(m, id, func(a mmdevice.AutoFocus) mmdevice.Code { return a.SetContinuousFocusing(on != 0) })
}

func (m *Module) GetContinuousFocusing(id uint32) int32 {
	return typedFlag(m, id, mmdevice.AutoFocus.GetContinuousFocusing)
}

func (m *Module) IsContinuousFocusLocked(id uint32) int32 {
	return typedFlag(m, id, func(a mmdevice.AutoFocus) (bool, mmdevice.Code) {
		return flagOK(a.IsContinuousFocusLocked())
	})
}

func (m *Module) FullFocus(id uint32) int32 { return typed(m, id, mmdevice.AutoFocus.FullFocus) }

func (m *Module) IncrementalFocus(id uint32) int32 {
	return typed(m, id, mmdevice.AutoFocus.IncrementalFocus)
}

func (m *Module) GetLastFocusScore(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(a mmdevice.AutoFocus) ([]float64, mmdevice.Code) {
		return withCode(a.GetLastFocusScore())
	})
}

func (m *Module) GetCurrentFocusScore(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(a mmdevice.AutoFocus) ([]float64, mmdevice.Code) {
		return withCode(a.GetCurrentFocusScore())
	})
}

func (m *Module) GetOffset(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(a mmdevice.AutoFocus) ([]float64, mmdevice.Code) {
		return withCode(a.GetOffset())
	})
}

func (m *Module) SetOffset(id uint32, offset float64) int32 {
	return typed(m, id, func(a mmdevice.AutoFocus) mmdevice.Code { return a.SetOffset(offset) })
}

// Image processor.

// Process runs the processor over the (ptr, n) image in place.
func (m *Module) Process(id, ptr, n, width, height, byteDepth uint32) int32 {
	return typed(m, id, func(p mmdevice.ImageProcessor) mmdevice.Code {
		buf, ok := Slice(ptr, n)
		if !ok {
			return mmdevice.ErrInvalidInputParam
		}

		return p.Process(buf, width, height, byteDepth)
	})
}

// Signal IO.

func (m *Module) SetSignal(id uint32, volts float64) int32 {
	return typed(m, id, func(s mmdevice.SignalIO) mmdevice.Code { return s.SetSignal(volts) })
}

func (m *Module) GetSignal(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(s mmdevice.SignalIO) ([]float64, mmdevice.Code) {
		return withCode(s.GetSignal())
	})
}

// Magnifier.

func (m *Module) GetMagnification(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(g mmdevice.Magnifier) ([]float64, mmdevice.Code) {
		return one(g.GetMagnification())
	})
}

// SLM.

func (m *Module) SetImage(id, ptr, n uint32) int32 {
	return typed(m, id, func(s mmdevice.SLM) mmdevice.Code {
		pixels, ok := Slice(ptr, n)
		if !ok {
			return mmdevice.ErrInvalidInputParam
		}

		return s.SetImage(pixels)
	})
}

func (m *Module) DisplayImage(id uint32) int32 { return typed(m, id, mmdevice.SLM.DisplayImage) }

func (m *Module) SetPixelsTo(id, intensity uint32) int32 {
	return typed(m, id, func(s mmdevice.SLM) mmdevice.Code { return s.SetPixelsTo(uint8(intensity)) })
}

func (m *Module) GetWidth(id uint32) int32 {
	return typedValue(m, id, func(s mmdevice.SLM) (int, mmdevice.Code) { return sized(s.GetWidth()) })
}

func (m *Module) GetHeight(id uint32) int32 {
	return typedValue(m, id, func(s mmdevice.SLM) (int, mmdevice.Code) { return sized(s.GetHeight()) })
}

func (m *Module) GetNumberOfComponents(id uint32) int32 {
	return typedValue(m, id, func(s mmdevice.SLM) (int, mmdevice.Code) { return sized(s.GetNumberOfComponents()) })
}

func (m *Module) GetBytesPerPixel(id uint32) int32 {
	return typedValue(m, id, func(s mmdevice.SLM) (int, mmdevice.Code) { return sized(s.GetBytesPerPixel()) })
}

// Galvo. Positions use their own exports so that one guest can carry
// both a galvo and a state device.

func (m *Module) PointAndFire(id uint32, x, y, timeUs float64) int32 {
	return typed(m, id, func(g mmdevice.Galvo) mmdevice.Code { return g.PointAndFire(x, y, timeUs) })
}

func (m *Module) SetSpotInterval(id uint32, us float64) int32 {
	return typed(m, id, func(g mmdevice.Galvo) mmdevice.Code { return g.SetSpotInterval(us) })
}

func (m *Module) SetGalvoPosition(id uint32, x, y float64) int32 {
	return typed(m, id, func(g mmdevice.Galvo) mmdevice.Code { return g.SetPosition(x, y) })
}

func (m *Module) GetGalvoPosition(id, xOut, yOut uint32) int32 {
	return typedFloats(m, id, []uint32{xOut, yOut}, func(g mmdevice.Galvo) ([]float64, mmdevice.Code) {
		return pair(g.GetPosition())
	})
}

func (m *Module) SetIlluminationState(id uint32, on int32) int32 {
	return typed(m, id, func(g mmdevice.Galvo) mmdevice.Code { return g.SetIlluminationState(on != 0) })
}

func (m *Module) GetXRange(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(g mmdevice.Galvo) ([]float64, mmdevice.Code) {
		return one(g.GetXRange())
	})
}

func (m *Module) GetYRange(id, out uint32) int32 {
	return typedFloats(m, id, []uint32{out}, func(g mmdevice.Galvo) ([]float64, mmdevice.Code) {
		return one(g.GetYRange())
	})
}

// Hub.

func (m *Module) DetectInstalledDevices(id uint32) int32 {
	return typed(m, id, mmdevice.Hub.DetectInstalledDevices)
}

// ClearInstalledDevices also drops the handles given out for the hub's
// peripherals.
func (m *Module) ClearInstalledDevices(id uint32) int32 {
	return typed(m, id, func(h mmdevice.Hub) mmdevice.Code {
		h.ClearInstalledDevices()
		m.forgetInstalled(int32(id))

		return mmdevice.OK
	})
}

func (m *Module) GetNumberOfInstalledDevices(id uint32) int32 {
	return typedValue(m, id, func(h mmdevice.Hub) (int, mmdevice.Code) {
		return h.GetNumberOfInstalledDevices(), mmdevice.OK
	})
}

// GetInstalledDevice returns a handle for the hub's index-th peripheral, or
// 0 when there is none.
func (m *Module) GetInstalledDevice(id uint32, index int32) int32 {
	return typedValue(m, id, func(h mmdevice.Hub) (int, mmdevice.Code) {
		dev := h.GetInstalledDevice(int(index))
		if dev == nil {
			return 0, mmdevice.OK
		}
		if known, ok := m.handleOf(dev); ok {
			return int(known), mmdevice.OK
		}
		handle := m.adopt(dev)
		m.installed[int32(id)] = append(m.installed[int32(id)], handle)

		return int(handle), mmdevice.OK
	})
}
