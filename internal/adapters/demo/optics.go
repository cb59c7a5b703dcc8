package demo

import (
	"math/rand/v2"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

type autoFocus struct {
	common
	continuous bool
	offset     float64
	lastScore  float64
}

func newAutoFocus() *autoFocus {
	a := &autoFocus{}
	a.setup(a, AutoFocusName, mmdevice.AutoFocusDevice)

	return a
}

func (a *autoFocus) SetContinuousFocusing(on bool) mmdevice.Code {
	if code := a.requireInitialized(); code.Failed() {
		return code
	}
	a.continuous = on

	return mmdevice.OK
}

func (a *autoFocus) GetContinuousFocusing() (bool, mmdevice.Code) { return a.continuous, mmdevice.OK }

func (a *autoFocus) IsContinuousFocusLocked() bool { return a.continuous }

func (a *autoFocus) FullFocus() mmdevice.Code {
	if code := a.requireInitialized(); code.Failed() {
		return code
	}
	a.lastScore = 1

	return mmdevice.OK
}

func (a *autoFocus) IncrementalFocus() mmdevice.Code { return a.FullFocus() }

func (a *autoFocus) GetLastFocusScore() (float64, mmdevice.Code) { return a.lastScore, mmdevice.OK }

func (a *autoFocus) GetCurrentFocusScore() (float64, mmdevice.Code) {
	return 0.9 + rand.Float64()/10, mmdevice.OK
}

func (a *autoFocus) GetOffset() (float64, mmdevice.Code) { return a.offset, mmdevice.OK }

func (a *autoFocus) SetOffset(offset float64) mmdevice.Code {
	a.offset = offset
	return mmdevice.OK
}

// processor inverts 8-bit images.
type processor struct {
	common
}

func newProcessor() *processor {
	p := &processor{}
	p.setup(p, ImageProcessorName, mmdevice.ImageProcessorDevice)

	return p
}

func (p *processor) Process(buf []byte, width, height, byteDepth uint32) mmdevice.Code {
	if byteDepth != 1 {
		return mmdevice.ErrUnsupportedDataFormat
	}
	if uint64(len(buf)) < uint64(width)*uint64(height) {
		return mmdevice.ErrInvalidInputParam
	}
	for i := range buf[:width*height] {
		buf[i] = ^buf[i]
	}

	return mmdevice.OK
}

const slmSide = 64

type slm struct {
	common
	pending   []byte
	displayed []byte
	exposure  float64
}

func newSLM() *slm {
	s := &slm{exposure: 10}
	s.setup(s, SLMName, mmdevice.SLMDevice)

	return s
}

func (s *slm) SetImage(pixels []byte) mmdevice.Code {
	if len(pixels) != slmSide*slmSide {
		return mmdevice.ErrInvalidInputParam
	}
	s.pending = append(s.pending[:0], pixels...)

	return mmdevice.OK
}

func (s *slm) DisplayImage() mmdevice.Code {
	if s.pending == nil {
		return mmdevice.ErrNoPropertyData
	}
	s.displayed = append(s.displayed[:0], s.pending...)

	return mmdevice.OK
}

func (s *slm) SetPixelsTo(intensity uint8) mmdevice.Code {
	s.displayed = make([]byte, slmSide*slmSide)
	for i := range s.displayed {
		s.displayed[i] = intensity
	}

	return mmdevice.OK
}

func (s *slm) GetWidth() uint32 { return slmSide }

func (s *slm) GetHeight() uint32 { return slmSide }

func (s *slm) GetNumberOfComponents() uint32 { return 1 }

func (s *slm) GetBytesPerPixel() uint32 { return 1 }

func (s *slm) SetExposure(ms float64) mmdevice.Code {
	if ms < 0 {
		return mmdevice.ErrInvalidInputParam
	}
	s.exposure = ms

	return mmdevice.OK
}

func (s *slm) GetExposure() float64 { return s.exposure }
