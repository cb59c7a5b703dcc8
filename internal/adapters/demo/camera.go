package demo

import (
	"strconv"
	"sync"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

const (
	sensorWidth  = 512
	sensorHeight = 512
)

// camera produces a ramp pattern shifted by one grey level per snap.
type camera struct {
	common
	x, y, w, h uint32
	frame      byte
	image      []byte

	seqMu     sync.Mutex
	capturing bool
}

func newCamera() *camera {
	c := &camera{w: sensorWidth, h: sensorHeight}
	c.setup(c, CameraName, mmdevice.CameraDevice)
	c.CreateProperty(mmdevice.KeywordExposure, "10", mmdevice.Float, false, nil, false)
	c.SetPropertyLimits(mmdevice.KeywordExposure, 0, 10000)
	c.CreateProperty(mmdevice.KeywordBinning, "1", mmdevice.Integer, false, c.onBinning, false)
	c.SetAllowedValues(mmdevice.KeywordBinning, []string{"1", "2", "4"})
	c.CreateProperty("PixelType", "8bit", mmdevice.String, true, nil, false)
	c.SetErrorText(mmdevice.ErrSnapImageFailed, "Camera is not initialized")

	return c
}

func (c *camera) onBinning(value string) mmdevice.Code {
	bin, err := strconv.Atoi(value)
	if err != nil || bin <= 0 {
		return mmdevice.ErrInvalidPropertyValue
	}
	c.x, c.y, c.w, c.h = 0, 0, sensorWidth/uint32(bin), sensorHeight/uint32(bin)

	return mmdevice.OK
}

func (c *camera) SnapImage() mmdevice.Code {
	if c.requireInitialized().Failed() {
		return mmdevice.ErrSnapImageFailed
	}

	img := make([]byte, c.w*c.h)
	for row := range c.h {
		for col := range c.w {
			img[row*c.w+col] = byte(row+col) + c.frame
		}
	}
	c.image = img
	c.frame++

	return mmdevice.OK
}

func (c *camera) GetImageBuffer() []byte { return c.image }

func (c *camera) GetImageWidth() uint32 { return c.w }

func (c *camera) GetImageHeight() uint32 { return c.h }

func (c *camera) GetImageBytesPerPixel() uint32 { return 1 }

func (c *camera) GetBitDepth() uint32 { return 8 }

func (c *camera) GetExposure() float64 {
	v, _ := c.GetProperty(mmdevice.KeywordExposure)
	ms, _ := strconv.ParseFloat(v, 64)

	return ms
}

func (c *camera) SetExposure(ms float64) {
	c.SetProperty(mmdevice.KeywordExposure, strconv.FormatFloat(ms, 'f', -1, 64))
}

func (c *camera) GetBinning() int {
	v, _ := c.GetProperty(mmdevice.KeywordBinning)
	bin, _ := strconv.Atoi(v)

	return bin
}

func (c *camera) SetBinning(bin int) mmdevice.Code {
	return c.SetProperty(mmdevice.KeywordBinning, strconv.Itoa(bin))
}

func (c *camera) GetROI() (x, y, width, height uint32, code mmdevice.Code) {
	return c.x, c.y, c.w, c.h, mmdevice.OK
}

func (c *camera) SetROI(x, y, width, height uint32) mmdevice.Code {
	bin := uint32(c.GetBinning())
	if width == 0 || height == 0 || x+width > sensorWidth/bin || y+height > sensorHeight/bin {
		return mmdevice.ErrInvalidInputParam
	}
	c.x, c.y, c.w, c.h = x, y, width, height

	return mmdevice.OK
}

func (c *camera) ClearROI() mmdevice.Code {
	bin := uint32(c.GetBinning())
	c.x, c.y, c.w, c.h = 0, 0, sensorWidth/bin, sensorHeight/bin

	return mmdevice.OK
}

// StartSequenceAcquisition only records the capturing flag; frames are not
// streamed anywhere.
func (c *camera) StartSequenceAcquisition(_ int64, _ float64, _ bool) mmdevice.Code {
	if code := c.requireInitialized(); code.Failed() {
		return code
	}

	c.seqMu.Lock()
	defer c.seqMu.Unlock()

	c.capturing = true

	return mmdevice.OK
}

func (c *camera) StopSequenceAcquisition() mmdevice.Code {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()

	c.capturing = false

	return mmdevice.OK
}

func (c *camera) IsCapturing() bool {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()

	return c.capturing
}

func (c *camera) Shutdown() mmdevice.Code {
	c.StopSequenceAcquisition()
	return c.common.Shutdown()
}
