package demo

import (
	"strconv"
	"time"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

const (
	propMoveTime = "MoveTimeMs"
	stageTravel  = 10000.0
)

// motion simulates travel time: the device reports busy for MoveTimeMs
// after every move.
type motion struct {
	common
	busyUntil time.Time
}

func (m *motion) setupMotion(self mmdevice.Device, name string, typ mmdevice.DeviceType) {
	m.setup(self, name, typ)
	m.CreateProperty(propMoveTime, "0", mmdevice.Integer, false, nil, false)
	m.SetPropertyLimits(propMoveTime, 0, 60000)
	m.EnableDelay(true)
}

func (m *motion) startMove() {
	v, _ := m.GetProperty(propMoveTime)
	ms, _ := strconv.Atoi(v)
	m.busyUntil = time.Now().Add(time.Duration(ms) * time.Millisecond)
}

func (m *motion) Busy() bool { return time.Now().Before(m.busyUntil) }

func (m *motion) Stop() mmdevice.Code {
	m.busyUntil = time.Time{}
	return mmdevice.OK
}

func inTravel(v float64) bool { return v >= -stageTravel && v <= stageTravel }

type stage struct {
	motion
	pos, origin float64
}

func newStage(name string) *stage {
	s := &stage{}
	s.setupMotion(s, name, mmdevice.StageDevice)
	s.CreateProperty(mmdevice.KeywordPosition, "0", mmdevice.Float, true, nil, false)

	return s
}

func (s *stage) SetPositionUm(pos float64) mmdevice.Code {
	if code := s.requireInitialized(); code.Failed() {
		return code
	}
	if !inTravel(pos + s.origin) {
		return mmdevice.ErrOutOfRange
	}
	s.pos = pos
	s.UpdateProperty(mmdevice.KeywordPosition, strconv.FormatFloat(pos, 'f', -1, 64))
	s.startMove()

	return mmdevice.OK
}

func (s *stage) GetPositionUm() (float64, mmdevice.Code) { return s.pos, mmdevice.OK }

func (s *stage) SetRelativePositionUm(delta float64) mmdevice.Code {
	return s.SetPositionUm(s.pos + delta)
}

func (s *stage) Home() mmdevice.Code {
	s.origin = 0
	return s.SetPositionUm(0)
}

func (s *stage) SetOrigin() mmdevice.Code {
	s.origin += s.pos
	s.pos = 0

	return mmdevice.OK
}

func (s *stage) GetLimits() (lower, upper float64, code mmdevice.Code) {
	return -stageTravel - s.origin, stageTravel - s.origin, mmdevice.OK
}

type xyStage struct {
	motion
	x, y float64
}

func newXYStage() *xyStage {
	s := &xyStage{}
	s.setupMotion(s, XYStageName, mmdevice.XYStageDevice)

	return s
}

func (s *xyStage) SetXYPositionUm(x, y float64) mmdevice.Code {
	if code := s.requireInitialized(); code.Failed() {
		return code
	}
	if !inTravel(x) || !inTravel(y) {
		return mmdevice.ErrOutOfRange
	}
	s.x, s.y = x, y
	s.startMove()

	return mmdevice.OK
}

func (s *xyStage) GetXYPositionUm() (x, y float64, code mmdevice.Code) {
	return s.x, s.y, mmdevice.OK
}

func (s *xyStage) SetRelativeXYPositionUm(dx, dy float64) mmdevice.Code {
	return s.SetXYPositionUm(s.x+dx, s.y+dy)
}

func (s *xyStage) Home() mmdevice.Code { return s.SetXYPositionUm(0, 0) }

func (s *xyStage) SetOrigin() mmdevice.Code {
	s.x, s.y = 0, 0
	return mmdevice.OK
}

func (s *xyStage) GetLimitsUm() (xMin, xMax, yMin, yMax float64, code mmdevice.Code) {
	return -stageTravel, stageTravel, -stageTravel, stageTravel, mmdevice.OK
}

const galvoRange = 10.0

type galvo struct {
	common
	x, y         float64
	spotInterval float64
	illuminated  bool
}

func newGalvo() *galvo {
	g := &galvo{}
	g.setup(g, GalvoName, mmdevice.GalvoDevice)

	return g
}

func (g *galvo) PointAndFire(x, y, timeUs float64) mmdevice.Code {
	if code := g.SetPosition(x, y); code.Failed() {
		return code
	}
	g.LogMessage("fired for "+strconv.FormatFloat(timeUs, 'f', -1, 64)+"us", true)

	return mmdevice.OK
}

func (g *galvo) SetSpotInterval(us float64) mmdevice.Code {
	if us < 0 {
		return mmdevice.ErrInvalidInputParam
	}
	g.spotInterval = us

	return mmdevice.OK
}

func (g *galvo) SetPosition(x, y float64) mmdevice.Code {
	if x < 0 || x > galvoRange || y < 0 || y > galvoRange {
		return mmdevice.ErrOutOfRange
	}
	g.x, g.y = x, y

	return mmdevice.OK
}

func (g *galvo) GetPosition() (x, y float64, code mmdevice.Code) {
	return g.x, g.y, mmdevice.OK
}

func (g *galvo) SetIlluminationState(on bool) mmdevice.Code {
	g.illuminated = on
	return mmdevice.OK
}

func (g *galvo) GetXRange() float64 { return galvoRange }

func (g *galvo) GetYRange() float64 { return galvoRange }
