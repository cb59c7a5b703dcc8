package demo

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// Detection results the shutter can be told to report.
const propDetectResult = "DetectResult"

// shutter talks through a serial port named by its Port property. Its
// detection routine tries the port at 115200 baud.
type shutter struct {
	common
	open bool
}

func newShutter(name string) *shutter {
	s := &shutter{}
	s.setup(s, name, mmdevice.ShutterDevice)
	s.CreateProperty(mmdevice.KeywordState, "0", mmdevice.Integer, false, s.onState, false)
	s.SetAllowedValues(mmdevice.KeywordState, []string{"0", "1"})
	s.CreateProperty(mmdevice.KeywordPort, "", mmdevice.String, false, nil, true)
	s.CreateProperty(propDetectResult, mmdevice.CanCommunicate.String(), mmdevice.String, false, nil, true)
	s.SetAllowedValues(propDetectResult, []string{
		mmdevice.CanCommunicate.String(),
		mmdevice.CanNotCommunicate.String(),
		mmdevice.Misconfigured.String(),
	})

	return s
}

func (s *shutter) onState(value string) mmdevice.Code {
	s.open = value == "1"
	return mmdevice.OK
}

func (s *shutter) SetOpen(open bool) mmdevice.Code {
	v := "0"
	if open {
		v = "1"
	}

	return s.SetProperty(mmdevice.KeywordState, v)
}

func (s *shutter) GetOpen() (bool, mmdevice.Code) { return s.open, mmdevice.OK }

func (s *shutter) Fire(float64) mmdevice.Code { return mmdevice.ErrNotSupported }

func (s *shutter) SupportsDeviceDetection() bool { return true }

func (s *shutter) DetectDevice() mmdevice.DetectionStatus {
	port, _ := s.GetProperty(mmdevice.KeywordPort)
	core := s.Callback()
	if port == "" || core == nil {
		return mmdevice.Misconfigured
	}
	if core.SetDeviceProperty(s, port, mmdevice.KeywordBaudRate, "115200").Failed() {
		return mmdevice.Misconfigured
	}

	result, _ := s.GetProperty(propDetectResult)
	switch result {
	case mmdevice.CanNotCommunicate.String():
		return mmdevice.CanNotCommunicate
	case mmdevice.Misconfigured.String():
		return mmdevice.Misconfigured
	default:
		return mmdevice.CanCommunicate
	}
}

const wheelPositions = 6

type wheel struct {
	common
	pos    int
	gate   bool
	labels [wheelPositions]string
}

func newWheel() *wheel {
	w := &wheel{gate: true}
	w.setup(w, WheelName, mmdevice.StateDevice)
	for i := range w.labels {
		w.labels[i] = "Filter-" + strconv.Itoa(i)
	}
	w.CreateProperty(mmdevice.KeywordState, "0", mmdevice.Integer, false, w.onState, false)
	w.SetPropertyLimits(mmdevice.KeywordState, 0, wheelPositions-1)
	w.CreateProperty(mmdevice.KeywordLabel, w.labels[0], mmdevice.String, false, w.onLabel, false)
	w.SetAllowedValues(mmdevice.KeywordLabel, w.labels[:])

	return w
}

func (w *wheel) onState(value string) mmdevice.Code {
	pos, err := strconv.Atoi(value)
	if err != nil {
		return mmdevice.ErrInvalidPropertyValue
	}
	w.pos = pos
	w.UpdateProperty(mmdevice.KeywordLabel, w.labels[pos])

	return mmdevice.OK
}

func (w *wheel) onLabel(value string) mmdevice.Code {
	for i, l := range w.labels {
		if l == value {
			w.pos = i
			w.UpdateProperty(mmdevice.KeywordState, strconv.Itoa(i))
			return mmdevice.OK
		}
	}

	return mmdevice.ErrUnknownPosition
}

func (w *wheel) SetPosition(pos int) mmdevice.Code {
	return w.SetProperty(mmdevice.KeywordState, strconv.Itoa(pos))
}

func (w *wheel) GetPosition() (int, mmdevice.Code) { return w.pos, mmdevice.OK }

func (w *wheel) GetNumberOfPositions() int { return wheelPositions }

func (w *wheel) GetPositionLabel(pos int) (string, mmdevice.Code) {
	if pos < 0 || pos >= wheelPositions {
		return "", mmdevice.ErrUnknownPosition
	}

	return w.labels[pos], mmdevice.OK
}

func (w *wheel) SetPositionLabel(pos int, label string) mmdevice.Code {
	if pos < 0 || pos >= wheelPositions {
		return mmdevice.ErrUnknownPosition
	}
	w.labels[pos] = label
	w.SetAllowedValues(mmdevice.KeywordLabel, w.labels[:])
	if pos == w.pos {
		w.UpdateProperty(mmdevice.KeywordLabel, label)
	}

	return mmdevice.OK
}

func (w *wheel) SetGateOpen(open bool) mmdevice.Code {
	w.gate = open
	return mmdevice.OK
}

func (w *wheel) GetGateOpen() (bool, mmdevice.Code) { return w.gate, mmdevice.OK }

// port is a loopback serial port: everything written is read back.
type port struct {
	common
	buf bytes.Buffer
}

func newPort() *port {
	p := &port{}
	p.setup(p, PortName, mmdevice.SerialDevice)
	p.CreateProperty(mmdevice.KeywordBaudRate, "9600", mmdevice.String, false, nil, true)
	p.SetAllowedValues(mmdevice.KeywordBaudRate, []string{"9600", "19200", "57600", "115200"})
	p.CreateProperty(mmdevice.KeywordDataBits, "8", mmdevice.String, false, nil, true)
	p.CreateProperty(mmdevice.KeywordStopBits, "1", mmdevice.String, false, nil, true)
	p.CreateProperty(mmdevice.KeywordParity, "None", mmdevice.String, false, nil, true)
	p.CreateProperty(mmdevice.KeywordHandshaking, "Off", mmdevice.String, false, nil, true)
	p.CreateProperty(mmdevice.KeywordAnswerTimeout, "500", mmdevice.Float, false, nil, true)
	p.CreateProperty(mmdevice.KeywordDelayBetweenCharsMs, "0", mmdevice.Float, false, nil, true)
	p.SetErrorText(mmdevice.ErrSerialTimeout, "No answer pending on loopback port")

	return p
}

func (p *port) SetCommand(command, terminator string) mmdevice.Code {
	p.buf.WriteString(command + terminator)
	return mmdevice.OK
}

func (p *port) GetAnswer(terminator string) (string, mmdevice.Code) {
	data := p.buf.String()
	i := strings.Index(data, terminator)
	if terminator == "" || i < 0 {
		return "", mmdevice.ErrSerialTimeout
	}
	p.buf.Next(i + len(terminator))

	return data[:i], mmdevice.OK
}

func (p *port) Write(data []byte) mmdevice.Code {
	p.buf.Write(data)
	return mmdevice.OK
}

func (p *port) Read(buf []byte) (int, mmdevice.Code) {
	n, _ := p.buf.Read(buf)
	return n, mmdevice.OK
}

func (p *port) Purge() mmdevice.Code {
	p.buf.Reset()
	return mmdevice.OK
}

func (p *port) Shutdown() mmdevice.Code {
	p.buf.Reset()
	return p.common.Shutdown()
}

// generic is a light source with a power setting.
type generic struct {
	common
}

func newGeneric() *generic {
	g := &generic{}
	g.setup(g, GenericName, mmdevice.GenericDevice)
	g.CreateProperty("Power", "0", mmdevice.Float, false, nil, false)
	g.SetPropertyLimits("Power", 0, 100)
	g.SetPropertySequenceable("Power", 16)
	g.CreateProperty("Wavelength", "488", mmdevice.Integer, false, nil, true)
	g.SetAllowedValues("Wavelength", []string{"405", "488", "561", "640"})

	return g
}

const signalMaxVolts = 5.0

type signal struct {
	common
	gate  bool
	volts float64
}

func newSignal() *signal {
	s := &signal{gate: true}
	s.setup(s, SignalIOName, mmdevice.SignalIODevice)
	s.CreateProperty("Volts", "0", mmdevice.Float, false, s.onVolts, false)
	s.SetPropertyLimits("Volts", 0, signalMaxVolts)

	return s
}

func (s *signal) onVolts(value string) mmdevice.Code {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return mmdevice.ErrInvalidPropertyValue
	}
	s.volts = v

	return mmdevice.OK
}

func (s *signal) SetGateOpen(open bool) mmdevice.Code {
	s.gate = open
	return mmdevice.OK
}

func (s *signal) GetGateOpen() (bool, mmdevice.Code) { return s.gate, mmdevice.OK }

func (s *signal) SetSignal(volts float64) mmdevice.Code {
	return s.SetProperty("Volts", strconv.FormatFloat(volts, 'f', -1, 64))
}

func (s *signal) GetSignal() (float64, mmdevice.Code) { return s.volts, mmdevice.OK }

func (s *signal) GetLimits() (lower, upper float64, code mmdevice.Code) {
	return 0, signalMaxVolts, mmdevice.OK
}

type magnifier struct {
	common
}

func newMagnifier() *magnifier {
	m := &magnifier{}
	m.setup(m, MagnifierName, mmdevice.MagnifierDevice)
	m.CreateProperty("Magnification", "1.0", mmdevice.Float, false, nil, false)
	m.SetAllowedValues("Magnification", []string{"1.0", "1.5", "2.0"})

	return m
}

func (m *magnifier) GetMagnification() float64 {
	v, _ := m.GetProperty("Magnification")
	mag, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 1
	}

	return mag
}
