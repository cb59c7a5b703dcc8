package device

import (
	"errors"

	"github.com/micro-manager/micro-manager-sub007/internal/adapter"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
)

// New creates device deviceName from module m and wraps it in the variant
// of its category. The category is the one the module advertises, or the
// one the device reports when the module does not advertise the name. On
// any failure after creation the raw device is deleted again.
func New(m *adapter.Module, deviceName, label string) (Instance, error) {
	raw, err := m.CreateRawDevice(deviceName)
	if err != nil {
		return nil, err
	}

	inst, err := wrap(m, raw, deviceName, label)
	if err != nil {
		if derr := m.DeleteRawDevice(raw); derr != nil {
			log.Error().
				Err(derr).
				Str("module", m.Name()).
				Str("device", deviceName).
				Msg("failed to delete rejected device")
		}

		return nil, err
	}

	return inst, nil
}

func wrap(m *adapter.Module, raw mmdevice.Device, deviceName, label string) (Instance, error) {
	m.Lock()
	reportedName := raw.GetName()
	reportedType := raw.GetType()
	m.Unlock()

	if reportedName != deviceName {
		return nil, errorcodes.New(errorcodes.ErrNameMismatch,
			"module %s created %q for requested %q", m.Name(), reportedName, deviceName)
	}

	typ, err := m.GetAdvertisedType(deviceName)
	switch {
	case errors.Is(err, errorcodes.ErrDeviceNotAdvertised):
		typ = reportedType
	case err != nil:
		return nil, err
	case typ != reportedType:
		return nil, errorcodes.New(errorcodes.ErrUnknownDeviceType,
			"%s advertised as %s but reports %s", deviceName, typ, reportedType)
	}

	b := &Base{
		module: m,
		raw:    raw,
		label:  label,
		name:   deviceName,
		typ:    typ,
	}

	inst, err := variant(b, raw)
	if err != nil {
		return nil, err
	}
	b.self = inst

	return inst, nil
}

// as asserts the typed interface for the device's category.
func as[T mmdevice.Device](b *Base, raw mmdevice.Device) (T, error) {
	typed, ok := raw.(T)
	if !ok {
		return typed, errorcodes.New(errorcodes.ErrUnknownDeviceType,
			"%s is advertised as %s but does not implement it", b.name, b.typ)
	}

	return typed, nil
}

func variant(b *Base, raw mmdevice.Device) (Instance, error) {
	switch b.typ {
	case mmdevice.CameraDevice:
		r, err := as[mmdevice.Camera](b, raw)
		return &Camera{b, r}, err
	case mmdevice.ShutterDevice:
		r, err := as[mmdevice.Shutter](b, raw)
		return &Shutter{b, r}, err
	case mmdevice.StageDevice:
		r, err := as[mmdevice.Stage](b, raw)
		return &Stage{b, r}, err
	case mmdevice.XYStageDevice:
		r, err := as[mmdevice.XYStage](b, raw)
		return &XYStage{b, r}, err
	case mmdevice.StateDevice:
		r, err := as[mmdevice.State](b, raw)
		return &State{b, r}, err
	case mmdevice.SerialDevice:
		r, err := as[mmdevice.Serial](b, raw)
		return &Serial{b, r}, err
	case mmdevice.GenericDevice:
		r, err := as[mmdevice.Generic](b, raw)
		return &Generic{b, r}, err
	case mmdevice.AutoFocusDevice:
		r, err := as[mmdevice.AutoFocus](b, raw)
		return &AutoFocus{b, r}, err
	case mmdevice.ImageProcessorDevice:
		r, err := as[mmdevice.ImageProcessor](b, raw)
		return &ImageProcessor{b, r}, err
	case mmdevice.SignalIODevice:
		r, err := as[mmdevice.SignalIO](b, raw)
		return &SignalIO{b, r}, err
	case mmdevice.MagnifierDevice:
		r, err := as[mmdevice.Magnifier](b, raw)
		return &Magnifier{b, r}, err
	case mmdevice.SLMDevice:
		r, err := as[mmdevice.SLM](b, raw)
		return &SLM{b, r}, err
	case mmdevice.GalvoDevice:
		r, err := as[mmdevice.Galvo](b, raw)
		return &Galvo{b, r}, err
	case mmdevice.HubDevice:
		r, err := as[mmdevice.Hub](b, raw)
		return &Hub{Base: b, raw: r}, err
	default:
		return nil, errorcodes.New(errorcodes.ErrUnknownDeviceType,
			"%s has type tag %d", b.name, int32(b.typ))
	}
}
