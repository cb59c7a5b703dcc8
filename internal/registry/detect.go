package registry

import (
	"errors"

	"github.com/micro-manager/micro-manager-sub007/internal/device"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
)

// DetectDevice runs the detection routine of the device at label. A device
// that talks through a serial port may reconfigure that port while
// probing; unless the result is CanCommunicate, failed detection
// included, the port's communication settings are put back afterwards.
func (r *Registry) DetectDevice(label string) (mmdevice.DetectionStatus, error) {
	inst, err := r.GetDevice(label)
	if err != nil {
		return mmdevice.Unimplemented, err
	}

	supported, err := inst.SupportsDeviceDetection()
	if err != nil || !supported {
		return mmdevice.Unimplemented, err
	}

	port, saved, err := r.savePortSettings(inst)
	if err != nil {
		return mmdevice.Unimplemented, err
	}

	status, err := inst.DetectDevice()
	if status != mmdevice.CanCommunicate && port != nil {
		if rerr := restorePortSettings(port, saved); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}
	if err != nil {
		return status, err
	}

	log.Info().
		Str("event", "device_detected").
		Str("label", label).
		Str("status", status.String()).
		Msg("device detection finished")

	return status, nil
}

type setting struct{ name, value string }

// savePortSettings returns the serial port named by the Port property of
// inst with its current communication settings. The port is nil when inst
// has no port or the port is not a loaded serial device.
func (r *Registry) savePortSettings(inst device.Instance) (*device.Serial, []setting, error) {
	hasPort, err := inst.HasProperty(mmdevice.KeywordPort)
	if err != nil || !hasPort {
		return nil, nil, err
	}
	portLabel, err := inst.GetProperty(mmdevice.KeywordPort)
	if err != nil || portLabel == "" {
		return nil, nil, err
	}
	d, err := r.GetDevice(portLabel)
	if err != nil {
		return nil, nil, nil //nolint:nilerr // an unloaded port has nothing to restore
	}
	port, ok := d.(*device.Serial)
	if !ok {
		return nil, nil, nil
	}

	var saved []setting
	for _, name := range mmdevice.SerialPortSettings {
		has, err := port.HasProperty(name)
		if err != nil {
			return nil, nil, err
		}
		if !has {
			continue
		}
		v, err := port.GetProperty(name)
		if err != nil {
			return nil, nil, err
		}
		saved = append(saved, setting{name, v})
	}

	return port, saved, nil
}

// restorePortSettings shuts the port down, writes back the saved settings
// and initializes it again.
func restorePortSettings(port *device.Serial, saved []setting) error {
	var errs []error
	if err := port.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	for _, s := range saved {
		if err := port.SetProperty(s.name, s.value); err != nil {
			errs = append(errs, err)
		}
	}
	if err := port.Initialize(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
