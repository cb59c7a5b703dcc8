package hwconfig

import (
	"errors"
	"fmt"

	"github.com/micro-manager/micro-manager-sub007/internal/registry"
	"github.com/rs/zerolog/log"
)

// Apply loads cfg into r: every device is loaded, parents are assigned,
// pre-init properties are set, all devices are initialized in load order,
// then the remaining properties and delays are set. If any step fails
// every device is unloaded again.
func Apply(r *registry.Registry, cfg *Config) error {
	if err := apply(r, cfg); err != nil {
		if uerr := r.UnloadAllDevices(); uerr != nil {
			err = errors.Join(err, uerr)
		}

		return err
	}

	log.Info().
		Str("event", "hardware_applied").
		Int("devices", len(cfg.Devices)).
		Msg("hardware configuration applied")

	return nil
}

func apply(r *registry.Registry, cfg *Config) error {
	for _, d := range cfg.Devices {
		if _, err := r.LoadDevice(d.Label, d.Module, d.Device); err != nil {
			return fmt.Errorf("loading %s: %w", d.Label, err)
		}
	}

	for _, d := range cfg.Devices {
		if d.Parent == "" {
			continue
		}
		if err := r.SetParentLabel(d.Label, d.Parent); err != nil {
			return fmt.Errorf("parent of %s: %w", d.Label, err)
		}
	}

	for _, d := range cfg.Devices {
		if err := setProperties(r, d.Label, d.PreInit); err != nil {
			return err
		}
	}

	if err := r.InitializeAllDevices(); err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	for _, d := range cfg.Devices {
		if err := setProperties(r, d.Label, d.Properties); err != nil {
			return err
		}
		if d.DelayMs == nil {
			continue
		}
		inst, err := r.GetDevice(d.Label)
		if err != nil {
			return err
		}
		if err := inst.SetDelayMs(*d.DelayMs); err != nil {
			return fmt.Errorf("delay of %s: %w", d.Label, err)
		}
	}

	return nil
}

func setProperties(r *registry.Registry, label string, props []Property) error {
	if len(props) == 0 {
		return nil
	}

	inst, err := r.GetDevice(label)
	if err != nil {
		return err
	}
	for _, p := range props {
		if err := inst.SetProperty(p.Name, p.Value); err != nil {
			return fmt.Errorf("setting %s.%s=%s: %w", label, p.Name, p.Value, err)
		}
	}

	return nil
}

// Snapshot describes the devices loaded in r as a configuration. Writable
// properties are recorded with their current values, split by whether
// they must be set before initialization. Delays are recorded for devices
// that use them.
func Snapshot(r *registry.Registry) (*Config, error) {
	cfg := &Config{Devices: []Device{}}

	for _, label := range r.Labels() {
		inst, err := r.GetDevice(label)
		if err != nil {
			return nil, err
		}

		d := Device{Label: label, Module: inst.ModuleName(), Device: inst.Name()}
		if d.Parent, err = inst.ParentID(); err != nil {
			return nil, err
		}

		names, err := inst.PropertyNames()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			readOnly, err := inst.PropertyReadOnly(name)
			if err != nil {
				return nil, err
			}
			if readOnly {
				continue
			}
			value, err := inst.GetProperty(name)
			if err != nil {
				return nil, err
			}
			preInit, err := inst.PropertyPreInit(name)
			if err != nil {
				return nil, err
			}
			if preInit {
				d.PreInit = append(d.PreInit, Property{name, value})
			} else {
				d.Properties = append(d.Properties, Property{name, value})
			}
		}

		usesDelay, err := inst.UsesDelay()
		if err != nil {
			return nil, err
		}
		if usesDelay {
			delay, err := inst.GetDelayMs()
			if err != nil {
				return nil, err
			}
			d.DelayMs = &delay
		}

		cfg.Devices = append(cfg.Devices, d)
	}

	return cfg, nil
}
