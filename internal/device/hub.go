package device

import (
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// Hub is a loaded controller with peripherals. Detection runs at most once
// per instance; the result is kept and the peripherals it found stay raw
// and unlabelled until loaded by name.
type Hub struct {
	*Base
	raw mmdevice.Hub

	// guarded by the module lock
	detected   bool
	detectCode mmdevice.Code
}

// DetectInstalledDevices runs peripheral detection on first call and
// returns the recorded outcome afterwards.
func (h *Hub) DetectInstalledDevices() error {
	unlock, err := h.enter()
	if err != nil {
		return err
	}
	defer unlock()

	if !h.detected {
		h.detectCode = h.raw.DetectInstalledDevices()
		h.detected = true
	}

	return h.check("DetectInstalledDevices", h.detectCode)
}

// detectedLocked fails unless detection ran and succeeded. The module lock
// must be held.
func (h *Hub) detectedLocked() error {
	if !h.detected || h.detectCode.Failed() {
		return errorcodes.New(errorcodes.ErrDetectionNotRun, "hub %s", h.label)
	}

	return nil
}

// GetNumberOfInstalledDevices returns how many peripherals detection found.
func (h *Hub) GetNumberOfInstalledDevices() (int, error) {
	unlock, err := h.enter()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := h.detectedLocked(); err != nil {
		return 0, err
	}

	return h.raw.GetNumberOfInstalledDevices(), nil
}

// GetInstalledDevice returns the index-th detected peripheral.
func (h *Hub) GetInstalledDevice(index int) (mmdevice.Device, error) {
	unlock, err := h.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	return h.installedLocked(index)
}

func (h *Hub) installedLocked(index int) (mmdevice.Device, error) {
	if err := h.detectedLocked(); err != nil {
		return nil, err
	}
	if index < 0 || index >= h.raw.GetNumberOfInstalledDevices() {
		return nil, errorcodes.New(errorcodes.ErrInvalidPeripheralIndex,
			"hub %s has no peripheral %d", h.label, index)
	}

	dev := h.raw.GetInstalledDevice(index)
	if dev == nil {
		return nil, errorcodes.New(errorcodes.ErrInvalidPeripheralIndex,
			"hub %s returned no peripheral at %d", h.label, index)
	}

	return dev, nil
}

// InstalledDeviceNames lists the device names of the detected peripherals.
func (h *Hub) InstalledDeviceNames() ([]string, error) {
	unlock, err := h.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := h.detectedLocked(); err != nil {
		return nil, err
	}

	n := h.raw.GetNumberOfInstalledDevices()
	names := make([]string, 0, n)
	for i := range n {
		dev, err := h.installedLocked(i)
		if err != nil {
			return nil, err
		}
		names = append(names, dev.GetName())
	}

	return names, nil
}

// InstalledDeviceDescription describes a detected peripheral, preferring its
// Description property over the module catalog.
func (h *Hub) InstalledDeviceDescription(name string) (string, error) {
	desc, found, err := h.peripheralDescription(name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errorcodes.New(errorcodes.ErrDeviceNotAdvertised,
			"hub %s has no peripheral %s", h.label, name)
	}
	if desc != "" {
		return desc, nil
	}

	return h.module.GetDeviceDescription(name)
}

func (h *Hub) peripheralDescription(name string) (desc string, found bool, err error) {
	unlock, err := h.enter()
	if err != nil {
		return "", false, err
	}
	defer unlock()

	if err := h.detectedLocked(); err != nil {
		return "", false, err
	}

	for i := range h.raw.GetNumberOfInstalledDevices() {
		dev := h.raw.GetInstalledDevice(i)
		if dev == nil || dev.GetName() != name {
			continue
		}
		if v, code := dev.GetProperty(mmdevice.KeywordDescription); !code.Failed() {
			return v, true, nil
		}

		return "", true, nil
	}

	return "", false, nil
}
