package main

import (
	"strconv"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/micro-manager/micro-manager-sub007/pkg/wasmguest"
)

const (
	shutterName   = "WShutter"
	propOpenCount = "OpenCount"
)

var module = newModule()

func newModule() *wasmguest.Module {
	m := wasmguest.NewModule(createDevice)
	m.Catalog.Add(shutterName, mmdevice.ShutterDevice, "WebAssembly shutter")

	return m
}

func createDevice(name string) mmdevice.Device {
	if name != shutterName {
		return nil
	}

	return newShutter()
}

// shutter counts how often it was opened. Opening before Initialize fails.
type shutter struct {
	mmdevice.DeviceBase
	initialized bool
	open        bool
	opened      int
}

func newShutter() *shutter {
	s := &shutter{}
	s.Bind(s)
	s.CreateProperty(mmdevice.KeywordName, shutterName, mmdevice.String, true, nil, false)
	s.CreateProperty(mmdevice.KeywordState, "0", mmdevice.Integer, false, s.onState, false)
	s.SetAllowedValues(mmdevice.KeywordState, []string{"0", "1"})
	s.CreateProperty(propOpenCount, "0", mmdevice.Integer, true, nil, false)
	s.SetErrorText(mmdevice.ErrNotInitialized, "Shutter is not initialized")

	return s
}

func (s *shutter) onState(value string) mmdevice.Code {
	if !s.initialized {
		return mmdevice.ErrNotInitialized
	}
	open := value == "1"
	if open && !s.open {
		s.opened++
		s.UpdateProperty(propOpenCount, strconv.Itoa(s.opened))
		wasmguest.LogDebug("shutter opened")
	}
	s.open = open

	return mmdevice.OK
}

func (s *shutter) Initialize() mmdevice.Code {
	s.initialized = true
	wasmguest.LogInfo("shutter initialized")

	return mmdevice.OK
}

func (s *shutter) Shutdown() mmdevice.Code {
	s.initialized = false
	return mmdevice.OK
}

func (s *shutter) GetName() string { return shutterName }

func (s *shutter) GetType() mmdevice.DeviceType { return mmdevice.ShutterDevice }

func (s *shutter) SetOpen(open bool) mmdevice.Code {
	v := "0"
	if open {
		v = "1"
	}

	return s.SetProperty(mmdevice.KeywordState, v)
}

func (s *shutter) GetOpen() (bool, mmdevice.Code) { return s.open, mmdevice.OK }

func (s *shutter) Fire(float64) mmdevice.Code { return mmdevice.ErrNotSupported }
