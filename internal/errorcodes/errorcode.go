// Package errorcodes defines the host error taxonomy.
// Kind holds the numeric code and human-readable description of one class of
// failure; Error attaches context and the underlying cause to a Kind.
package errorcodes

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// Predefined error kinds.
var (
	ErrGeneric                     = Kind{1, "Generic (unspecified) error"}
	ErrUnknownLabel                = Kind{2, "No device with this label is loaded"}
	ErrSymbolNotFound              = Kind{4, "Module does not export a required entry point"}
	ErrIncompatibleModule          = Kind{5, "Module interface version does not match the host"}
	ErrIncompatibleDeviceInterface = Kind{6, "Device interface version does not match the host"}
	ErrDeviceNotAdvertised         = Kind{7, "Device is not advertised by the module"}
	ErrLoad                        = Kind{8, "Module file missing, unreadable or not loadable"}
	ErrDeviceCreation              = Kind{9, "Module failed to create the device"}
	ErrNameMismatch                = Kind{13, "Created device reports a different name"}
	ErrDuplicateLabel              = Kind{16, "Label is already in use"}
	ErrInvalidLabel                = Kind{17, "Label is empty"}
	ErrInvalidPointer              = Kind{18, "Device object is not registered"}
	ErrUnknownDeviceType           = Kind{19, "Device type is not recognized"}
	ErrBufferOverflow              = Kind{20, "Module overran a fixed string buffer"}
	ErrDevice                      = Kind{21, "Device reported an error"}
	ErrInstanceReleased            = Kind{22, "Device instance was already released"}
	ErrDetectionNotRun             = Kind{23, "Peripheral detection has not completed"}
	ErrInvalidPeripheralIndex      = Kind{24, "Peripheral index out of range"}
	ErrDevicePollingTimeout        = Kind{25, "Timed out waiting for device"}
	ErrNotAHub                     = Kind{26, "Device is not a hub"}
	ErrInvalidConfig               = Kind{27, "Invalid hardware configuration"}
)

// Kind is one class of host failure.
type Kind struct {
	Code        int    // numeric code
	Description string // human-readable description
}

// Error implements the Go error interface: "<Code>: <Description>".
func (k Kind) Error() string {
	return strconv.Itoa(k.Code) + ": " + k.Description
}

// CodeOnly returns the numeric code as text, for embedding in responses.
func (k Kind) CodeOnly() string {
	return strconv.Itoa(k.Code)
}

// Error is a Kind with context and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Kind.Description
	if e.Msg != "" {
		s = e.Msg + ": " + s
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}

	return s
}

// Is matches the error against its Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with a formatted context message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind that keeps cause for diagnostics.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind of the outermost host error in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return ErrDevice, true
	}
	var k Kind
	if errors.As(err, &k) {
		return k, true
	}

	return Kind{}, false
}

// DeviceError is a failure code returned by a device adapter, with the
// adapter's own description of it.
type DeviceError struct {
	Label string
	Op    string
	Code  mmdevice.Code
	Text  string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s failed with code %d: %s", e.Label, e.Op, e.Code, e.Text)
}

// Is matches ErrDevice.
func (e *DeviceError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == ErrDevice
}
