package mmdevice

import "strconv"

// Code is the integer result a device method returns. OK is zero; any other
// value is a failure the adapter may describe through GetErrorText.
type Code int32

// Result codes shared by all adapters.
const (
	OK                       Code = 0
	Err                      Code = 1
	ErrInvalidProperty       Code = 2
	ErrInvalidPropertyValue  Code = 3
	ErrDuplicateProperty     Code = 4
	ErrInvalidPropertyType   Code = 5
	ErrNativeModuleFailed    Code = 6
	ErrUnsupportedDataFormat Code = 7
	ErrInternalInconsistency Code = 8
	ErrNotSupported          Code = 9
	ErrUnknownLabel          Code = 10
	ErrUnsupportedCommand    Code = 11
	ErrUnknownPosition       Code = 12
	ErrNoCallbackRegistered  Code = 13
	ErrSerialCommandFailed   Code = 14
	ErrSerialBufferOverrun   Code = 15
	ErrSerialInvalidResponse Code = 16
	ErrSerialTimeout         Code = 17
	ErrSelfReference         Code = 18
	ErrNoPropertyData        Code = 19
	ErrDuplicateLabel        Code = 20
	ErrInvalidInputParam     Code = 21
	ErrBufferOverflow        Code = 22
	ErrNonexistentChannel    Code = 23
	ErrInvalidPropertyLimits Code = 24
	ErrSnapImageFailed       Code = 25
	ErrImageParamsFailed     Code = 26
	ErrNotYetImplemented     Code = 27
	ErrOutOfRange            Code = 28
	ErrCommLocked            Code = 29
	ErrNotInitialized        Code = 30
)

var codeText = map[Code]string{
	OK:                       "No error",
	Err:                      "Generic device error",
	ErrInvalidProperty:       "Invalid property",
	ErrInvalidPropertyValue:  "Invalid property value",
	ErrDuplicateProperty:     "Duplicate property",
	ErrInvalidPropertyType:   "Invalid property type",
	ErrNativeModuleFailed:    "Native module failed",
	ErrUnsupportedDataFormat: "Unsupported data format",
	ErrInternalInconsistency: "Internal inconsistency",
	ErrNotSupported:          "Operation not supported",
	ErrUnknownLabel:          "Unknown label",
	ErrUnsupportedCommand:    "Unsupported command",
	ErrUnknownPosition:       "Unknown position",
	ErrNoCallbackRegistered:  "No core callback registered",
	ErrSerialCommandFailed:   "Serial command failed",
	ErrSerialBufferOverrun:   "Serial buffer overrun",
	ErrSerialInvalidResponse: "Invalid response from serial port",
	ErrSerialTimeout:         "Serial port timed out",
	ErrSelfReference:         "Device refers to itself",
	ErrNoPropertyData:        "No property data",
	ErrDuplicateLabel:        "Duplicate label",
	ErrInvalidInputParam:     "Invalid input parameter",
	ErrBufferOverflow:        "Buffer overflow",
	ErrNonexistentChannel:    "Nonexistent channel",
	ErrInvalidPropertyLimits: "Invalid property limits",
	ErrSnapImageFailed:       "Snap image failed",
	ErrImageParamsFailed:     "Image parameters failed",
	ErrNotYetImplemented:     "Not yet implemented",
	ErrOutOfRange:            "Value out of range",
	ErrCommLocked:            "Communication port is locked",
	ErrNotInitialized:        "Device not initialized",
}

// Text returns the generic description of a result code.
func (c Code) Text() string {
	if text, ok := codeText[c]; ok {
		return text
	}

	return "Device error " + strconv.Itoa(int(c))
}

// Failed reports whether the code signals a failure.
func (c Code) Failed() bool {
	return c != OK
}
