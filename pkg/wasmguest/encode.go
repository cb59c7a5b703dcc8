package wasmguest

import (
	"encoding/binary"
	"math"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// String reads the (ptr, n) string argument the host passed. A zero
// pointer is the empty string.
func String(ptr, n uint32) string {
	if ptr == 0 || n == 0 {
		return ""
	}
	data, ok := Bytes(ptr, n)
	if !ok {
		return ""
	}

	return string(data)
}

// PutString writes s NUL-terminated into the (ptr, size) buffer.
func PutString(ptr, size uint32, s string) mmdevice.Code {
	buf, ok := Bytes(ptr, size)
	if !ok {
		return mmdevice.ErrInvalidInputParam
	}
	if len(s) >= len(buf) {
		return mmdevice.ErrBufferOverflow
	}
	mmdevice.CopyCString(buf, s)

	return mmdevice.OK
}

// PutFloat writes v as a little-endian f64 at ptr.
func PutFloat(ptr uint32, v float64) mmdevice.Code {
	buf, ok := Bytes(ptr, 8)
	if !ok {
		return mmdevice.ErrInvalidInputParam
	}
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))

	return mmdevice.OK
}

// PutUint32 writes v little-endian at ptr.
func PutUint32(ptr, v uint32) bool {
	buf, ok := Bytes(ptr, 4)
	if ok {
		binary.LittleEndian.PutUint32(buf, v)
	}

	return ok
}

// Value encodes a non-negative result, or the failure code negated.
func Value(v int, code mmdevice.Code) int32 {
	if code.Failed() {
		return -int32(code)
	}

	return int32(v)
}

// Bool encodes a flag result, or the failure code negated.
func Bool(b bool, code mmdevice.Code) int32 {
	if b {
		return Value(1, code)
	}

	return Value(0, code)
}

// Flag is the i32 form of b.
func Flag(b bool) int32 {
	if b {
		return 1
	}

	return 0
}

// Slice returns the (ptr, n) byte argument the host passed. A zero length
// is an empty slice.
func Slice(ptr, n uint32) ([]byte, bool) {
	if n == 0 {
		return nil, true
	}

	return Bytes(ptr, n)
}

// PutBytes copies data into the (ptr, size) buffer and returns its length.
func PutBytes(ptr, size uint32, data []byte) (int, mmdevice.Code) {
	if uint64(len(data)) > uint64(size) {
		return 0, mmdevice.ErrBufferOverflow
	}
	buf, ok := Slice(ptr, uint32(len(data)))
	if !ok {
		return 0, mmdevice.ErrInvalidInputParam
	}

	return copy(buf, data), mmdevice.OK
}
