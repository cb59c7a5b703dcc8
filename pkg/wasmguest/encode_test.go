package wasmguest

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// hostString copies s into a fresh allocation the way the host passes
// string arguments.
func hostString(t *testing.T, s string) (uint32, uint32) {
	t.Helper()

	if s == "" {
		return 0, 0
	}
	ptr := Alloc(uint32(len(s)))
	t.Cleanup(func() { Free(ptr) })
	buf, ok := Bytes(ptr, uint32(len(s)))
	require.True(t, ok)
	copy(buf, s)

	return ptr, uint32(len(s))
}

// hostBuffer allocates an output buffer and returns a reader for its
// NUL-terminated content.
func hostBuffer(t *testing.T, size uint32) (uint32, func() string) {
	t.Helper()

	ptr := Alloc(size)
	t.Cleanup(func() { Free(ptr) })

	return ptr, func() string {
		buf, ok := Bytes(ptr, size)
		require.True(t, ok)
		s, terminated := mmdevice.CString(buf)
		require.True(t, terminated)

		return s
	}
}

// TestString verifies string arguments are read from guest memory.
func TestString(t *testing.T) {
	ptr, n := hostString(t, "Exposure")
	assert.Equal(t, "Exposure", String(ptr, n))
	assert.Equal(t, "Expo", String(ptr, 4))
	assert.Empty(t, String(0, 0))
	assert.Empty(t, String(ptr, n+1))
}

// TestPutString verifies results are NUL-terminated and overflow is
// reported.
func TestPutString(t *testing.T) {
	out, read := hostBuffer(t, 6)

	require.Equal(t, mmdevice.OK, PutString(out, 6, "State"))
	assert.Equal(t, "State", read())

	assert.Equal(t, mmdevice.ErrBufferOverflow, PutString(out, 6, "Shutter"))
	assert.Equal(t, mmdevice.ErrInvalidInputParam, PutString(out, 7, "x"))
}

// TestPutFloat verifies floats are written little-endian.
func TestPutFloat(t *testing.T) {
	out := Alloc(16)
	defer Free(out)

	require.Equal(t, mmdevice.OK, PutFloat(out+8, 2.5))
	buf, _ := Bytes(out, 16)
	assert.InDelta(t, 2.5, math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])), 0)

	assert.Equal(t, mmdevice.ErrInvalidInputParam, PutFloat(out+12, 1))
}

// TestValueEncoding verifies values and codes never overlap.
func TestValueEncoding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.IntRange(0, math.MaxInt32).Draw(t, "v")
		code := mmdevice.Code(rapid.Int32Range(0, 1000).Draw(t, "code"))

		got := Value(v, code)
		if code.Failed() {
			assert.Equal(t, -int32(code), got)
			return
		}
		assert.Equal(t, int32(v), got)
	})

	assert.Equal(t, int32(1), Bool(true, mmdevice.OK))
	assert.Equal(t, int32(0), Bool(false, mmdevice.OK))
	assert.Equal(t, -int32(mmdevice.ErrInvalidProperty), Bool(true, mmdevice.ErrInvalidProperty))
}

// TestPutBytes verifies byte results against the host buffer size.
func TestPutBytes(t *testing.T) {
	ptr, _ := hostBuffer(t, 4)

	n, code := PutBytes(ptr, 4, []byte{1, 2, 3})
	require.Equal(t, mmdevice.OK, code)
	assert.Equal(t, 3, n)
	buf, _ := Bytes(ptr, 3)
	assert.Equal(t, []byte{1, 2, 3}, buf)

	_, code = PutBytes(ptr, 4, []byte{1, 2, 3, 4, 5})
	assert.Equal(t, mmdevice.ErrBufferOverflow, code)

	n, code = PutBytes(0, 0, nil)
	assert.Equal(t, mmdevice.OK, code)
	assert.Zero(t, n)
}
