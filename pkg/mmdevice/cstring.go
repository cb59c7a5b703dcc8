package mmdevice

import "bytes"

// CopyCString writes s into buf as a NUL-terminated string, truncating it to
// fit. It returns false when buf cannot hold even the terminator.
func CopyCString(buf []byte, s string) bool {
	if len(buf) == 0 {
		return false
	}
	n := copy(buf[:len(buf)-1], s)
	buf[n] = 0

	return true
}

// CString returns the string stored in buf up to the first NUL. The boolean
// is false when buf holds no terminator, which means the writer overran the
// buffer it was given.
func CString(buf []byte) (string, bool) {
	i := bytes.IndexByte(buf, 0)
	if i < 0 {
		return "", false
	}

	return string(buf[:i]), true
}
