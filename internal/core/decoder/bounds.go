// Package decoder implements protocol decoding.
package decoder

// Within reports whether the extent [off, off+n) lies entirely inside
// [start, end). Every structured header read in this package is preceded
// by a Within check against the captured end of the frame.
func Within(start, end, off, n int) bool {
	if n < 0 || off < start || end < start {
		return false
	}
	return n <= end-off
}
