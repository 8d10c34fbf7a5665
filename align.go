package dbus

// nextOffset returns the next byte position and the padding needed to
// reach it, given the current offset and an alignment requirement.
// Alignment in the wire format is always a power of two (1, 2, 4, or
// 8), so the mask trick below is safe.
func nextOffset(current, align int) (next, padding int) {
	if align <= 1 || current%align == 0 {
		return current, 0
	}
	next = (current + align - 1) &^ (align - 1)
	return next, next - current
}

// padBytes returns n zero bytes, the padding written before every
// aligned field per spec: padding bytes must be zero on encode.
func padBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	return make([]byte, n)
}
