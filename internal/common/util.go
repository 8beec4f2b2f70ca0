package common

// WipeByteArray zeroes the contents of buf. Used to scrub passwords from
// memory as soon as they are no longer needed. Safe to call with nil.
func WipeByteArray(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
