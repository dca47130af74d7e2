// Package secmem holds transient secret values in pinned memory and wipes them.
package secmem

// Use pins value for the duration of fn and zeroes it on every return path.
// Pinning is best effort; value is wiped even where the process may not
// lock memory.
func Use(value []byte, fn func([]byte) error) error {
	pinned := len(value) > 0 && pin(value) == nil
	defer func() {
		Wipe(value)
		if pinned {
			_ = unpin(value)
		}
	}()
	return fn(value)
}

// Wipe zeroes value in place. It is for buffers that never reach Use.
func Wipe(value []byte) {
	clear(value)
}

// Wiped reports whether every byte of value is zero.
func Wiped(value []byte) bool {
	for _, b := range value {
		if b != 0 {
			return false
		}
	}
	return true
}
