//go:build unix

package secmem

import "golang.org/x/sys/unix"

// pin keeps b out of swap.
func pin(b []byte) error {
	return unix.Mlock(b)
}

func unpin(b []byte) error {
	return unix.Munlock(b)
}
