//go:build windows

package secmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// pin keeps b in the working set.
func pin(b []byte) error {
	return windows.VirtualLock(uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)))
}

func unpin(b []byte) error {
	return windows.VirtualUnlock(uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)))
}
