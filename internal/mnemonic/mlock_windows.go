//go:build windows

package mnemonic

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mlock keeps seed bytes out of the page file. It reports whether the lock took.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return windows.VirtualLock(uintptr(unsafe.Pointer(&data[0])), uintptr(len(data))) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = windows.VirtualUnlock(uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)))
}
