//go:build !windows

package mnemonic

import (
	"golang.org/x/sys/unix"
)

// mlock keeps seed bytes out of swap. It reports whether the lock took.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}
