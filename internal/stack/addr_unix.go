//go:build linux || darwin

package stack

import "unsafe"

// bodyAddr returns the address of a mmap'd slice's backing storage.
func bodyAddr(body []byte) uintptr {
	if len(body) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&body[0]))
}
