//go:build linux || darwin

package stack

import "golang.org/x/sys/unix"

// reserveStack mmaps a MAP_STACK|MAP_NORESERVE region (spec §4.3: "a
// dedicated managed stack mmap'd with MAP_STACK|MAP_NORESERVE at an assigned
// range") and marks its low guardLen bytes PROT_NONE so a descent into them
// faults instead of corrupting whatever memory follows.
//
// Unlike the object regions (internal/mem), the managed stack does not need
// a fixed base address — any kernel-chosen mapping works, since frame
// pointers are always computed relative to this stack's own bounds.
func reserveStack(total uintptr, guardLen uintptr) (body []byte, bottom uintptr, err error) {
	body, err = unix.Mmap(-1, 0, int(total),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE|mapStackFlag()|mapNoReserveFlag())
	if err != nil {
		return nil, 0, err
	}

	if err := unix.Mprotect(body[:guardLen], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(body)
		return nil, 0, err
	}

	return body, uintptr(bodyAddr(body)) + guardLen, nil
}

func releaseStack(body []byte) error {
	return unix.Munmap(body)
}
