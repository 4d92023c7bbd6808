//go:build linux || darwin

package ir

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapExecutable reserves an anonymous RW mapping, copies code into it, then
// mprotects it RX, splitting write and execute permissions rather than
// mapping PROT_WRITE|PROT_EXEC in one call.
func mapExecutable(code []byte) ([]byte, uintptr, error) {
	size := uintptr(len(code))

	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
		^uintptr(0), 0,
	)
	if errno != 0 {
		return nil, 0, fmt.Errorf("ir: mmap exec region: %w", errno)
	}

	mapping := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	copy(mapping, code)

	if err := unix.Mprotect(mapping, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_, _, _ = unix.Syscall(unix.SYS_MUNMAP, addr, size, 0)
		return nil, 0, fmt.Errorf("ir: mprotect exec region: %w", err)
	}

	return mapping, addr, nil
}

func unmapExecutable(mapping []byte) error {
	return unix.Munmap(mapping)
}
