//go:build linux || darwin

package mem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// reserveRegion mmaps size bytes of anonymous, no-reserve memory at a fixed
// hint address (spec §4.4: "mmap(PROT_READ|PROT_WRITE,
// MAP_ANONYMOUS|MAP_NORESERVE, size=8TiB)"). x/sys/unix.Mmap always passes
// addr=0 to the kernel, so the fixed-base reservation this scheme depends on
// goes through the raw mmap syscall instead, mirroring how the teacher's
// internal/tty reaches for golang.org/x/sys/unix when the stdlib has no
// matching primitive.
func reserveRegion(base uintptr, size uintptr) ([]byte, error) {
	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		base,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		uintptr(unix.MAP_ANON|unix.MAP_PRIVATE|mapNoReserve()),
		^uintptr(0), // fd: -1
		0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("mmap: %w", errno)
	}

	if addr != base {
		// The kernel honored the call but placed the mapping elsewhere; the
		// region scheme requires the fixed base, so treat this as failure
		// rather than silently using the wrong address space.
		_, _, _ = unix.Syscall(unix.SYS_MUNMAP, addr, size, 0)
		return nil, fmt.Errorf("mmap: kernel returned %#x, wanted fixed base %#x", addr, base)
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func releaseRegion(body []byte) error {
	return unix.Munmap(body)
}
