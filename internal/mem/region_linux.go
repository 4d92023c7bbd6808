package mem

import "golang.org/x/sys/unix"

// mapNoReserve returns MAP_NORESERVE, available on Linux, per spec §4.4's
// exact mmap flag set.
func mapNoReserve() int {
	return unix.MAP_NORESERVE
}
