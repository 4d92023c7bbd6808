package stack

import "golang.org/x/sys/unix"

func mapStackFlag() int     { return unix.MAP_STACK }
func mapNoReserveFlag() int { return unix.MAP_NORESERVE }
