package mem

// mapNoReserve contributes nothing on Darwin, which has no MAP_NORESERVE
// equivalent; overcommit accounting there works differently and the flag
// would be rejected.
func mapNoReserve() int {
	return 0
}
