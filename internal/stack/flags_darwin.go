package stack

// mapStackFlag and mapNoReserveFlag contribute nothing on Darwin: it has
// neither MAP_STACK nor MAP_NORESERVE. Darwin's default overcommit
// accounting makes the reservation work anyway.
func mapStackFlag() int     { return 0 }
func mapNoReserveFlag() int { return 0 }
