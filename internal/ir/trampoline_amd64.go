//go:build amd64

package ir

// callManagedAsm jumps to entry with RBP pointing at framePtr and returns the
// four registers the emitted code's exit protocol leaves behind: value (RAX),
// tag (RDX, 0 for a normal return), op0 (RCX) and op1 (R8). It is the Go
// assembly analogue of the teacher's instruction cycle's fetch/decode/execute
// dispatch, except here the decoded "instruction" is an entire compiled
// method and control genuinely leaves Go for the duration of the call.
func callManagedAsm(entry, framePtr uintptr) (value, tag, op0, op1 int64)
