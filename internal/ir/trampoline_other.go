//go:build !amd64

package ir

// callManagedAsm has no implementation outside amd64: the template compiler
// and emitter are x86-64 only (spec "Non-goals: non-x86-64 targets"), so
// there is no encoding for callManaged to jump into on other architectures.
func callManagedAsm(entry, framePtr uintptr) (value, tag, op0, op1 int64) {
	panic("ir: JIT execution requires amd64")
}
