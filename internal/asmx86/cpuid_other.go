//go:build !amd64

package asmx86

// cpuidSerialize is a no-op off x86-64. Non-x86-64 targets are an explicit
// non-goal (spec §1); this stub exists only so the package (and its tests)
// build on a developer's non-amd64 workstation.
func cpuidSerialize() {}
